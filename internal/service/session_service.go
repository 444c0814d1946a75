// Package service provides business logic for the TuneStream client.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

const sessionServiceName = "SessionService"

// LocalResolver looks up the offline copy of a song.
type LocalResolver interface {
	LocalURI(songID string) (string, bool)
}

// SessionConfig tunes the session store.
type SessionConfig struct {
	// PageSize is the number of songs requested per catalog page
	PageSize int

	// RecentlyPlayedLimit caps the recently played list
	RecentlyPlayedLimit int

	// FallbackQuery seeds the song list on resume when the restored song has no artist
	FallbackQuery string
}

// DefaultSessionConfig returns the standard settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PageSize:            20,
		RecentlyPlayedLimit: 10,
		FallbackQuery:       "arijit",
	}
}

// SessionService is the playback session store. It owns the song list, the
// current playback pointer, the queue, shuffle order and recently played
// history, and is the only component that drives the audio transport.
//
// Thread-safety: all methods may be called concurrently. Overlapping
// SetCurrentSong calls resolve so that the most recently issued call that
// reaches the transport is both loaded and committed.
type SessionService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	transport ports.SequencedTransport
	catalog   ports.Catalog
	repo      ports.SessionRepository
	local     LocalResolver
	notifier  ports.Notifier
	bus       ports.EventBus
	cfg       SessionConfig

	persist     *persister
	permutation func(n int) []int

	// State
	mu           sync.RWMutex
	songs        []domain.Song
	current      *domain.Song
	currentIndex int
	currentURI   string
	isPlaying    bool
	position     int64
	duration     int64
	queue        []domain.Song
	shuffle      bool
	shuffled     []int
	recent       []domain.Song
	query        string
	page         int
	total        int
	loading      bool
	loadingMore  bool

	// loadGen counts issued loads; committedGen is the load that last reached commit.
	loadGen      uint64
	committedGen uint64
	fetchGen     uint64

	// Lifecycle
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSessionService creates the session store and starts consuming transport statuses.
func NewSessionService(
	logger *slog.Logger,
	transport ports.SequencedTransport,
	catalog ports.Catalog,
	repo ports.SessionRepository,
	local LocalResolver,
	notifier ports.Notifier,
	bus ports.EventBus,
	cfg SessionConfig,
) *SessionService {
	defaults := DefaultSessionConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.RecentlyPlayedLimit <= 0 {
		cfg.RecentlyPlayedLimit = defaults.RecentlyPlayedLimit
	}
	if cfg.FallbackQuery == "" {
		cfg.FallbackQuery = defaults.FallbackQuery
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionService{
		logger:       logger,
		transport:    transport,
		catalog:      catalog,
		repo:         repo,
		local:        local,
		notifier:     notifier,
		bus:          bus,
		cfg:          cfg,
		persist:      newPersister(logger, 32),
		permutation:  randomPermutation,
		currentIndex: -1,
		duration:     1,
		ctx:          ctx,
		cancel:       cancel,
	}

	s.wg.Add(1)
	go s.consumeStatuses(transport.Statuses())

	logger.Debug("session service initialized", slog.Int("page_size", cfg.PageSize))
	return s
}

func randomPermutation(n int) []int {
	return lo.Shuffle(lo.Range(n))
}

// SetCurrentSong loads song into the transport, starts playing it and makes it current.
// A song without a playable URI is skipped silently; EventPlaybackUnavailable is published.
func (s *SessionService) SetCurrentSong(ctx context.Context, song domain.Song) error {
	uri, local := s.resolveURI(song)
	if uri == "" {
		s.logger.Info("no playable uri, skipping song", slog.String("song_id", song.ID))
		s.publish(domain.NewPlaybackUnavailableEvent(song))
		return nil
	}
	return s.play(ctx, song, uri, local, false)
}

func (s *SessionService) resolveURI(song domain.Song) (string, bool) {
	if s.local != nil {
		if uri, ok := s.local.LocalURI(song.ID); ok {
			return uri, true
		}
	}
	uri, _ := domain.BestAudioURL(song.Audio)
	return uri, false
}

// play reserves a transport slot, loads uri and commits song if no newer load was issued meanwhile.
func (s *SessionService) play(ctx context.Context, song domain.Song, uri string, local, resumed bool) error {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	ticket := s.transport.Reserve()
	s.mu.Unlock()

	s.logger.Debug("loading song", slog.String("song_id", song.ID), slog.String("uri", uri), slog.Uint64("gen", gen))

	if err := ticket.Load(ctx, uri); err != nil {
		if errors.Is(err, domain.ErrSuperseded) || s.superseded(gen) {
			s.logger.Debug("load superseded", slog.String("song_id", song.ID))
			return nil
		}
		s.logger.Warn("failed to load song", slog.String("song_id", song.ID), slog.String("error", err.Error()))
		s.loadFailed(gen)
		return domain.NewServiceError(sessionServiceName, "SetCurrentSong", "failed to load "+song.ID, err)
	}

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return nil
	}

	var events []domain.Event
	index := s.indexOfLocked(song.ID)
	if index < 0 {
		s.songs = slices.Insert(slices.Clone(s.songs), 0, song)
		index = 0
		s.reshuffleLocked()
		events = append(events, domain.NewSongsChangedEvent(s.query, s.page, len(s.songs), s.total))
	}

	committed := song
	s.current = &committed
	s.currentIndex = index
	s.currentURI = uri
	s.committedGen = gen
	s.isPlaying = true
	s.position = 0
	s.duration = 1
	s.recent = pushRecent(s.recent, song, s.cfg.RecentlyPlayedLimit)

	last := domain.LastPlayed{Song: song, Index: index}
	recent := slices.Clone(s.recent)
	s.persist.enqueue("last_played", func() error { return s.repo.SaveLastPlayed(last) })
	s.persist.enqueue("recently_played", func() error { return s.repo.SaveRecentlyPlayed(recent) })
	s.mu.Unlock()

	if resumed {
		events = append(events, domain.NewPlaybackResumedEvent(song, true))
	}
	events = append(events,
		domain.NewSongStartedEvent(song, index, uri, local),
		domain.NewRecentlyPlayedChangedEvent(recent))
	s.publish(events...)

	s.showNowPlaying(song)
	return nil
}

// loadFailed settles a failed load. The transport has already unloaded the
// previous resource, so the current song stays but is no longer playing.
func (s *SessionService) loadFailed(gen uint64) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	s.committedGen = gen
	wasPlaying := s.isPlaying
	s.isPlaying = false
	var song domain.Song
	if s.current != nil {
		song = *s.current
	}
	position := s.position
	s.mu.Unlock()

	if !wasPlaying {
		return
	}
	s.publish(domain.NewPlaybackPausedEvent(song, position))
	if err := s.notifier.Clear(); err != nil {
		s.logger.Warn("failed to clear notification", slog.String("error", err.Error()))
	}
}

func (s *SessionService) superseded(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen != s.loadGen
}

// pushRecent moves song to the front, drops older copies and caps the list.
func pushRecent(list []domain.Song, song domain.Song, limit int) []domain.Song {
	rest := lo.Reject(list, func(item domain.Song, _ int) bool { return item.ID == song.ID })
	out := append([]domain.Song{song}, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *SessionService) indexOfLocked(id string) int {
	return slices.IndexFunc(s.songs, func(item domain.Song) bool { return item.ID == id })
}

func (s *SessionService) reshuffleLocked() {
	if s.shuffle {
		s.shuffled = s.permutation(len(s.songs))
	}
}

// TogglePlay pauses a playing song or resumes a paused one. Resuming reuses the
// loaded resource when the transport still holds it and reloads otherwise.
func (s *SessionService) TogglePlay(ctx context.Context) error {
	s.mu.RLock()
	if s.current == nil {
		s.mu.RUnlock()
		return nil
	}
	song := *s.current
	uri := s.currentURI
	playing := s.isPlaying
	gen := s.committedGen
	s.mu.RUnlock()

	if playing {
		return s.pause(ctx, song, gen)
	}

	if uri != "" && s.transport.LoadedURI() == uri {
		err := s.transport.Resume(ctx)
		if err == nil {
			s.mu.Lock()
			if gen == s.committedGen {
				s.isPlaying = true
			}
			s.mu.Unlock()

			s.publish(domain.NewPlaybackResumedEvent(song, false))
			s.showNowPlaying(song)
			return nil
		}
		s.logger.Warn("resume failed, reloading", slog.String("song_id", song.ID), slog.String("error", err.Error()))
	}

	local := false
	if uri == "" {
		uri, local = s.resolveURI(song)
		if uri == "" {
			s.publish(domain.NewPlaybackUnavailableEvent(song))
			return nil
		}
	}
	return s.play(ctx, song, uri, local, true)
}

func (s *SessionService) pause(ctx context.Context, song domain.Song, gen uint64) error {
	if err := s.transport.Pause(ctx); err != nil && !errors.Is(err, domain.ErrNotLoaded) {
		return domain.NewServiceError(sessionServiceName, "TogglePlay", "failed to pause", err)
	}

	s.mu.Lock()
	if gen != s.committedGen {
		s.mu.Unlock()
		return nil
	}
	s.isPlaying = false
	position := s.position
	s.mu.Unlock()

	s.publish(domain.NewPlaybackPausedEvent(song, position))
	if err := s.notifier.Clear(); err != nil {
		s.logger.Warn("failed to clear notification", slog.String("error", err.Error()))
	}
	return nil
}

// PlayNext plays the front of the queue, or the next song in list or shuffle order.
// It is a no-op at the end of the list.
func (s *SessionService) PlayNext(ctx context.Context) error {
	s.mu.Lock()
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = slices.Clone(s.queue[1:])
		event := s.saveQueueLocked()
		s.mu.Unlock()

		s.publish(event)
		return s.SetCurrentSong(ctx, next)
	}

	index, ok := s.neighbourLocked(1)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	next := s.songs[index]
	s.mu.Unlock()

	return s.SetCurrentSong(ctx, next)
}

// PlayPrevious plays the previous song in list or shuffle order. The queue is not consulted.
func (s *SessionService) PlayPrevious(ctx context.Context) error {
	s.mu.RLock()
	index, ok := s.neighbourLocked(-1)
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	prev := s.songs[index]
	s.mu.RUnlock()

	return s.SetCurrentSong(ctx, prev)
}

// neighbourLocked returns the songs index step slots away from the current song.
func (s *SessionService) neighbourLocked(step int) (int, bool) {
	if s.current == nil || len(s.songs) == 0 {
		return -1, false
	}

	if s.shuffle && len(s.shuffled) > 0 {
		slot := slices.Index(s.shuffled, s.currentIndex)
		if slot < 0 {
			if step > 0 {
				return s.shuffled[0], true
			}
			return -1, false
		}
		slot += step
		if slot < 0 || slot >= len(s.shuffled) {
			return -1, false
		}
		return s.shuffled[slot], true
	}

	next := s.currentIndex + step
	if next < 0 || next >= len(s.songs) {
		return -1, false
	}
	return next, true
}

// PlayFromQueue removes the queue entry at index and plays it. Out of range is a no-op.
func (s *SessionService) PlayFromQueue(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.queue) {
		s.mu.Unlock()
		return nil
	}
	song := s.queue[index]
	s.queue = slices.Delete(slices.Clone(s.queue), index, index+1)
	event := s.saveQueueLocked()
	s.mu.Unlock()

	s.publish(event)
	return s.SetCurrentSong(ctx, song)
}

// Seek moves playback to ratio of the song's duration. ratio must be in [0, 1].
// The position is updated immediately, without waiting for a transport report.
func (s *SessionService) Seek(ctx context.Context, ratio float64) error {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return domain.ErrInvalidPosition
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	position := int64(math.Round(float64(s.duration) * ratio))
	duration := s.duration
	s.position = position
	s.mu.Unlock()

	s.publish(domain.NewProgressEvent(position, duration))

	err := s.transport.Seek(ctx, time.Duration(position)*time.Millisecond)
	if err != nil && !errors.Is(err, domain.ErrNotLoaded) {
		return domain.NewServiceError(sessionServiceName, "Seek", "failed to seek", err)
	}
	return nil
}

// AddToQueue appends song to the play-next queue.
func (s *SessionService) AddToQueue(song domain.Song) {
	s.mu.Lock()
	s.queue = append(slices.Clone(s.queue), song)
	event := s.saveQueueLocked()
	s.mu.Unlock()

	s.publish(event)
}

// RemoveFromQueue removes every queue entry with songID.
func (s *SessionService) RemoveFromQueue(songID string) {
	s.mu.Lock()
	s.queue = lo.Reject(s.queue, func(item domain.Song, _ int) bool { return item.ID == songID })
	event := s.saveQueueLocked()
	s.mu.Unlock()

	s.publish(event)
}

// ReorderQueue moves the entry at from to position to. Out of range indices are a no-op.
func (s *SessionService) ReorderQueue(from, to int) {
	s.mu.Lock()
	if from < 0 || to < 0 || from >= len(s.queue) || to >= len(s.queue) {
		s.mu.Unlock()
		return
	}

	moved := s.queue[from]
	queue := slices.Delete(slices.Clone(s.queue), from, from+1)
	s.queue = slices.Insert(queue, to, moved)
	event := s.saveQueueLocked()
	s.mu.Unlock()

	s.publish(event)
}

// ClearQueue empties the queue.
func (s *SessionService) ClearQueue() {
	s.mu.Lock()
	s.queue = nil
	s.persist.enqueue("queue", s.repo.ClearQueue)
	s.mu.Unlock()

	s.publish(domain.NewQueueChangedEvent(nil))
}

func (s *SessionService) saveQueueLocked() domain.Event {
	queue := slices.Clone(s.queue)
	s.persist.enqueue("queue", func() error { return s.repo.SaveQueue(queue) })
	return domain.NewQueueChangedEvent(queue)
}

// SetShuffleEnabled turns shuffle on with a fresh permutation of the song list, or off.
func (s *SessionService) SetShuffleEnabled(enabled bool) {
	s.mu.Lock()
	s.shuffle = enabled
	if enabled {
		s.shuffled = s.permutation(len(s.songs))
	} else {
		s.shuffled = nil
	}
	s.mu.Unlock()

	s.publish(domain.NewShuffleToggledEvent(enabled))
}

// FetchSongs searches the catalog. Page 0 replaces the song list and resets
// pagination; later pages append songs not already listed.
// Search failures are returned; loading flags are always cleared.
func (s *SessionService) FetchSongs(ctx context.Context, query string, page int) error {
	s.mu.Lock()
	gen := s.beginFetchLocked(page)
	s.mu.Unlock()

	return s.fetch(ctx, query, page, gen)
}

// LoadMoreSongs fetches the next page of the active query. It does nothing when
// there is no query, a fetch is running, or every result is already listed.
func (s *SessionService) LoadMoreSongs(ctx context.Context) error {
	s.mu.Lock()
	if s.query == "" || s.loading || s.loadingMore || len(s.songs) >= s.total {
		s.mu.Unlock()
		return nil
	}
	query := s.query
	page := s.page + 1
	gen := s.beginFetchLocked(page)
	s.mu.Unlock()

	return s.fetch(ctx, query, page, gen)
}

func (s *SessionService) beginFetchLocked(page int) uint64 {
	s.fetchGen++
	if page == 0 {
		s.loading = true
	} else {
		s.loadingMore = true
	}
	return s.fetchGen
}

func (s *SessionService) fetch(ctx context.Context, query string, page int, gen uint64) error {
	defer func() {
		s.mu.Lock()
		if gen == s.fetchGen {
			s.loading = false
			s.loadingMore = false
		}
		s.mu.Unlock()
	}()

	result, err := s.catalog.SearchSongs(ctx, query, page, s.cfg.PageSize)
	if err != nil {
		s.logger.Warn("search failed",
			slog.String("query", query),
			slog.Int("page", page),
			slog.String("error", err.Error()))
		return domain.NewServiceError(sessionServiceName, "FetchSongs", "search failed", err)
	}

	s.mu.Lock()
	if gen != s.fetchGen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale search result", slog.String("query", query), slog.Int("page", page))
		return nil
	}

	if page == 0 {
		s.songs = slices.Clone(result.Results)
		if s.current != nil {
			// keep the playing song addressable
			index := s.indexOfLocked(s.current.ID)
			if index < 0 {
				s.songs = slices.Insert(s.songs, 0, *s.current)
				index = 0
			}
			s.currentIndex = index
		}
	} else {
		songs := slices.Clone(s.songs)
		for _, song := range result.Results {
			if !lo.ContainsBy(songs, func(item domain.Song) bool { return item.ID == song.ID }) {
				songs = append(songs, song)
			}
		}
		s.songs = songs
	}

	s.query = query
	s.page = page
	s.total = result.Total
	s.reshuffleLocked()
	event := domain.NewSongsChangedEvent(query, page, len(s.songs), s.total)
	s.mu.Unlock()

	s.logger.Debug("songs fetched",
		slog.String("query", query),
		slog.Int("page", page),
		slog.Int("count", len(result.Results)),
		slog.Int("total", result.Total))

	s.publish(event)
	return nil
}

// HydratePlayer restores the last played song without starting playback. When
// the song list is empty it is seeded by searching the song's primary artist.
func (s *SessionService) HydratePlayer(ctx context.Context) error {
	last, ok, err := s.repo.LoadLastPlayed()
	if err != nil {
		s.logger.Warn("ignoring unreadable last played record", slog.String("error", err.Error()))
		return nil
	}
	if !ok || last.Song.ID == "" {
		return nil
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil
	}

	song := last.Song
	needsSeed := len(s.songs) == 0
	var events []domain.Event
	index := last.Index
	if index < 0 || index >= len(s.songs) || s.songs[index].ID != song.ID {
		index = s.indexOfLocked(song.ID)
	}
	if index < 0 {
		s.songs = slices.Insert(slices.Clone(s.songs), 0, song)
		index = 0
		s.reshuffleLocked()
		events = append(events, domain.NewSongsChangedEvent(s.query, s.page, len(s.songs), s.total))
	}

	s.current = &song
	s.currentIndex = index
	s.currentURI = ""
	s.isPlaying = false
	s.position = 0
	s.duration = 1
	s.mu.Unlock()

	s.publish(events...)
	s.logger.Info("restored last played song", slog.String("song_id", song.ID), slog.Int("index", index))

	if !needsSeed {
		return nil
	}

	query := domain.PrimaryArtistName(song)
	if query == "" {
		query = s.cfg.FallbackQuery
	}
	if err := s.FetchSongs(ctx, query, 0); err != nil {
		s.logger.Warn("failed to seed songs on resume", slog.String("query", query), slog.String("error", err.Error()))
	}
	return nil
}

// HydrateRecentlyPlayed restores the recently played list. Missing or corrupt data is ignored.
func (s *SessionService) HydrateRecentlyPlayed() {
	songs, ok, err := s.repo.LoadRecentlyPlayed()
	if err != nil {
		s.logger.Warn("ignoring unreadable recently played list", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	songs = lo.UniqBy(songs, func(item domain.Song) string { return item.ID })
	if len(songs) > s.cfg.RecentlyPlayedLimit {
		songs = songs[:s.cfg.RecentlyPlayedLimit]
	}

	s.mu.Lock()
	s.recent = songs
	s.mu.Unlock()

	s.publish(domain.NewRecentlyPlayedChangedEvent(slices.Clone(songs)))
}

// HydrateQueue restores the queue. Missing or corrupt data is ignored.
func (s *SessionService) HydrateQueue() {
	songs, ok, err := s.repo.LoadQueue()
	if err != nil {
		s.logger.Warn("ignoring unreadable queue", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	s.queue = songs
	s.mu.Unlock()

	s.publish(domain.NewQueueChangedEvent(slices.Clone(songs)))
}

// State returns a snapshot of the session. Mutating it does not affect the store.
func (s *SessionService) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.SessionState{
		Songs:           slices.Clone(s.songs),
		CurrentIndex:    s.currentIndex,
		IsPlaying:       s.isPlaying,
		PositionMillis:  s.position,
		DurationMillis:  s.duration,
		Queue:           slices.Clone(s.queue),
		ShuffleEnabled:  s.shuffle,
		ShuffledIndices: slices.Clone(s.shuffled),
		RecentlyPlayed:  slices.Clone(s.recent),
		CurrentQuery:    s.query,
		CurrentPage:     s.page,
		TotalSongs:      s.total,
		Loading:         s.loading,
		LoadingMore:     s.loadingMore,
	}
	if s.current != nil {
		current := *s.current
		state.CurrentSong = &current
	}
	return state
}

// consumeStatuses applies transport reports to the session until the stream
// closes or the service shuts down.
func (s *SessionService) consumeStatuses(statuses <-chan domain.TransportStatus) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case status, ok := <-statuses:
			if !ok {
				return
			}
			s.handleStatus(status)
		}
	}
}

func (s *SessionService) handleStatus(status domain.TransportStatus) {
	if !status.IsLoaded {
		return
	}

	s.mu.Lock()
	if s.current == nil || status.URI != s.currentURI {
		s.mu.Unlock()
		return
	}

	if status.DidJustFinish {
		// a load issued after this song started takes precedence over auto-advance
		pending := s.loadGen != s.committedGen
		_, hasNeighbour := s.neighbourLocked(1)
		finished := domain.NewPlaybackFinishedEvent(*s.current, pending || len(s.queue) > 0 || hasNeighbour)
		s.isPlaying = false
		s.mu.Unlock()

		s.publish(finished)
		if pending {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.PlayNext(s.ctx); err != nil {
				s.logger.Warn("auto-advance failed", slog.String("error", err.Error()))
			}
		}()
		return
	}

	s.position = status.PositionMillis
	s.duration = max(status.DurationMillis, 1)
	position, duration := s.position, s.duration
	s.mu.Unlock()

	s.publish(domain.NewProgressEvent(position, duration))
}

func (s *SessionService) showNowPlaying(song domain.Song) {
	if err := s.notifier.Show(song.Name, domain.PrimaryArtists(song)); err != nil {
		s.logger.Warn("failed to show notification", slog.String("song_id", song.ID), slog.String("error", err.Error()))
	}
}

func (s *SessionService) publish(events ...domain.Event) {
	for _, event := range events {
		s.bus.Publish(event)
	}
}

// Flush waits for every persistence write issued so far.
func (s *SessionService) Flush() {
	s.persist.Flush()
}

// Shutdown stops the status consumer and drains pending persistence writes.
// The transport is left open; its owner closes it.
func (s *SessionService) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.persist.Close()
		s.logger.Debug("session service stopped")
	})
	return nil
}
