package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/repository/prefs"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Helper to create a test song with every audio quality
func createTestSong(id string) domain.Song {
	return domain.Song{
		ID:   id,
		Name: "Song " + id,
		Artists: domain.ArtistCredits{
			Primary: []domain.Artist{{ID: "artist-" + id, Name: "Artist " + id}},
		},
		Audio: []domain.MediaVariant{
			{Quality: "96kbps", URL: "https://cdn.test/" + id + "_96.mp4"},
			{Quality: "320kbps", URL: "https://cdn.test/" + id + "_320.mp4"},
		},
		Images: []domain.MediaVariant{{Quality: "150x150", URL: "https://img.test/" + id + ".jpg"}},
	}
}

func streamURL(id string) string {
	return "https://cdn.test/" + id + "_320.mp4"
}

func createTestSongs(prefix string, n int) []domain.Song {
	songs := make([]domain.Song, n)
	for i := range songs {
		songs[i] = createTestSong(fmt.Sprintf("%s-%02d", prefix, i))
	}
	return songs
}

type searchCall struct {
	query       string
	page, limit int
}

// fakeCatalog serves fixed result sets per query, paged like the real API.
type fakeCatalog struct {
	mu      sync.Mutex
	results map[string][]domain.Song
	err     error
	gates   map[string]chan struct{}
	calls   []searchCall
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: map[string][]domain.Song{
			"arijit": createTestSongs("arijit", 45),
		},
		gates: make(map[string]chan struct{}),
	}
}

func (c *fakeCatalog) set(query string, songs []domain.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[query] = songs
}

func (c *fakeCatalog) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// hold blocks searches for query until the returned func is called.
func (c *fakeCatalog) hold(query string) (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gates[query] = gate
	c.mu.Unlock()
	return func() { close(gate) }
}

func (c *fakeCatalog) searches() []searchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]searchCall(nil), c.calls...)
}

func (c *fakeCatalog) SearchSongs(ctx context.Context, query string, page, limit int) (domain.SearchPage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, searchCall{query, page, limit})
	gate := c.gates[query]
	err := c.err
	all := c.results[query]
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.SearchPage{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.SearchPage{}, err
	}

	start := min(page*limit, len(all))
	end := min(start+limit, len(all))
	return domain.SearchPage{Results: append([]domain.Song(nil), all[start:end]...), Total: len(all)}, nil
}

func (c *fakeCatalog) SongByID(_ context.Context, id string) (domain.Song, error) {
	return createTestSong(id), nil
}

func (c *fakeCatalog) ArtistSongs(_ context.Context, artistID string) ([]domain.Song, error) {
	return createTestSongs(artistID, 3), nil
}

func (c *fakeCatalog) SearchArtists(_ context.Context, query string) ([]domain.Artist, error) {
	return []domain.Artist{{ID: query, Name: query}}, nil
}

func (c *fakeCatalog) SongSuggestions(_ context.Context, id string) ([]domain.Song, error) {
	return createTestSongs("similar-"+id, 2), nil
}

// fakeLocal resolves songs to offline files.
type fakeLocal struct {
	mu    sync.Mutex
	files map[string]string
}

func (l *fakeLocal) LocalURI(songID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	uri, ok := l.files[songID]
	return uri, ok
}

func (l *fakeLocal) add(songID, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.files == nil {
		l.files = make(map[string]string)
	}
	l.files[songID] = path
}

type shown struct {
	title, subtitle string
}

// recordingNotifier records every notification call.
type recordingNotifier struct {
	mu      sync.Mutex
	shown   []shown
	cleared int
	err     error
}

func (n *recordingNotifier) Show(title, subtitle string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, shown{title, subtitle})
	return n.err
}

func (n *recordingNotifier) Clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared++
	return n.err
}

func (n *recordingNotifier) last() (shown, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.shown) == 0 {
		return shown{}, n.cleared
	}
	return n.shown[len(n.shown)-1], n.cleared
}

// eventRecorder collects every published event.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func recordEvents(bus ports.EventBus) *eventRecorder {
	r := &eventRecorder{}
	bus.SubscribeAll(func(e domain.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *eventRecorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type sessionFixture struct {
	session   *SessionService
	transport *mock.Transport
	catalog   *fakeCatalog
	repo      *prefs.SessionRepository
	local     *fakeLocal
	notifier  *recordingNotifier
	bus       *eventbus.SyncEventBus
	events    *eventRecorder
}

// Helper to create a session service over the mock transport and in-memory preferences
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	return newSessionFixtureWithRepo(t, prefs.NewSessionRepository(test.NewApp().Preferences()))
}

func newSessionFixtureWithRepo(t *testing.T, repo *prefs.SessionRepository) *sessionFixture {
	t.Helper()

	log := logger.NewTestLogger()
	transport := mock.NewTransport()
	bus := eventbus.NewSyncEventBus()

	f := &sessionFixture{
		transport: transport,
		catalog:   newFakeCatalog(),
		repo:      repo,
		local:     &fakeLocal{},
		notifier:  &recordingNotifier{},
		bus:       bus,
		events:    recordEvents(bus),
	}
	f.session = NewSessionService(
		log,
		audio.NewSequenced(transport, log),
		f.catalog,
		f.repo,
		f.local,
		f.notifier,
		bus,
		DefaultSessionConfig(),
	)

	t.Cleanup(func() {
		_ = f.session.Shutdown()
		_ = transport.Close()
		_ = bus.Close()
	})
	return f
}

// waitFor polls cond until it holds or fails the test.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

// assertIndexInvariant checks that the current song is addressable by the current index.
func assertIndexInvariant(t *testing.T, state domain.SessionState) {
	t.Helper()

	if state.CurrentSong == nil {
		return
	}
	if state.CurrentIndex < 0 || state.CurrentIndex >= len(state.Songs) {
		t.Fatalf("current index %d out of range for %d songs", state.CurrentIndex, len(state.Songs))
	}
	if got := state.Songs[state.CurrentIndex].ID; got != state.CurrentSong.ID {
		t.Fatalf("songs[%d] is %q, current song is %q", state.CurrentIndex, got, state.CurrentSong.ID)
	}
}
