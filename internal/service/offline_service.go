package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
	"golang.org/x/sync/singleflight"
)

// DownloadExtension is used for every offline file regardless of source format.
const DownloadExtension = ".mp3"

// Reasons attached to DownloadRemovedEvent.
const (
	RemovedByUser      = "user"
	RemovedMissingFile = "missing-file"
)

// OfflineService is the offline download manager. It owns the set of
// downloaded songs and the transient per-song download state.
//
// Download failures never surface as errors; they are recorded per song and
// exposed through Status.
//
// Thread-safety: all methods may be called concurrently. Concurrent downloads
// of the same song share one transfer.
type OfflineService struct {
	// Dependencies (injected)
	logger *slog.Logger
	store  ports.FileStore
	repo   ports.DownloadRepository
	bus    ports.EventBus
	dir    string

	// State
	mu          sync.RWMutex
	entries     []domain.DownloadEntry
	downloading map[string]bool
	errors      map[string]string

	// persistMu orders snapshot writes
	persistMu sync.Mutex
	inflight  singleflight.Group
}

// NewOfflineService creates a download manager storing files under dir.
func NewOfflineService(
	logger *slog.Logger,
	store ports.FileStore,
	repo ports.DownloadRepository,
	bus ports.EventBus,
	dir string,
) *OfflineService {
	logger.Debug("offline service initialized", slog.String("dir", dir))

	return &OfflineService{
		logger:      logger,
		store:       store,
		repo:        repo,
		bus:         bus,
		dir:         dir,
		downloading: make(map[string]bool),
		errors:      make(map[string]string),
	}
}

// Dir returns the downloads directory.
func (s *OfflineService) Dir() string {
	return s.dir
}

// PathFor returns the deterministic local path for songID.
func (s *OfflineService) PathFor(songID string) string {
	return filepath.Join(s.dir, songID+DownloadExtension)
}

// DownloadSong fetches the song's best audio variant to local storage.
// It does nothing if the song is already downloaded.
func (s *OfflineService) DownloadSong(ctx context.Context, song domain.Song) {
	if s.IsDownloaded(song.ID) {
		return
	}

	_, _, _ = s.inflight.Do(song.ID, func() (any, error) {
		s.download(ctx, song)
		return nil, nil
	})
}

func (s *OfflineService) download(ctx context.Context, song domain.Song) {
	s.mu.Lock()
	if s.indexLocked(song.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.downloading[song.ID] = true
	delete(s.errors, song.ID)
	s.mu.Unlock()

	s.bus.Publish(domain.NewDownloadStartedEvent(song.ID))

	url, ok := domain.BestAudioURL(song.Audio)
	if !ok {
		s.fail(song.ID, domain.DownloadErrNoAudioURL, nil)
		return
	}

	if err := s.store.EnsureDir(ctx, s.dir); err != nil {
		s.fail(song.ID, domain.DownloadErrStorageUnavailable, err)
		return
	}

	path := s.PathFor(song.ID)
	if err := s.store.Download(ctx, url, path); err != nil {
		message := err.Error()
		if message == "" {
			message = domain.DownloadErrGeneric
		}
		s.fail(song.ID, message, err)
		return
	}

	fileType, err := s.store.Probe(ctx, path)
	if err != nil {
		s.logger.Warn("failed to identify download", slog.String("song_id", song.ID), slog.String("error", err.Error()))
	}

	entry := domain.DownloadEntry{Song: song, LocalURI: path, FileType: fileType}

	s.mu.Lock()
	if i := s.indexLocked(song.ID); i >= 0 {
		s.entries = slices.Delete(slices.Clone(s.entries), i, i+1)
	}
	s.entries = append(s.entries, entry)
	delete(s.downloading, song.ID)
	delete(s.errors, song.ID)
	s.mu.Unlock()

	s.save()

	s.logger.Info("song downloaded",
		slog.String("song_id", song.ID),
		slog.String("path", path),
		slog.String("file_type", fileType))
	s.bus.Publish(domain.NewDownloadCompletedEvent(entry))
}

func (s *OfflineService) fail(songID, message string, err error) {
	s.mu.Lock()
	delete(s.downloading, songID)
	s.errors[songID] = message
	s.mu.Unlock()

	attrs := []any{slog.String("song_id", songID), slog.String("message", message)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Warn("download failed", attrs...)

	s.bus.Publish(domain.NewDownloadFailedEvent(songID, message))
}

// RemoveDownload deletes the song's local file and entry. It does nothing if
// the song is not downloaded. File deletion failures are logged and ignored.
func (s *OfflineService) RemoveDownload(ctx context.Context, songID string) {
	s.mu.RLock()
	i := s.indexLocked(songID)
	if i < 0 {
		s.mu.RUnlock()
		return
	}
	path := s.entries[i].LocalURI
	s.mu.RUnlock()

	if err := s.store.Remove(ctx, path); err != nil {
		s.logger.Warn("failed to delete download", slog.String("path", path), slog.String("error", err.Error()))
	}

	if !s.drop(songID) {
		return
	}
	s.save()

	s.bus.Publish(domain.NewDownloadRemovedEvent(songID, RemovedByUser))
}

// drop removes the entry for songID and any stale error. Reports whether an entry was removed.
func (s *OfflineService) drop(songID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.errors, songID)
	i := s.indexLocked(songID)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(slices.Clone(s.entries), i, i+1)
	return true
}

// IsDownloaded reports whether songID has a local copy.
func (s *OfflineService) IsDownloaded(songID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(songID) >= 0
}

// LocalURI returns the local file of songID.
func (s *OfflineService) LocalURI(songID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(songID)
	if i < 0 {
		return "", false
	}
	return s.entries[i].LocalURI, true
}

// Status returns the download state of songID.
func (s *OfflineService) Status(songID string) domain.DownloadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.downloading[songID]:
		return domain.DownloadStatus{State: domain.DownloadInProgress}
	case s.indexLocked(songID) >= 0:
		return domain.DownloadStatus{State: domain.DownloadDone}
	case s.errors[songID] != "":
		return domain.DownloadStatus{State: domain.DownloadFailed, Error: s.errors[songID]}
	default:
		return domain.DownloadStatus{State: domain.DownloadNone}
	}
}

// ClearError forgets the last failure of songID.
func (s *OfflineService) ClearError(songID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, songID)
}

// Downloads returns the downloaded entries in download order.
func (s *OfflineService) Downloads() []domain.DownloadEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// HydrateOffline loads persisted entries, keeping only those whose file still
// exists. The pruned set is written back when anything was dropped.
func (s *OfflineService) HydrateOffline(ctx context.Context) {
	persisted, err := s.repo.LoadDownloads()
	if err != nil {
		s.logger.Warn("ignoring unreadable downloads", slog.String("error", err.Error()))
		return
	}

	// a later entry for the same song replaces an earlier one
	unique := make([]domain.DownloadEntry, 0, len(persisted))
	for _, entry := range persisted {
		if i := slices.IndexFunc(unique, func(e domain.DownloadEntry) bool { return e.Song.ID == entry.Song.ID }); i >= 0 {
			unique[i] = entry
			continue
		}
		unique = append(unique, entry)
	}
	persisted = unique

	kept := make([]domain.DownloadEntry, 0, len(persisted))
	for _, entry := range persisted {
		exists, err := s.store.Exists(ctx, entry.LocalURI)
		if err != nil {
			s.logger.Warn("cannot verify download, dropping it",
				slog.String("song_id", entry.Song.ID),
				slog.String("error", err.Error()))
			continue
		}
		if !exists {
			s.logger.Info("dropping download with missing file",
				slog.String("song_id", entry.Song.ID),
				slog.String("path", entry.LocalURI))
			continue
		}
		kept = append(kept, entry)
	}

	dropped := len(persisted) - len(kept)

	s.mu.Lock()
	s.entries = kept
	s.mu.Unlock()

	if dropped > 0 {
		s.save()
	}

	s.bus.Publish(domain.NewDownloadsReconciledEvent(len(kept), dropped))
}

// Watch drops entries whose file disappears while the app runs. It blocks until ctx is done.
func (s *OfflineService) Watch(ctx context.Context) error {
	if err := s.store.EnsureDir(ctx, s.dir); err != nil {
		return domain.NewServiceError("OfflineService", "Watch", "downloads directory unavailable", err)
	}

	return s.store.Watch(ctx, s.dir, func(path string) {
		s.mu.RLock()
		entry, found := lo.Find(s.entries, func(e domain.DownloadEntry) bool {
			return filepath.Clean(e.LocalURI) == filepath.Clean(path)
		})
		s.mu.RUnlock()

		if !found || !s.drop(entry.Song.ID) {
			return
		}
		s.save()

		s.logger.Info("download removed externally", slog.String("song_id", entry.Song.ID))
		s.bus.Publish(domain.NewDownloadRemovedEvent(entry.Song.ID, RemovedMissingFile))
	})
}

func (s *OfflineService) indexLocked(songID string) int {
	return slices.IndexFunc(s.entries, func(e domain.DownloadEntry) bool { return e.Song.ID == songID })
}

// save writes the current entry set. Snapshots are taken under persistMu so
// concurrent saves cannot land out of order.
func (s *OfflineService) save() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	entries := s.Downloads()
	if err := s.repo.SaveDownloads(entries); err != nil {
		s.logger.Warn("failed to persist downloads", slog.String("error", err.Error()))
	}
}
