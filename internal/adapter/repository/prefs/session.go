// Package prefs provides repository implementations backed by Fyne preferences.
package prefs

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Preference keys. Each key holds one JSON snapshot.
const (
	keyLastPlayed     = "session.last_played"
	keyRecentlyPlayed = "session.recently_played"
	keyQueue          = "session.queue"
	keyDownloads      = "offline.downloads"
)

// SessionRepository implements ports.SessionRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/com.tunestream.app.plist
// - Linux: ~/.config/fyne/com.tunestream.app/
// - Windows: %APPDATA%\fyne\com.tunestream.app\
//
// Thread-safe: All operations protected by sync.RWMutex.
type SessionRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSessionRepository creates a new session repository.
// The preferences parameter should be obtained from fyne.App.Preferences().
func NewSessionRepository(prefs fyne.Preferences) *SessionRepository {
	return &SessionRepository{prefs: prefs}
}

// SaveLastPlayed persists the resume record.
func (r *SessionRepository) SaveLastPlayed(last domain.LastPlayed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.prefs, "session", "SaveLastPlayed", keyLastPlayed, last)
}

// LoadLastPlayed retrieves the resume record.
func (r *SessionRepository) LoadLastPlayed() (domain.LastPlayed, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last domain.LastPlayed
	ok, err := load(r.prefs, "session", "LoadLastPlayed", keyLastPlayed, &last)
	if err != nil || !ok {
		return domain.LastPlayed{}, false, err
	}
	return last, true, nil
}

// SaveRecentlyPlayed persists the recently played list.
func (r *SessionRepository) SaveRecentlyPlayed(songs []domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.prefs, "session", "SaveRecentlyPlayed", keyRecentlyPlayed, nonNil(songs))
}

// LoadRecentlyPlayed retrieves the recently played list.
func (r *SessionRepository) LoadRecentlyPlayed() ([]domain.Song, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return loadSongs(r.prefs, "LoadRecentlyPlayed", keyRecentlyPlayed)
}

// SaveQueue persists the play-next queue.
func (r *SessionRepository) SaveQueue(songs []domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.prefs, "session", "SaveQueue", keyQueue, nonNil(songs))
}

// LoadQueue retrieves the play-next queue.
func (r *SessionRepository) LoadQueue() ([]domain.Song, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return loadSongs(r.prefs, "LoadQueue", keyQueue)
}

// ClearQueue removes the saved queue.
func (r *SessionRepository) ClearQueue() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyQueue)
	return nil
}

func loadSongs(prefs fyne.Preferences, op, key string) ([]domain.Song, bool, error) {
	var songs []domain.Song
	ok, err := load(prefs, "session", op, key, &songs)
	if err != nil || !ok {
		return nil, false, err
	}
	return nonNil(songs), true, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func save(prefs fyne.Preferences, repoType, op, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return domain.NewRepositoryError(op, repoType, "failed to marshal "+key, err)
	}
	prefs.SetString(key, string(data))
	return nil
}

// load reports ok=false when key was never written.
func load(prefs fyne.Preferences, repoType, op, key string, out any) (bool, error) {
	data := prefs.String(key)
	if data == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, domain.NewRepositoryError(op, repoType, "failed to unmarshal "+key, err)
	}
	return true, nil
}

var _ ports.SessionRepository = (*SessionRepository)(nil)
