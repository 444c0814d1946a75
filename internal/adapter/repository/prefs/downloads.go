package prefs

import (
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// DownloadRepository implements ports.DownloadRepository using Fyne preferences.
// The entry set is stored as one JSON array.
type DownloadRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewDownloadRepository creates a new download repository.
func NewDownloadRepository(prefs fyne.Preferences) *DownloadRepository {
	return &DownloadRepository{prefs: prefs}
}

// SaveDownloads overwrites the persisted entry set.
func (r *DownloadRepository) SaveDownloads(entries []domain.DownloadEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.prefs, "downloads", "SaveDownloads", keyDownloads, nonNil(entries))
}

// LoadDownloads returns the persisted entries. Entries without a song ID or
// local URI cannot be served and are skipped.
func (r *DownloadRepository) LoadDownloads() ([]domain.DownloadEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []domain.DownloadEntry
	if _, err := load(r.prefs, "downloads", "LoadDownloads", keyDownloads, &entries); err != nil {
		return nil, err
	}

	valid := make([]domain.DownloadEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Song.ID == "" || entry.LocalURI == "" {
			continue
		}
		valid = append(valid, entry)
	}
	return valid, nil
}

var _ ports.DownloadRepository = (*DownloadRepository)(nil)
