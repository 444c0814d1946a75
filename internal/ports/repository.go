// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// SessionRepository persists the playback session slices that survive restarts.
// Every save overwrites the whole snapshot for its key.
//
// Thread-safety: Implementations must be thread-safe.
type SessionRepository interface {
	// SaveLastPlayed persists the cold-start resume record.
	SaveLastPlayed(last domain.LastPlayed) error

	// LoadLastPlayed returns the resume record; ok is false if none was saved.
	// Corrupt data is reported as an error.
	LoadLastPlayed() (last domain.LastPlayed, ok bool, err error)

	// SaveRecentlyPlayed persists the recently played list.
	SaveRecentlyPlayed(songs []domain.Song) error

	// LoadRecentlyPlayed returns the saved list; ok is false if none was saved.
	LoadRecentlyPlayed() (songs []domain.Song, ok bool, err error)

	// SaveQueue persists the play-next queue.
	SaveQueue(songs []domain.Song) error

	// LoadQueue returns the saved queue; ok is false if none was saved.
	LoadQueue() (songs []domain.Song, ok bool, err error)

	// ClearQueue removes the saved queue.
	ClearQueue() error
}

// DownloadRepository persists the set of offline download entries.
//
// Thread-safety: Implementations must be thread-safe.
type DownloadRepository interface {
	// SaveDownloads overwrites the persisted entry set.
	SaveDownloads(entries []domain.DownloadEntry) error

	// LoadDownloads returns the persisted entries (empty if none).
	LoadDownloads() ([]domain.DownloadEntry, error)
}
