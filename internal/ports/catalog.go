package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// Catalog is the remote song catalog. Results are already normalized to domain.Song.
type Catalog interface {
	// SearchSongs returns one page (0-based) of matches and the total match count.
	SearchSongs(ctx context.Context, query string, page, limit int) (domain.SearchPage, error)

	// SongByID returns a single song. Returns domain.ErrSongNotFound if unknown.
	SongByID(ctx context.Context, id string) (domain.Song, error)

	// ArtistSongs returns an artist's songs.
	ArtistSongs(ctx context.Context, artistID string) ([]domain.Song, error)

	// SearchArtists returns artists matching query.
	SearchArtists(ctx context.Context, query string) ([]domain.Artist, error)

	// SongSuggestions returns songs similar to the song with id.
	SongSuggestions(ctx context.Context, id string) ([]domain.Song, error)
}

// FileStore is the filesystem-backed download primitive.
type FileStore interface {
	// EnsureDir creates dir (and parents) if missing.
	EnsureDir(ctx context.Context, dir string) error

	// Download fetches url to path. path is only created once the transfer completed.
	Download(ctx context.Context, url, path string) error

	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Remove deletes path. A missing file is not an error.
	Remove(ctx context.Context, path string) error

	// Probe identifies the audio container of path (e.g. "MP3").
	Probe(ctx context.Context, path string) (string, error)

	// Watch calls onRemoved for every file removed or renamed away inside dir,
	// until ctx is done.
	Watch(ctx context.Context, dir string, onRemoved func(path string)) error
}
