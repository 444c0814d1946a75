// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the TuneStream client.
package domain

// Song is a single catalog track in its canonical internal shape.
// Catalog payloads of every API generation are normalized into this type at the boundary.
// Songs are values: mutating a copy never affects the session's lists.
type Song struct {
	// ID is the catalog identifier and the unique key for a song
	ID string `json:"id"`

	// Name is the display name (HTML entities already decoded)
	Name string `json:"name"`

	// Artists holds primary and featured artist credits
	Artists ArtistCredits `json:"artists"`

	// Images are artwork variants keyed by quality tag (e.g. "150x150")
	Images []MediaVariant `json:"image,omitempty"`

	// Audio are stream variants keyed by quality tag (e.g. "320kbps")
	Audio []MediaVariant `json:"downloadUrl,omitempty"`

	// Album is the album reference, if known
	Album *Album `json:"album,omitempty"`

	// DurationSeconds is the catalog-reported length, 0 when unknown
	DurationSeconds int `json:"duration,omitempty"`

	// Language is the catalog language tag
	Language string `json:"language,omitempty"`
}

// ArtistCredits groups the artists credited on a song.
type ArtistCredits struct {
	Primary  []Artist `json:"primary,omitempty"`
	Featured []Artist `json:"featured,omitempty"`
}

// Artist is an artist reference. Legacy payloads only carry a name, so ID may be empty.
type Artist struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Images []MediaVariant `json:"image,omitempty"`
}

// Album is an album reference.
type Album struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// MediaVariant is one quality rendition of an image or audio stream.
type MediaVariant struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// SearchPage is one page of catalog search results.
type SearchPage struct {
	// Results are the songs on this page, in catalog order
	Results []Song

	// Total is the total number of matches across all pages
	Total int
}

// LastPlayed is the cold-start resume record.
type LastPlayed struct {
	Song  Song `json:"song"`
	Index int  `json:"index"`
}

// DownloadEntry records a song whose audio is stored locally.
// There is at most one entry per song ID.
type DownloadEntry struct {
	Song     Song   `json:"song"`
	LocalURI string `json:"localUri"`

	// FileType is the container detected after download (e.g. "MP3"), empty if unknown
	FileType string `json:"fileType,omitempty"`
}

// DownloadState is the lifecycle state of a song's offline copy.
type DownloadState int

const (
	// DownloadNone means the song has no local copy
	DownloadNone DownloadState = iota

	// DownloadInProgress means a download is running
	DownloadInProgress

	// DownloadDone means the song has a local copy
	DownloadDone

	// DownloadFailed means the last attempt failed; see DownloadStatus.Error
	DownloadFailed
)

// String returns a human-readable representation of the download state.
func (s DownloadState) String() string {
	switch s {
	case DownloadNone:
		return "not-downloaded"
	case DownloadInProgress:
		return "downloading"
	case DownloadDone:
		return "downloaded"
	case DownloadFailed:
		return "error"
	default:
		return "unknown"
	}
}

// DownloadStatus is the per-song view of the download manager.
type DownloadStatus struct {
	State DownloadState
	Error string
}

// TransportStatus is one status report from the audio transport.
type TransportStatus struct {
	// URI identifies the resource the report belongs to
	URI string

	// IsLoaded is false until the resource is ready
	IsLoaded bool

	PositionMillis int64
	DurationMillis int64

	// DidJustFinish is set once, when playback reaches the end naturally
	DidJustFinish bool
}

// SessionState is an immutable snapshot of the playback session.
type SessionState struct {
	Songs        []Song
	CurrentSong  *Song
	CurrentIndex int
	IsPlaying    bool

	PositionMillis int64
	DurationMillis int64

	Queue           []Song
	ShuffleEnabled  bool
	ShuffledIndices []int
	RecentlyPlayed  []Song

	CurrentQuery string
	CurrentPage  int
	TotalSongs   int
	Loading      bool
	LoadingMore  bool
}

// Progress returns position/duration in [0,1].
func (s SessionState) Progress() float64 {
	if s.DurationMillis <= 0 {
		return 0
	}
	return float64(s.PositionMillis) / float64(s.DurationMillis)
}
