package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// CatalogServer is an httptest server speaking the catalog API. It serves a
// fixed list of songs by one artist, and their audio files.
type CatalogServer struct {
	*httptest.Server

	ArtistID   string
	ArtistName string

	mu       sync.Mutex
	count    int
	requests []string
	silent   map[string]bool
}

// NewCatalogServer starts a catalog with n songs by one artist. It is closed on test cleanup.
func NewCatalogServer(t *testing.T, n int) *CatalogServer {
	t.Helper()

	c := &CatalogServer{ArtistID: "artist-1", ArtistName: "Test Artist", count: n}
	c.Server = httptest.NewServer(http.HandlerFunc(c.handle))
	t.Cleanup(c.Close)
	return c
}

// WithoutAudio makes the catalog list songIDs with no download URLs.
func (c *CatalogServer) WithoutAudio(songIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.silent == nil {
		c.silent = make(map[string]bool)
	}
	for _, id := range songIDs {
		c.silent[id] = true
	}
}

// SongID returns the id of the i-th song.
func SongID(i int) string {
	return fmt.Sprintf("song-%02d", i)
}

// AudioURL returns the download URL of songID.
func (c *CatalogServer) AudioURL(songID string) string {
	return c.URL + "/audio/" + songID + ".mp3"
}

// Requests returns the paths requested so far, excluding audio downloads.
func (c *CatalogServer) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

func (c *CatalogServer) song(i int) map[string]any {
	id := SongID(i)
	downloads := []map[string]any{
		{"quality": "96kbps", "url": c.URL + "/audio/" + id + "-low.mp3"},
		{"quality": "320kbps", "url": c.AudioURL(id)},
	}
	c.mu.Lock()
	if c.silent[id] {
		downloads = []map[string]any{}
	}
	c.mu.Unlock()

	return map[string]any{
		"id":       id,
		"name":     fmt.Sprintf("Track %02d", i),
		"duration": 180 + i,
		"album":    map[string]any{"id": "album-1", "name": "Test Album"},
		"artists": map[string]any{
			"primary": []map[string]any{{"id": c.ArtistID, "name": c.ArtistName}},
		},
		"image": []map[string]any{{"quality": "150x150", "url": c.URL + "/img/" + id + ".jpg"}},
		"downloadUrl": downloads,
	}
}

func (c *CatalogServer) songs(from, to int) []map[string]any {
	out := []map[string]any{}
	for i := from; i < to && i < c.count; i++ {
		out = append(out, c.song(i))
	}
	return out
}

func (c *CatalogServer) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if strings.HasPrefix(path, "/audio/") {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3 test audio " + path))
		return
	}

	c.mu.Lock()
	c.requests = append(c.requests, path)
	c.mu.Unlock()

	switch {
	case path == "/search/songs":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 10
		}
		if !strings.EqualFold(r.URL.Query().Get("query"), c.ArtistName) && r.URL.Query().Get("query") != "arijit" {
			writeData(w, map[string]any{"total": 0, "results": []any{}})
			return
		}
		writeData(w, map[string]any{"total": c.count, "results": c.songs(page*limit, page*limit+limit)})

	case path == "/search/artists":
		writeData(w, map[string]any{"results": []map[string]any{{"id": c.ArtistID, "name": c.ArtistName}}})

	case path == "/artists/"+c.ArtistID+"/songs":
		writeData(w, map[string]any{"total": c.count, "songs": c.songs(0, c.count)})

	case strings.HasPrefix(path, "/songs/") && strings.HasSuffix(path, "/suggestions"):
		writeData(w, c.songs(0, 2))

	case strings.HasPrefix(path, "/songs/"):
		id := strings.TrimPrefix(path, "/songs/")
		var i int
		if _, err := fmt.Sscanf(id, "song-%d", &i); err != nil || i < 0 || i >= c.count {
			http.NotFound(w, r)
			return
		}
		writeData(w, []map[string]any{c.song(i)})

	default:
		http.NotFound(w, r)
	}
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}
