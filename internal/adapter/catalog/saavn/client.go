// Package saavn implements ports.Catalog against the public JioSaavn API mirror.
package saavn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// DefaultBaseURL is the public API mirror.
const DefaultBaseURL = "https://saavn.sumit.co/api"

// Config configures the catalog client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   15 * time.Second,
		CacheSize: 64,
	}
}

// Client is the HTTP catalog client. Search pages are cached in memory.
//
// Thread-safety: safe for concurrent use.
type Client struct {
	http   *resty.Client
	pages  *lru.Cache[string, domain.SearchPage]
	logger *slog.Logger
}

// New creates a catalog client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}

	pages, err := lru.New[string, domain.SearchPage](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:   client,
		pages:  pages,
		logger: logger,
	}, nil
}

// SearchSongs returns one page of song matches.
func (c *Client) SearchSongs(ctx context.Context, query string, page, limit int) (domain.SearchPage, error) {
	key := pageKey(query, page, limit)
	if cached, ok := c.pages.Get(key); ok {
		c.logger.Debug("search page cache hit", slog.String("query", query), slog.Int("page", page))
		return cached, nil
	}

	var body envelope[searchSongsData]
	err := c.get(ctx, "/search/songs", map[string]string{
		"query": query,
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	}, nil, &body)
	if err != nil {
		return domain.SearchPage{}, err
	}

	songs := normalizeSongs(body.Data.Results)
	total := len(songs)
	if body.Data.Total != nil {
		total = *body.Data.Total
	}

	result := domain.SearchPage{Results: songs, Total: total}
	c.pages.Add(key, result)
	return result, nil
}

// SearchArtists returns artists matching query.
func (c *Client) SearchArtists(ctx context.Context, query string) ([]domain.Artist, error) {
	var body envelope[searchArtistsData]
	if err := c.get(ctx, "/search/artists", map[string]string{"query": query}, nil, &body); err != nil {
		return nil, err
	}
	return normalizeArtists(body.Data.Results), nil
}

// SongByID looks up a single song.
func (c *Client) SongByID(ctx context.Context, id string) (domain.Song, error) {
	var body envelope[[]songDTO]
	err := c.get(ctx, "/songs/{id}", nil, map[string]string{"id": id}, &body)
	if err != nil {
		return domain.Song{}, err
	}

	songs := normalizeSongs(body.Data)
	if len(songs) == 0 {
		return domain.Song{}, &domain.CatalogError{Endpoint: "/songs/" + id, Err: domain.ErrSongNotFound}
	}
	return songs[0], nil
}

// SongSuggestions returns songs similar to id.
func (c *Client) SongSuggestions(ctx context.Context, id string) ([]domain.Song, error) {
	var body envelope[[]songDTO]
	if err := c.get(ctx, "/songs/{id}/suggestions", nil, map[string]string{"id": id}, &body); err != nil {
		return nil, err
	}
	return normalizeSongs(body.Data), nil
}

// ArtistSongs returns an artist's songs.
func (c *Client) ArtistSongs(ctx context.Context, artistID string) ([]domain.Song, error) {
	var body envelope[artistSongsData]
	if err := c.get(ctx, "/artists/{id}/songs", nil, map[string]string{"id": artistID}, &body); err != nil {
		return nil, err
	}
	return normalizeSongs(body.Data.Songs), nil
}

// InvalidateCache drops all cached search pages.
func (c *Client) InvalidateCache() {
	c.pages.Purge()
}

func (c *Client) get(ctx context.Context, endpoint string, query, path map[string]string, out any) error {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if path != nil {
		req.SetPathParams(path)
	}

	started := time.Now()
	resp, err := req.Get(endpoint)
	if err != nil {
		c.logger.Warn("catalog request failed", slog.String("endpoint", endpoint), slog.String("error", err.Error()))
		return &domain.CatalogError{Endpoint: endpoint, Err: err}
	}

	c.logger.Debug("catalog request",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("took", time.Since(started)))

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return &domain.CatalogError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: domain.ErrSongNotFound}
	case resp.IsError():
		return &domain.CatalogError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: domain.ErrCatalogUnavailable}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &domain.CatalogError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: fmt.Errorf("malformed response: %w", err)}
	}
	if r, ok := out.(interface{ failed() bool }); ok && r.failed() {
		return &domain.CatalogError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: domain.ErrCatalogUnavailable}
	}
	return nil
}

func pageKey(query string, page, limit int) string {
	return fmt.Sprintf("%s|%d|%d", strings.ToLower(strings.TrimSpace(query)), page, limit)
}

var _ ports.Catalog = (*Client)(nil)
