package saavn

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The catalog has served two song shapes over time. The current one carries
// structured artist credits; the legacy one flattens them into strings.
type payloadShape int

const (
	shapeLegacy payloadShape = iota
	shapeCurrent
)

type envelope[T any] struct {
	Success *bool `json:"success"`
	Data    T     `json:"data"`
}

func (e *envelope[T]) failed() bool {
	return e.Success != nil && !*e.Success
}

type searchSongsData struct {
	Total   *int      `json:"total"`
	Results []songDTO `json:"results"`
}

type searchArtistsData struct {
	Total   *int        `json:"total"`
	Results []artistDTO `json:"results"`
}

type artistSongsData struct {
	Total int       `json:"total"`
	Songs []songDTO `json:"songs"`
}

type songDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Title    string      `json:"title"`
	Language string      `json:"language"`
	Duration flexInt     `json:"duration"`
	Album    *albumDTO   `json:"album"`
	Image    variantList `json:"image"`
	Download variantList `json:"downloadUrl"`

	// current shape
	Artists *artistCreditsDTO `json:"artists"`

	// legacy shape
	PrimaryArtists    string `json:"primaryArtists"`
	PrimaryArtistsID  string `json:"primaryArtistsId"`
	FeaturedArtists   string `json:"featuredArtists"`
	FeaturedArtistsID string `json:"featuredArtistsId"`
}

func (s songDTO) shape() payloadShape {
	if s.Artists != nil {
		return shapeCurrent
	}
	return shapeLegacy
}

type artistCreditsDTO struct {
	Primary  []artistDTO `json:"primary"`
	Featured []artistDTO `json:"featured"`
	All      []artistDTO `json:"all"`
}

type artistDTO struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Title string      `json:"title"`
	Role  string      `json:"role"`
	Image variantList `json:"image"`
}

type albumDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// variantDTO is one media rendition. Older payloads use "link" instead of "url".
type variantDTO struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Link    string `json:"link"`
}

func (v variantDTO) location() string {
	if v.URL != "" {
		return v.URL
	}
	return v.Link
}

// variantList accepts either an array of variants or a bare URL string.
type variantList []variantDTO

func (l *variantList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		if url == "" {
			*l = nil
			return nil
		}
		*l = variantList{{URL: url}}
		return nil
	}

	var items []variantDTO
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// flexInt accepts numbers, numeric strings and null.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*n = 0
			return nil
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// unparseable durations are treated as unknown
		*n = 0
		return nil
	}
	*n = flexInt(f)
	return nil
}
