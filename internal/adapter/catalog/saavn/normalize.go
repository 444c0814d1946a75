package saavn

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"golang.org/x/net/html"
)

// normalizeSong converts either payload shape into the canonical domain.Song.
func normalizeSong(dto songDTO) domain.Song {
	song := domain.Song{
		ID:              dto.ID,
		Name:            decodeText(lo.Ternary(dto.Name != "", dto.Name, dto.Title)),
		Images:          normalizeVariants(dto.Image),
		Audio:           normalizeVariants(dto.Download),
		DurationSeconds: int(dto.Duration),
		Language:        dto.Language,
	}

	if dto.Album != nil && (dto.Album.ID != "" || dto.Album.Name != "") {
		song.Album = &domain.Album{
			ID:   dto.Album.ID,
			Name: decodeText(dto.Album.Name),
			URL:  dto.Album.URL,
		}
	}

	switch dto.shape() {
	case shapeCurrent:
		song.Artists = domain.ArtistCredits{
			Primary:  normalizeArtists(dto.Artists.Primary),
			Featured: normalizeArtists(dto.Artists.Featured),
		}
	case shapeLegacy:
		song.Artists = domain.ArtistCredits{
			Primary:  splitArtists(dto.PrimaryArtists, dto.PrimaryArtistsID),
			Featured: splitArtists(dto.FeaturedArtists, dto.FeaturedArtistsID),
		}
	}

	return song
}

func normalizeSongs(dtos []songDTO) []domain.Song {
	songs := make([]domain.Song, 0, len(dtos))
	for _, dto := range dtos {
		if dto.ID == "" {
			continue
		}
		songs = append(songs, normalizeSong(dto))
	}
	return songs
}

func normalizeArtist(dto artistDTO) domain.Artist {
	return domain.Artist{
		ID:     dto.ID,
		Name:   decodeText(lo.Ternary(dto.Name != "", dto.Name, dto.Title)),
		Images: normalizeVariants(dto.Image),
	}
}

func normalizeArtists(dtos []artistDTO) []domain.Artist {
	if len(dtos) == 0 {
		return nil
	}
	return lo.Map(dtos, func(dto artistDTO, _ int) domain.Artist {
		return normalizeArtist(dto)
	})
}

// splitArtists pairs a legacy comma separated name list with its parallel id list.
func splitArtists(names, ids string) []domain.Artist {
	nameList := splitList(decodeText(names))
	if len(nameList) == 0 {
		return nil
	}
	idList := splitList(ids)

	artists := make([]domain.Artist, len(nameList))
	for i, name := range nameList {
		artists[i].Name = name
		if i < len(idList) {
			artists[i].ID = idList[i]
		}
	}
	return artists
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	return lo.Compact(lo.Map(parts, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

func normalizeVariants(list variantList) []domain.MediaVariant {
	variants := make([]domain.MediaVariant, 0, len(list))
	for _, v := range list {
		url := v.location()
		if url == "" {
			continue
		}
		variants = append(variants, domain.MediaVariant{Quality: v.Quality, URL: url})
	}
	if len(variants) == 0 {
		return nil
	}
	return variants
}

// decodeText resolves HTML entities such as &amp; and &quot; in catalog strings.
func decodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
