package domain

import (
	"strings"
)

// AudioQualityPreference is the order in which audio variants are chosen.
var AudioQualityPreference = []string{"320kbps", "160kbps", "96kbps", "48kbps", "12kbps"}

// PreferredImageQuality is the artwork size used for list rows and notifications.
const PreferredImageQuality = "150x150"

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// BestAudioURL picks the highest preferred quality variant, falling back to the first one.
// Returns false when the song has no usable audio.
func BestAudioURL(variants []MediaVariant) (string, bool) {
	if len(variants) == 0 {
		return "", false
	}

	for _, quality := range AudioQualityPreference {
		for _, v := range variants {
			if v.Quality == quality {
				return v.URL, v.URL != ""
			}
		}
	}

	first := variants[0].URL
	return first, first != ""
}

// BestImageURL returns the 150x150 artwork if present, otherwise the first variant.
func BestImageURL(variants []MediaVariant) string {
	for _, v := range variants {
		if v.Quality == PreferredImageQuality {
			return v.URL
		}
	}
	if len(variants) > 0 {
		return variants[0].URL
	}
	return ""
}

// PrimaryArtists joins the primary artist names, or "Unknown Artist".
func PrimaryArtists(song Song) string {
	if len(song.Artists.Primary) == 0 {
		return unknownArtist
	}

	names := make([]string, 0, len(song.Artists.Primary))
	for _, a := range song.Artists.Primary {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return unknownArtist
	}
	return strings.Join(names, ", ")
}

// PrimaryArtistName returns the first primary artist's name, or "" if none.
func PrimaryArtistName(song Song) string {
	for _, a := range song.Artists.Primary {
		if name := strings.TrimSpace(a.Name); name != "" {
			return name
		}
	}
	return ""
}

// ArtistIDs returns the IDs of the primary artists that have one.
func ArtistIDs(song Song) []string {
	ids := make([]string, 0, len(song.Artists.Primary))
	for _, a := range song.Artists.Primary {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// AlbumName returns the album name, or "Unknown Album".
func AlbumName(song Song) string {
	if song.Album == nil || song.Album.Name == "" {
		return unknownAlbum
	}
	return song.Album.Name
}
