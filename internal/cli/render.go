package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// offlineLookup reports whether a song has a local copy.
type offlineLookup interface {
	IsDownloaded(songID string) bool
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSongs(out io.Writer, songs []domain.Song, offline offlineLookup) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "ID", "Title", "Artists", "Album", "Length", "Offline"})
	for i, song := range songs {
		t.AppendRow(table.Row{
			i + 1,
			song.ID,
			song.Name,
			domain.PrimaryArtists(song),
			domain.AlbumName(song),
			formatLength(song.DurationSeconds),
			offlineMark(offline, song.ID),
		})
	}
	t.Render()
}

func renderArtists(out io.Writer, artists []domain.Artist) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name"})
	for _, artist := range artists {
		t.AppendRow(table.Row{artist.ID, artist.Name})
	}
	t.Render()
}

func renderDownloads(out io.Writer, entries []domain.DownloadEntry) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Artists", "Type", "Path"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.Song.ID,
			entry.Song.Name,
			domain.PrimaryArtists(entry.Song),
			entry.FileType,
			entry.LocalURI,
		})
	}
	t.Render()
}

func offlineMark(offline offlineLookup, songID string) string {
	if offline != nil && offline.IsDownloaded(songID) {
		return "✓"
	}
	return ""
}

func formatLength(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func nowPlaying(song domain.Song) string {
	return fmt.Sprintf("%s – %s", song.Name, domain.PrimaryArtists(song))
}
