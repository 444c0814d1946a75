package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/tunestream/internal/app"
)

// SearchParams are the arguments of the search command.
type SearchParams struct {
	Query []string `pos:"true" required:"true" help:"Search terms."`
	Page  int      `short:"p" optional:"true" help:"Result page, starting at 0." default:"0"`
}

// SearchCmd prints one page of songs matching a query.
func SearchCmd(open Opener) *cobra.Command {
	return boa.CmdT[SearchParams]{
		Use:         "search",
		Short:       "Search the catalog for songs",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *SearchParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runSearch(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runSearch(ctx context.Context, a *app.Application, params *SearchParams, stdout io.Writer) error {
	query := strings.TrimSpace(strings.Join(params.Query, " "))
	if query == "" {
		return fmt.Errorf("empty search query")
	}
	if params.Page < 0 {
		return fmt.Errorf("page must not be negative")
	}

	result, err := a.Catalog().SearchSongs(ctx, query, params.Page, a.Config().PageSize)
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Fprintf(stdout, "no songs found for %q\n", query)
		return nil
	}

	renderSongs(stdout, result.Results, a.Offline())
	fmt.Fprintf(stdout, "page %d, %d of %d matches\n", params.Page, len(result.Results), result.Total)
	return nil
}

// ArtistParams are the arguments of the artist command.
type ArtistParams struct {
	Query []string `pos:"true" required:"true" help:"Artist name."`
	Songs bool     `short:"s" optional:"true" help:"List the songs of the best match."`
}

// ArtistCmd lists matching artists, and optionally the songs of the best match.
func ArtistCmd(open Opener) *cobra.Command {
	return boa.CmdT[ArtistParams]{
		Use:         "artist",
		Short:       "Search the catalog for artists",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *ArtistParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runArtist(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runArtist(ctx context.Context, a *app.Application, params *ArtistParams, stdout io.Writer) error {
	query := strings.TrimSpace(strings.Join(params.Query, " "))

	artists, err := a.Catalog().SearchArtists(ctx, query)
	if err != nil {
		return err
	}
	if len(artists) == 0 {
		fmt.Fprintf(stdout, "no artists found for %q\n", query)
		return nil
	}

	renderArtists(stdout, artists)
	if !params.Songs {
		return nil
	}

	songs, err := a.Catalog().ArtistSongs(ctx, artists[0].ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nsongs by %s\n", artists[0].Name)
	renderSongs(stdout, songs, a.Offline())
	return nil
}

// SuggestParams are the arguments of the suggest command.
type SuggestParams struct {
	ID string `pos:"true" required:"true" help:"Song id."`
}

// SuggestCmd lists songs similar to a song.
func SuggestCmd(open Opener) *cobra.Command {
	return boa.CmdT[SuggestParams]{
		Use:         "suggest",
		Short:       "List songs similar to a song",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *SuggestParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runSuggest(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runSuggest(ctx context.Context, a *app.Application, params *SuggestParams, stdout io.Writer) error {
	songs, err := a.Catalog().SongSuggestions(ctx, params.ID)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Fprintln(stdout, "no suggestions")
		return nil
	}
	renderSongs(stdout, songs, a.Offline())
	return nil
}
