package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/tunestream/internal/app"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DownloadParams are the arguments of the download command.
type DownloadParams struct {
	IDs      []string `pos:"true" required:"true" help:"Song ids to download."`
	Parallel int      `short:"j" optional:"true" help:"Number of simultaneous downloads." default:"3"`
}

// DownloadCmd stores songs for offline playback. It fails if any download fails.
func DownloadCmd(open Opener) *cobra.Command {
	return boa.CmdT[DownloadParams]{
		Use:         "download",
		Short:       "Download songs for offline playback",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *DownloadParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runDownload(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runDownload(ctx context.Context, a *app.Application, params *DownloadParams, stdout io.Writer) error {
	songs, err := lookupSongs(ctx, a.Catalog(), params.IDs)
	if err != nil {
		return err
	}

	offline := a.Offline()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, params.Parallel))
	for _, song := range songs {
		g.Go(func() error {
			offline.DownloadSong(gctx, song)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, song := range songs {
		status := offline.Status(song.ID)
		if status.State == domain.DownloadFailed {
			failed++
			fmt.Fprintf(stdout, "✗ %s: %s\n", song.ID, status.Error)
			continue
		}
		path, _ := offline.LocalURI(song.ID)
		fmt.Fprintf(stdout, "✓ %s → %s\n", nowPlaying(song), path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(songs))
	}
	return nil
}

// DownloadsCmd lists the downloaded songs.
func DownloadsCmd(open Opener) *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "downloads",
		Short: "List downloaded songs",
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			run(open, runDownloads)
		},
	}.ToCobra()
}

func runDownloads(_ context.Context, a *app.Application, stdout io.Writer) error {
	entries := a.Offline().Downloads()
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No downloads")
		return nil
	}
	renderDownloads(stdout, entries)
	fmt.Fprintf(stdout, "%d songs in %s\n", len(entries), a.Offline().Dir())
	return nil
}

// RmParams are the arguments of the rm command.
type RmParams struct {
	IDs []string `pos:"true" required:"true" help:"Song ids to remove from offline storage."`
}

// RmCmd deletes downloaded songs.
func RmCmd(open Opener) *cobra.Command {
	return boa.CmdT[RmParams]{
		Use:         "rm",
		Short:       "Remove downloaded songs",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *RmParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runRm(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runRm(ctx context.Context, a *app.Application, params *RmParams, stdout io.Writer) error {
	offline := a.Offline()

	missing := 0
	for _, id := range params.IDs {
		if !offline.IsDownloaded(id) {
			missing++
			fmt.Fprintf(stdout, "%s is not downloaded\n", id)
			continue
		}
		offline.RemoveDownload(ctx, id)
		fmt.Fprintf(stdout, "removed %s\n", id)
	}

	if missing > 0 {
		return fmt.Errorf("%d of %d songs were not downloaded", missing, len(params.IDs))
	}
	return nil
}
