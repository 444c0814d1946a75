// Package cli implements the tunestream subcommands on top of the application services.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/tunestream/internal/app"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Opener creates and starts the application for one command invocation.
type Opener func(ctx context.Context) (*app.Application, error)

// OpenDefault loads configuration from the environment and .env, then starts the application.
func OpenDefault(ctx context.Context) (*app.Application, error) {
	config, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.NewApplication(config)
	if err != nil {
		return nil, err
	}
	if err := application.Startup(ctx); err != nil {
		_ = application.Shutdown()
		return nil, err
	}
	return application, nil
}

// Commands returns every subcommand.
func Commands(open Opener) []*cobra.Command {
	return []*cobra.Command{
		SearchCmd(open),
		ArtistCmd(open),
		SuggestCmd(open),
		PlayCmd(open),
		StatusCmd(open),
		DownloadCmd(open),
		DownloadsCmd(open),
		RmCmd(open),
	}
}

func paramEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

type action func(ctx context.Context, a *app.Application, stdout io.Writer) error

// run executes fn against a started application and exits with its status.
func run(open Opener, fn action) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, open, fn, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, open Opener, fn action, stdout, stderr io.Writer) int {
	application, err := open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "tunestream: %v\n", err)
		return 1
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(stderr, "tunestream: shutdown: %v\n", err)
		}
	}()

	if err := fn(ctx, application, stdout); err != nil {
		fmt.Fprintf(stderr, "tunestream: %v\n", err)
		return 1
	}
	return 0
}

// syncWriter serializes writes from event handlers and the command goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// lookupSongs resolves ids through the catalog, preserving order.
func lookupSongs(ctx context.Context, catalog ports.Catalog, ids []string) ([]domain.Song, error) {
	songs := make([]domain.Song, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			song, err := catalog.SongByID(gctx, id)
			if err != nil {
				return fmt.Errorf("song %s: %w", id, err)
			}
			songs[i] = song
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return songs, nil
}
