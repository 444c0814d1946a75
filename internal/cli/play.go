package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/tunestream/internal/app"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// PlayParams are the arguments of the play command.
type PlayParams struct {
	IDs     []string `pos:"true" optional:"true" help:"Song ids to play; ids after the first are queued. Without ids the last played song resumes."`
	Seconds int      `short:"t" optional:"true" help:"Stop after this many seconds, 0 plays until nothing follows." default:"0"`
	Shuffle bool     `short:"s" optional:"true" help:"Shuffle the song list."`
}

// PlayCmd plays songs through the session and stays up until playback ends,
// the time limit passes or the process is interrupted.
func PlayCmd(open Opener) *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Play songs, or resume the last played song",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			run(open, func(ctx context.Context, a *app.Application, stdout io.Writer) error {
				return runPlay(ctx, a, params, stdout)
			})
		},
	}.ToCobra()
}

func runPlay(ctx context.Context, a *app.Application, params *PlayParams, stdout io.Writer) error {
	out := &syncWriter{w: stdout}
	session := a.Session()
	bus := a.EventBus()

	finished := make(chan struct{})
	var finishOnce sync.Once
	done := func() { finishOnce.Do(func() { close(finished) }) }

	// set between a finished song and the start of the next one
	var advancing atomic.Bool
	subs := []domain.SubscriptionID{
		bus.Subscribe(domain.EventSongStarted, func(e domain.Event) {
			advancing.Store(false)
			started := e.(domain.SongStartedEvent)
			source := "stream"
			if started.Local {
				source = "offline"
			}
			fmt.Fprintf(out, "▶ %s (%s)\n", nowPlaying(started.Song), source)
		}),
		bus.Subscribe(domain.EventPlaybackUnavailable, func(e domain.Event) {
			fmt.Fprintf(out, "✗ %s has no playable audio\n", e.(domain.PlaybackUnavailableEvent).Song.Name)
			// auto-advance stops at a song it cannot play
			if advancing.Load() {
				done()
			}
		}),
		bus.Subscribe(domain.EventPlaybackFinished, func(e domain.Event) {
			if e.(domain.PlaybackFinishedEvent).Next {
				advancing.Store(true)
				return
			}
			done()
		}),
	}
	defer func() {
		for _, id := range subs {
			bus.Unsubscribe(id)
		}
	}()

	if params.Shuffle {
		session.SetShuffleEnabled(true)
	}

	if len(params.IDs) == 0 {
		if session.State().CurrentSong == nil {
			return errors.New("nothing to resume, pass a song id")
		}
		if err := session.TogglePlay(ctx); err != nil {
			return err
		}
	} else {
		songs, err := lookupSongs(ctx, a.Catalog(), params.IDs)
		if err != nil {
			return err
		}
		// the ids replace any queue restored from the last session
		session.ClearQueue()
		if err := session.SetCurrentSong(ctx, songs[0]); err != nil {
			return err
		}
		for _, song := range songs[1:] {
			session.AddToQueue(song)
		}
	}

	if !session.State().IsPlaying {
		return nil
	}

	var deadline <-chan time.Time
	if params.Seconds > 0 {
		timer := time.NewTimer(time.Duration(params.Seconds) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
	case <-deadline:
	case <-finished:
		fmt.Fprintln(out, "finished")
	}
	return nil
}
