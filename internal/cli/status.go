package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/tunestream/internal/app"
)

// StatusCmd prints the session restored from the last run.
func StatusCmd(open Opener) *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "status",
		Short: "Show the restored session: last played song, queue and history",
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			run(open, runStatus)
		},
	}.ToCobra()
}

func runStatus(_ context.Context, a *app.Application, stdout io.Writer) error {
	state := a.Session().State()

	if state.CurrentSong == nil {
		fmt.Fprintln(stdout, "Nothing played yet")
	} else {
		fmt.Fprintf(stdout, "Last played: %s\n", nowPlaying(*state.CurrentSong))
	}

	if len(state.Queue) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
	} else {
		fmt.Fprintln(stdout, "\nQueue")
		renderSongs(stdout, state.Queue, a.Offline())
	}

	if len(state.RecentlyPlayed) > 0 {
		fmt.Fprintln(stdout, "\nRecently played")
		renderSongs(stdout, state.RecentlyPlayed, a.Offline())
	}
	return nil
}
