// Package main is the tunestream command line entry point.
//
// Build:
//
//	go build -ldflags "-X github.com/tejashwikalptaru/tunestream/internal/app.Version=v1.0.0" -o build/tunestream ./cmd
//
// Run:
//
//	./build/tunestream search arijit
//	./build/tunestream play song-id
package main

import (
	"github.com/GiGurra/boa/pkg/boa"
	"github.com/tejashwikalptaru/tunestream/internal/app"
	"github.com/tejashwikalptaru/tunestream/internal/cli"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "tunestream",
		Short:   "Stream, queue and download music from the catalog",
		Version: app.GetVersionInfo().FullString(),
		SubCmds: cli.Commands(cli.OpenDefault),
	}.Run()
}
