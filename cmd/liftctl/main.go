// Command liftctl computes, exports, watches and simulates weightlifting
// meets from snapshot files, and replays them against a running server.
package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/okian/barbell/internal/config"
	"github.com/okian/barbell/pkg/logger"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		os.Stderr.WriteString("liftctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// env carries what every command needs once Before has run.
type env struct {
	cfg *config.Config
	log logger.Logger
}

func newApp(out, errOut io.Writer) *cli.App {
	e := &env{}
	return &cli.App{
		Name:      "liftctl",
		Usage:     "weightlifting meet results from the command line",
		Writer:    out,
		ErrWriter: errOut,
		// Settings come from BARBELL_CONFIG and BARBELL_* like the server's.
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(errOut)); err != nil {
				return err
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				_ = logger.SetLevelString("info")
			}
			e.cfg = cfg
			e.log = logger.Get().Named("liftctl")
			return nil
		},
		Commands: []*cli.Command{
			computeCommand(e),
			exportCommand(e),
			watchCommand(e),
			simulateCommand(e),
			replayCommand(e),
		},
	}
}
