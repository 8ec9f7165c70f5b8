package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	service "github.com/okian/barbell/internal/app"
	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/scoring"
	"github.com/okian/barbell/internal/domain/types"
	"github.com/okian/barbell/internal/export"
	"github.com/okian/barbell/internal/simulate"
	"github.com/okian/barbell/internal/snapshotfile"
	"github.com/okian/barbell/pkg/logger"
)

var errUnknownOutput = errors.New("unknown output type")

func snapshotFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "snapshot",
		Aliases:  []string{"s"},
		Usage:    "meet snapshot file (YAML or JSON)",
		Required: true,
	}
}

func (e *env) engine() *scoring.Engine {
	return scoring.New(service.EngineOptions(e.cfg)...)
}

func computeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "compute",
		Usage: "print the standings of a snapshot as JSON",
		Flags: []cli.Flag{snapshotFlag()},
		Action: func(c *cli.Context) error {
			snap, err := snapshotfile.Load(c.String("snapshot"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(types.FromStandings(e.engine().Compute(snap)))
		},
	}
}

func exportCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the results of a snapshot as .csv, .xlsx or a .png team chart",
		Flags: []cli.Flag{
			snapshotFlag(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file; the extension picks the format", Required: true},
		},
		Action: func(c *cli.Context) error {
			snap, err := snapshotfile.Load(c.String("snapshot"))
			if err != nil {
				return err
			}
			out := c.String("out")
			standings := e.engine().Compute(snap)
			if err := writeExport(out, standings, export.New(service.ExportOptions(e.cfg)...)); err != nil {
				return err
			}
			e.log.Info(c.Context, "export written", logger.String("path", out), logger.Int("athletes", len(snap.Athletes)))
			return nil
		},
	}
}

func writeExport(path string, s model.Standings, exp *export.Exporter) (err error) {
	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = func(w io.Writer) error { return export.WriteCSV(w, exp.Rows(s)) }
	case ".xlsx":
		write = func(w io.Writer) error { return export.WriteXLSX(w, exp.Rows(s)) }
	case ".png":
		write = func(w io.Writer) error {
			png, err := export.TeamChart(s.Teams)
			if err != nil {
				return err
			}
			_, err = w.Write(png)
			return err
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownOutput, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func watchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "recompute and print the standings whenever the snapshot file changes",
		Flags: []cli.Flag{snapshotFlag()},
		Action: func(c *cli.Context) error {
			engine := e.engine()
			return snapshotfile.Watch(c.Context, c.String("snapshot"), func(snap model.Snapshot) {
				start := time.Now()
				s := engine.Compute(snap)
				e.log.Info(c.Context, "standings recomputed",
					logger.Int("athletes", len(snap.Athletes)),
					logger.Int("attempts", len(snap.Attempts)),
					logger.Duration("took", time.Since(start)),
				)
				printStandings(c.App.Writer, s)
			})
		},
	}
}

// printStandings writes a compact leaderboard: each cohort's placings,
// then the team table.
func printStandings(w io.Writer, s model.Standings) {
	for _, wc := range s.WeightClasses {
		fmt.Fprintf(w, "%s %s\n", wc.Gender, export.ClassLabel(wc.WeightClass))
		for i := range wc.Athletes {
			r := &wc.Athletes[i]
			fmt.Fprintf(w, "  %3s  %-28s %4s %4s %4s  %2d pts\n",
				orDash(r.TotalRank), r.Athlete.Name, orDash(r.BestSnatch), orDash(r.BestCJ), orDash(r.Total), r.Points)
		}
	}
	if len(s.Teams) > 0 {
		fmt.Fprintln(w, "teams")
		for _, t := range s.Teams {
			fmt.Fprintf(w, "  %-32s %4d\n", t.Team, t.TotalPoints)
		}
	}
}

func orDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func simulateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "generate a fake meet snapshot",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "athletes", Value: 40, Usage: "number of athletes"},
			&cli.IntFlag{Name: "teams", Value: 6, Usage: "number of teams"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "generator seed"},
			&cli.Float64Flag{Name: "progress", Value: 1, Usage: "share of attempts already judged"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (.yaml or .json)", Required: true},
		},
		Action: func(c *cli.Context) error {
			snap := simulate.Generate(simulate.MeetConfig{
				Athletes: c.Int("athletes"),
				Teams:    c.Int("teams"),
				Seed:     c.Uint64("seed"),
				Progress: c.Float64("progress"),
			})
			if err := snapshotfile.Save(c.String("out"), snap); err != nil {
				return err
			}
			e.log.Info(c.Context, "meet generated",
				logger.String("path", c.String("out")),
				logger.Int("athletes", len(snap.Athletes)),
				logger.Int("attempts", len(snap.Attempts)),
			)
			return nil
		},
	}
}

func replayCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "submit a snapshot to a running server as judgements and verify its standings",
		Flags: []cli.Flag{
			snapshotFlag(),
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "server base URL"},
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Value: "replay", Usage: "tournament id to replace"},
			&cli.IntFlag{Name: "workers", Value: 8, Usage: "concurrent submitters"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "per-request timeout"},
			&cli.DurationFlag{Name: "settle", Value: 30 * time.Second, Usage: "how long to wait for the server to converge"},
		},
		Action: func(c *cli.Context) error {
			snap, err := snapshotfile.Load(c.String("snapshot"))
			if err != nil {
				return err
			}
			stats, err := simulate.Replay(c.Context, simulate.ReplayConfig{
				BaseURL:      strings.TrimRight(c.String("url"), "/"),
				TournamentID: c.String("tournament"),
				Workers:      c.Int("workers"),
				Timeout:      c.Duration("timeout"),
				Settle:       c.Duration("settle"),
				Engine:       service.EngineOptions(e.cfg),
			}, snap)
			fmt.Fprintf(c.App.Writer, "athletes=%d submitted=%d accepted=%d duplicate=%d throttled=%d failed=%d duration=%s\n",
				stats.Athletes, stats.Submitted, stats.Accepted, stats.Duplicate, stats.Throttled, stats.Failed, stats.Duration)
			return err
		},
	}
}
