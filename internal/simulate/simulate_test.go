package simulate_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/barbell/internal/adapters/http/api"
	service "github.com/okian/barbell/internal/app"
	"github.com/okian/barbell/internal/domain/dedupe"
	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/simulate"
	"github.com/okian/barbell/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a meet configuration", t, func() {
		cfg := simulate.MeetConfig{Athletes: 40, Teams: 4, Seed: 7}

		Convey("When a meet is generated", func() {
			snap := simulate.Generate(cfg)

			Convey("Then every athlete has three attempts per lift", func() {
				So(snap.Athletes, ShouldHaveLength, 40)
				So(snap.Attempts, ShouldHaveLength, 40*2*model.MaxAttempts)
				So(dedupe.CheckAttempts(snap.Attempts), ShouldBeNil)
			})

			Convey("Then athletes are in standard classes with unique lots", func() {
				lots := map[int]bool{}
				teams := map[string]bool{}
				for _, a := range snap.Athletes {
					So(model.IsStandardClass(a.Gender, a.WeightClass), ShouldBeTrue)
					So(a.LotNumber, ShouldNotBeNil)
					So(lots[*a.LotNumber], ShouldBeFalse)
					lots[*a.LotNumber] = true
					if a.Team != nil {
						teams[*a.Team] = true
					}
				}
				So(len(teams), ShouldBeBetweenOrEqual, 1, 4)
			})

			Convey("Then every attempt validates", func() {
				for i := range snap.Attempts {
					So(snap.Attempts[i].Validate(), ShouldBeNil)
					So(snap.Attempts[i].Status, ShouldNotEqual, model.StatusPending)
				}
			})

			Convey("Then the same seed reproduces the meet", func() {
				So(cmp.Diff(snap, simulate.Generate(cfg)), ShouldBeEmpty)
			})

			Convey("Then a different seed does not", func() {
				cfg.Seed = 8
				So(cmp.Diff(snap, simulate.Generate(cfg)), ShouldNotBeEmpty)
			})
		})

		Convey("When the meet is half way through", func() {
			cfg.Progress = 0.5
			snap := simulate.Generate(cfg)

			Convey("Then some attempts are still pending", func() {
				pending := 0
				for _, a := range snap.Attempts {
					if a.Status == model.StatusPending {
						pending++
					}
				}
				So(pending, ShouldBeGreaterThan, 0)
				So(pending, ShouldBeLessThan, len(snap.Attempts))
			})
		})
	})
}

func TestReplay(t *testing.T) {
	Convey("Given a running results service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(4))
		So(svc.Start(ctx), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc, svc).Handler(ctx))
		Reset(func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		})

		Convey("When a generated meet is replayed against it", func() {
			snap := simulate.Generate(simulate.MeetConfig{Athletes: 25, Teams: 3, Seed: 42})
			stats, err := simulate.Replay(ctx, simulate.ReplayConfig{
				BaseURL:      srv.URL,
				TournamentID: "replayed",
				Workers:      4,
				Settle:       5 * time.Second,
			}, snap)

			Convey("Then every judgement is accepted and the standings agree", func() {
				So(err, ShouldBeNil)
				So(stats.Athletes, ShouldEqual, 25)
				So(stats.Accepted, ShouldEqual, int64(len(snap.Attempts)))
				So(stats.Failed, ShouldEqual, int64(0))
			})

			Convey("Then replaying again only finds duplicates", func() {
				stats, err := simulate.Replay(ctx, simulate.ReplayConfig{
					BaseURL:      srv.URL,
					TournamentID: "replayed",
					Workers:      2,
					Settle:       time.Second,
				}, snap)
				So(stats.Duplicate, ShouldEqual, int64(len(snap.Attempts)))
				// The roster import wiped the attempts and the duplicates
				// never reapply them.
				So(errors.Is(err, simulate.ErrMismatch), ShouldBeTrue)
			})
		})

		Convey("When the service is unreachable", func() {
			_, err := simulate.Replay(ctx, simulate.ReplayConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, model.Snapshot{})
			So(err, ShouldNotBeNil)
		})
	})
}
