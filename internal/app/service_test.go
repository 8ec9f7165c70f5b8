package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/barbell/internal/adapters/repository"
	service "github.com/okian/barbell/internal/app"
	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/scoring"
	"github.com/okian/barbell/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const tid = "spring-open"

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func judging(sub, athleteID string, d model.Discipline, num, weight int, status model.Status, at time.Time) model.JudgingEvent {
	return model.JudgingEvent{
		SubmissionID: sub,
		TournamentID: tid,
		Attempt: model.Attempt{
			AthleteID:      athleteID,
			Discipline:     d,
			AttemptNum:     num,
			DeclaredWeight: intPtr(weight),
			Status:         status,
			UpdatedAt:      at,
		},
	}
}

func startService(opts ...service.Option) (*service.Service, context.Context) {
	svc := service.New(opts...)
	ctx := context.Background()
	So(svc.Start(ctx), ShouldBeNil)
	Reset(func() { _ = svc.Stop(context.Background()) })
	return svc, ctx
}

func register(ctx context.Context, svc *service.Service, id, team string) {
	_, err := svc.RegisterAthlete(ctx, model.Athlete{
		ID:           id,
		TournamentID: tid,
		Name:         "Lifter " + id,
		Team:         strPtr(team),
		Gender:       model.GenderMale,
		WeightClass:  "81",
	})
	So(err, ShouldBeNil)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(100),
		)
		ctx := context.Background()

		Convey("When it is not started", func() {
			_, err := svc.RegisterAthlete(ctx, model.Athlete{Name: "A"})
			So(err, ShouldEqual, service.ErrNotStarted)

			_, err = svc.Standings(ctx, tid)
			So(err, ShouldEqual, service.ErrNotStarted)

			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Athletes(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService()

		Convey("When athletes are registered and one withdraws", func() {
			register(ctx, svc, "a", "Team A")
			register(ctx, svc, "b", "Team B")
			So(svc.RemoveAthlete(ctx, tid, "a"), ShouldBeNil)

			Convey("Then only the remaining athlete is listed", func() {
				athletes, err := svc.Athletes(ctx, tid)
				So(err, ShouldBeNil)
				So(athletes, ShouldHaveLength, 1)
				So(athletes[0].ID, ShouldEqual, "b")
			})

			Convey("Then removing it again is not found", func() {
				So(errors.Is(svc.RemoveAthlete(ctx, tid, "a"), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the same id registers twice", func() {
			register(ctx, svc, "a", "Team A")
			_, err := svc.RegisterAthlete(ctx, model.Athlete{ID: "a", TournamentID: tid, Name: "again"})
			So(errors.Is(err, repository.ErrDuplicateAthlete), ShouldBeTrue)
		})
	})
}

func TestService_ApplyJudging(t *testing.T) {
	Convey("Given a started service with two athletes", t, func() {
		svc, ctx := startService(service.WithEngineOptions(scoring.WithTeamSize(1)))
		register(ctx, svc, "a", "Team A")
		register(ctx, svc, "b", "Team B")

		Convey("When judgements are applied synchronously", func() {
			for _, e := range []model.JudgingEvent{
				judging("s1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0),
				judging("s2", "a", model.CleanJerk, 1, 120, model.StatusSuccess, t0),
				judging("s3", "b", model.Snatch, 1, 105, model.StatusSuccess, t0),
				judging("s4", "b", model.CleanJerk, 1, 110, model.StatusSuccess, t0),
			} {
				outcome, err := svc.ApplyJudging(ctx, e)
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, model.OutcomeApplied)
			}

			Convey("Then standings reflect them", func() {
				st, err := svc.Standings(ctx, tid)
				So(err, ShouldBeNil)
				So(st.WeightClasses, ShouldHaveLength, 1)
				first := st.WeightClasses[0].Athletes[0]
				So(first.Athlete.ID, ShouldEqual, "a")
				So(*first.Total, ShouldEqual, 220)
				So(first.Points, ShouldEqual, 8)
				So(st.Teams[0].Team, ShouldEqual, "Team A")
			})

			Convey("Then replaying a submission id is ignored", func() {
				outcome, err := svc.ApplyJudging(ctx, judging("s1", "a", model.Snatch, 1, 100, model.StatusFail, t0.Add(time.Minute)))
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, model.OutcomeDuplicate)
			})

			Convey("Then an older judgement is stale", func() {
				outcome, err := svc.ApplyJudging(ctx, judging("s9", "a", model.Snatch, 1, 100, model.StatusFail, t0.Add(-time.Minute)))
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, model.OutcomeStale)
			})
		})

		Convey("When the athlete is unknown", func() {
			_, err := svc.ApplyJudging(ctx, judging("s1", "ghost", model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			Convey("Then the submission id can be retried", func() {
				register(ctx, svc, "ghost", "Team G")
				outcome, err := svc.ApplyJudging(ctx, judging("s1", "ghost", model.Snatch, 1, 100, model.StatusSuccess, t0))
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, model.OutcomeApplied)
			})
		})
	})
}

func TestService_SubmitJudging(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(service.WithWorkerCount(2))
		register(ctx, svc, "a", "Team A")

		Convey("When a judgement is submitted", func() {
			dup, err := svc.SubmitJudging(ctx, judging("sub-1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			Convey("Then the workers apply it", func() {
				So(waitFor(func() bool {
					st, err := svc.Standings(ctx, tid)
					return err == nil && st.WeightClasses[0].Athletes[0].BestSnatch != nil
				}), ShouldBeTrue)
			})

			Convey("Then resubmitting the id is a duplicate", func() {
				dup, err := svc.SubmitJudging(ctx, judging("sub-1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
			})
		})

		Convey("When a judgement names an athlete not yet registered", func() {
			dup, err := svc.SubmitJudging(ctx, judging("sub-late", "late", model.CleanJerk, 1, 120, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			Convey("Then the workers reject it and forget its id", func() {
				So(waitFor(func() bool { return svc.GetStats()["seenSubmissions"] == int64(0) }), ShouldBeTrue)

				Convey("And the client can resubmit after registering", func() {
					register(ctx, svc, "late", "Team A")
					dup, err := svc.SubmitJudging(ctx, judging("sub-late", "late", model.CleanJerk, 1, 120, model.StatusSuccess, t0))
					So(err, ShouldBeNil)
					So(dup, ShouldBeFalse)
					So(waitFor(func() bool {
						st, err := svc.Standings(ctx, tid)
						if err != nil {
							return false
						}
						for _, r := range st.WeightClasses[0].Athletes {
							if r.Athlete.ID == "late" && r.BestCJ != nil {
								return true
							}
						}
						return false
					}), ShouldBeTrue)
				})
			})
		})

		Convey("When another tournament reuses a submission id", func() {
			dup, err := svc.SubmitJudging(ctx, judging("sub-1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			other := judging("sub-1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0)
			other.TournamentID = "autumn-open"
			dup, err = svc.SubmitJudging(ctx, other)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		})

		Convey("When the submission is malformed", func() {
			_, err := svc.SubmitJudging(ctx, judging("", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)

			_, err = svc.SubmitJudging(ctx, judging("sub-2", "a", model.Snatch, 4, 100, model.StatusSuccess, t0))
			So(errors.Is(err, repository.ErrInvalidAttempt), ShouldBeTrue)
		})
	})
}

func TestService_StandingsCache(t *testing.T) {
	Convey("Given a started service with a judged athlete", t, func() {
		svc, ctx := startService(service.WithCacheSize(2))
		register(ctx, svc, "a", "Team A")
		_, err := svc.ApplyJudging(ctx, judging("s1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
		So(err, ShouldBeNil)

		Convey("When standings are read twice without changes", func() {
			first, err := svc.Standings(ctx, tid)
			So(err, ShouldBeNil)
			second, err := svc.Standings(ctx, tid)
			So(err, ShouldBeNil)

			Convey("Then the second read is served from the cache", func() {
				So(second, ShouldResemble, first)
				So(svc.GetStats()["cachedStandings"], ShouldEqual, 1)
			})
		})

		Convey("When the tournament changes between reads", func() {
			_, err := svc.Standings(ctx, tid)
			So(err, ShouldBeNil)
			_, err = svc.ApplyJudging(ctx, judging("s2", "a", model.Snatch, 2, 105, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
			st, err := svc.Standings(ctx, tid)
			So(err, ShouldBeNil)

			Convey("Then the new state is computed", func() {
				So(*st.WeightClasses[0].Athletes[0].BestSnatch, ShouldEqual, 105)
				So(svc.GetStats()["cachedStandings"], ShouldEqual, 2)
			})
		})

		Convey("When an unknown tournament is read", func() {
			st, err := svc.Standings(ctx, "nowhere")
			So(err, ShouldBeNil)
			So(st.WeightClasses, ShouldBeEmpty)
			So(st.Teams, ShouldBeEmpty)
		})
	})
}

func TestService_Import(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService()
		snap := model.Snapshot{
			Athletes: []model.Athlete{{ID: "x", Name: "X", Gender: model.GenderFemale, WeightClass: "59"}},
			Attempts: []model.Attempt{{AthleteID: "x", Discipline: model.Snatch, AttemptNum: 1, DeclaredWeight: intPtr(80), Status: model.StatusSuccess, UpdatedAt: t0}},
		}

		Convey("When a snapshot is imported", func() {
			So(svc.Import(ctx, tid, snap), ShouldBeNil)

			st, err := svc.Standings(ctx, tid)
			So(err, ShouldBeNil)
			So(*st.WeightClasses[0].Athletes[0].BestSnatch, ShouldEqual, 80)
		})

		Convey("When the snapshot repeats an attempt key", func() {
			snap.Attempts = append(snap.Attempts, snap.Attempts[0])
			So(errors.Is(svc.Import(ctx, tid, snap), repository.ErrDuplicateAttempt), ShouldBeTrue)
		})
	})
}

func TestService_Export(t *testing.T) {
	Convey("Given a started service with results", t, func() {
		svc, ctx := startService()
		register(ctx, svc, "a", "Team A")
		_, err := svc.ApplyJudging(ctx, judging("s1", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
		So(err, ShouldBeNil)

		Convey("When exporting CSV", func() {
			var buf bytes.Buffer
			So(svc.Export(ctx, tid, service.FormatCSV, &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "\uFEFF")
			So(buf.String(), ShouldContainSubstring, `"Lifter a"`)
		})

		Convey("When exporting XLSX", func() {
			var buf bytes.Buffer
			So(svc.Export(ctx, tid, service.FormatXLSX, &buf), ShouldBeNil)
			So(buf.Bytes()[:2], ShouldResemble, []byte("PK"))
		})

		Convey("When the format is unknown", func() {
			So(errors.Is(svc.Export(ctx, tid, "pdf", &bytes.Buffer{}), service.ErrUnknownFormat), ShouldBeTrue)
		})

		Convey("When rendering the team chart", func() {
			png, err := svc.TeamChart(ctx, tid)
			So(err, ShouldBeNil)
			So(png[:4], ShouldResemble, []byte("\x89PNG"))
		})
	})
}

func TestService_ReceiptStamps(t *testing.T) {
	Convey("Given a service whose clock never advances", t, func() {
		svc, ctx := startService(
			service.WithWorkerCount(8),
			service.WithClock(func() time.Time { return t0 }),
		)
		const lifters = 200
		ids := make([]string, lifters)
		for i := range ids {
			ids[i] = fmt.Sprintf("l%03d", i)
			register(ctx, svc, ids[i], "Team A")
		}

		Convey("When equal lifts arrive in order without updated_at", func() {
			for i, id := range ids {
				dup, err := svc.SubmitJudging(ctx, judging(fmt.Sprintf("s%d", i), id, model.Snatch, 1, 100, model.StatusSuccess, time.Time{}))
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}
			So(waitFor(func() bool { return svc.GetStats()["queueLength"] == 0 }), ShouldBeTrue)

			Convey("Then the snatch ranking follows arrival order", func() {
				var st model.Standings
				So(waitFor(func() bool {
					var err error
					st, err = svc.Standings(ctx, tid)
					if err != nil {
						return false
					}
					for _, r := range st.WeightClasses[0].Athletes {
						if r.SnatchRank == nil {
							return false
						}
					}
					return true
				}), ShouldBeTrue)

				rank := make(map[string]int, lifters)
				for _, r := range st.WeightClasses[0].Athletes {
					rank[r.Athlete.ID] = *r.SnatchRank
				}
				misplaced := 0
				for i, id := range ids {
					if rank[id] != i+1 {
						misplaced++
					}
				}
				So(misplaced, ShouldEqual, 0)
			})
		})
	})
}

func TestService_StopDrainsAfterCancel(t *testing.T) {
	Convey("Given a service started on a context that is later cancelled", t, func() {
		// Every newly stored attempt draws one id.
		var stored atomic.Int64
		startCtx, cancel := context.WithCancel(context.Background())
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(5000),
			service.WithStoreOptions(repository.WithIDGenerator(func() string {
				return fmt.Sprintf("att-%d", stored.Add(1))
			})),
		)
		So(svc.Start(startCtx), ShouldBeNil)
		ctx := context.Background()

		const lifters = 2000
		for i := 0; i < lifters; i++ {
			register(ctx, svc, fmt.Sprintf("l%d", i), "Team A")
		}
		for i := 0; i < lifters; i++ {
			_, err := svc.SubmitJudging(ctx, judging(fmt.Sprintf("s%d", i), fmt.Sprintf("l%d", i), model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
		}

		Convey("When the start context ends before Stop", func() {
			cancel()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then every accepted judgement was applied", func() {
				So(stored.Load(), ShouldEqual, int64(lifters))
			})
		})
	})
}

func TestService_RestartWhileSubmitting(t *testing.T) {
	Convey("Given a service restarted while judgements arrive", t, func() {
		svc, ctx := startService(service.WithWorkerCount(2))
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				_, _ = svc.SubmitJudging(ctx, judging(fmt.Sprintf("s%d", i), "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
			}
		}()
		for i := 0; i < 5; i++ {
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
		}
		<-done

		Convey("Then the service is still usable", func() {
			register(ctx, svc, "a", "Team A")
			dup, err := svc.SubmitJudging(ctx, judging("final", "a", model.Snatch, 1, 100, model.StatusSuccess, t0))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		})
	})
}
