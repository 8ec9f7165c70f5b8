package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/barbell/internal/adapters/mq/queue"
	worker "github.com/okian/barbell/internal/adapters/mq/worker"
	model "github.com/okian/barbell/internal/domain/model"
	logging "github.com/okian/barbell/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockUpdater keeps the newest attempt per key, like the real store.
type mockUpdater struct {
	mu       sync.Mutex
	attempts map[model.AttemptKey]model.Attempt
	errors   map[string]error
	delay    time.Duration
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{
		attempts: make(map[model.AttemptKey]model.Attempt),
		errors:   make(map[string]error),
	}
}

func (m *mockUpdater) UpsertAttempt(_ context.Context, _ string, a model.Attempt) (bool, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.errors[a.AthleteID]; ok {
		return false, err
	}
	if prev, ok := m.attempts[a.Key()]; ok && prev.UpdatedAt.After(a.UpdatedAt) {
		return false, nil
	}
	m.attempts[a.Key()] = a
	return true, nil
}

func (m *mockUpdater) setError(athleteID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[athleteID] = err
}

func (m *mockUpdater) get(key model.AttemptKey) (model.Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[key]
	return a, ok
}

func (m *mockUpdater) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func event(sub, athleteID string, num int, status model.Status, at time.Time) model.JudgingEvent {
	w := 100
	return model.JudgingEvent{
		SubmissionID: sub,
		TournamentID: "t1",
		Attempt: model.Attempt{
			AthleteID:      athleteID,
			Discipline:     model.Snatch,
			AttemptNum:     num,
			DeclaredWeight: &w,
			Status:         status,
			UpdatedAt:      at,
		},
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestApply(t *testing.T) {
	convey.Convey("Given an updater", t, func() {
		updater := newMockUpdater()
		ctx := context.Background()

		convey.Convey("When a newer judgement arrives", func() {
			applied, err := worker.Apply(ctx, updater, event("s1", "a", 1, model.StatusSuccess, t0))

			convey.Convey("Then it is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applied, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an older judgement arrives", func() {
			_, _ = worker.Apply(ctx, updater, event("s1", "a", 1, model.StatusSuccess, t0.Add(time.Minute)))
			applied, err := worker.Apply(ctx, updater, event("s2", "a", 1, model.StatusFail, t0))

			convey.Convey("Then it is reported stale", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applied, convey.ShouldBeFalse)
				stored, _ := updater.get(model.AttemptKey{AthleteID: "a", Discipline: model.Snatch, AttemptNum: 1})
				convey.So(stored.Status, convey.ShouldEqual, model.StatusSuccess)
			})
		})

		convey.Convey("When the updater fails", func() {
			boom := errors.New("boom")
			updater.setError("a", boom)
			_, err := worker.Apply(ctx, updater, event("s1", "a", 1, model.StatusSuccess, t0))

			convey.Convey("Then the error is returned", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		updater := newMockUpdater()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, updater,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Named("custom")),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a worker has a failure handler", func() {
			failed := make(chan string, 1)
			w := worker.NewInMemoryWorker(q, updater, worker.WithFailureHandler(func(_ context.Context, e worker.Event, err error) {
				if err != nil {
					failed <- e.SubmissionID
				}
			}))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			updater.setError("bad", errors.New("update error"))
			_ = q.Enqueue(ctx, event("s9", "bad", 1, model.StatusFail, t0))

			convey.Convey("Then it hears about the failed submission", func() {
				select {
				case id := <-failed:
					convey.So(id, convey.ShouldEqual, "s9")
				case <-time.After(2 * time.Second):
					convey.So("no failure reported", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, updater)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And when processing judging events", func() {
				_ = q.Enqueue(ctx, event("s1", "a", 1, model.StatusSuccess, t0))

				convey.Convey("Then the attempt reaches the store", func() {
					key := model.AttemptKey{AthleteID: "a", Discipline: model.Snatch, AttemptNum: 1}
					convey.So(waitFor(func() bool { _, ok := updater.get(key); return ok }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when an update fails", func() {
				updater.setError("bad", errors.New("update error"))
				_ = q.Enqueue(ctx, event("s1", "bad", 1, model.StatusSuccess, t0))
				_ = q.Enqueue(ctx, event("s2", "good", 1, model.StatusSuccess, t0))

				convey.Convey("Then the worker keeps going", func() {
					key := model.AttemptKey{AthleteID: "good", Discipline: model.Snatch, AttemptNum: 1}
					convey.So(waitFor(func() bool { _, ok := updater.get(key); return ok }), convey.ShouldBeTrue)
					convey.So(updater.len(), convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new worker pool", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		updater := newMockUpdater()

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, updater)

			convey.Convey("Then it defaults to at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When processing many events and shutting down", func() {
			pool := worker.NewPool(4, q, updater)
			ctx := context.Background()
			pool.Start(ctx)

			for i := 0; i < 100; i++ {
				ev := event(fmt.Sprintf("s%d", i), fmt.Sprintf("a%d", i), 1, model.StatusSuccess, t0)
				convey.So(q.Enqueue(ctx, ev), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained before the workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updater.len(), convey.ShouldEqual, 100)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the drain outlives the deadline", func() {
			updater.delay = 50 * time.Millisecond
			pool := worker.NewPool(1, q, updater)
			pool.Start(context.Background())
			for i := 0; i < 20; i++ {
				_ = q.Enqueue(context.Background(), event(fmt.Sprintf("s%d", i), "a", i%3+1, model.StatusFail, t0))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then shutdown reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}
