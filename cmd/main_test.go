package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	service "github.com/okian/barbell/internal/app"
	"github.com/okian/barbell/internal/config"
	"github.com/okian/barbell/pkg/logger"
	"github.com/okian/barbell/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("BARBELL_ADDR", ":8080")
			_ = os.Setenv("BARBELL_QUEUE_SIZE", "1000")
			_ = os.Setenv("BARBELL_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("BARBELL_ADDR")
				_ = os.Unsetenv("BARBELL_QUEUE_SIZE")
				_ = os.Unsetenv("BARBELL_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation from configuration", func() {
			svc := service.New(service.OptionsFromConfig(config.New())...)
			convey.So(svc, convey.ShouldNotBeNil)

			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldEqual, false)
			convey.So(stats["cacheSize"], convey.ShouldEqual, config.New().CacheSize)
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := service.New()

			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When testing service metrics update on a running service", func() {
			svc := service.New(service.WithWorkerCount(1))
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(context.Background()) }()

			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.WorkerCount = 2
		svc := service.New(service.OptionsFromConfig(cfg)...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		srv := httptest.NewServer(newRouter(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("Then the API and its documentation share one router", func() {
			for _, path := range []string{"/healthz", "/stats", "/api-docs", "/openapi.yaml", "/tournaments/t1/results"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then an athlete can be registered and exported", func() {
			resp, err := http.Post(srv.URL+"/tournaments/t1/athletes", "application/json",
				strings.NewReader(`{"name":"Ann","gender":"female","weight_class":"59"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			resp, err = http.Get(srv.URL + "/tournaments/t1/results.csv")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(resp.Header.Get("Content-Type"), convey.ShouldStartWith, "text/csv")
		})

		convey.Convey("Then a synchronous judgement reports its outcome", func() {
			resp, err := http.Post(srv.URL+"/tournaments/t2/athletes", "application/json",
				strings.NewReader(`{"id":"bo","name":"Bo","gender":"male","weight_class":"81"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			submit := func(sub, at string) string {
				body := `{"submission_id":"` + sub + `","athlete_id":"bo","type":"snatch","attempt_num":1,"declared_weight":120,"status":"success","updated_at":"` + at + `"}`
				resp, err := http.Post(srv.URL+"/tournaments/t2/attempts?sync=true", "application/json", strings.NewReader(body))
				convey.So(err, convey.ShouldBeNil)
				defer resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var ack struct {
					Status string `json:"status"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&ack), convey.ShouldBeNil)
				return ack.Status
			}
			convey.So(submit("j1", "2024-06-01T10:00:00Z"), convey.ShouldEqual, "applied")
			convey.So(submit("j2", "2024-06-01T09:00:00Z"), convey.ShouldEqual, "stale")
			convey.So(submit("j1", "2024-06-01T10:00:00Z"), convey.ShouldEqual, "duplicate")
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("BARBELL_ADDR", "")
			defer func() { _ = os.Unsetenv("BARBELL_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the listen address is unusable", func() {
			cfg := config.New()
			cfg.Addr = "256.0.0.1:bad"
			cfg.ShutdownTimeout = time.Second

			convey.Convey("Then run returns the listen error", func() {
				err := run(context.Background(), cfg, logger.Get())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
