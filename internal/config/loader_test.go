package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/barbell/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BARBELL_ADDR", ":8080")
			_ = os.Setenv("BARBELL_QUEUE_SIZE", "500")
			_ = os.Setenv("BARBELL_WORKER_COUNT", "16")
			_ = os.Setenv("BARBELL_TEAM_SIZE", "3")
			_ = os.Setenv("BARBELL_POINTS_TABLE", "10,5,1")
			_ = os.Setenv("BARBELL_RATE_LIMIT_RPS", "2.5")
			_ = os.Setenv("BARBELL_SHUTDOWN_TIMEOUT", "3s")

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 3)
				convey.So(cfg.PointsTable, convey.ShouldResemble, []int{10, 5, 1})
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
				convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 3*time.Second)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
points_table: [12, 9, 8]
unknown_label: "n/a"
gender_labels:
  male: "M"
  female: "W"
`)
			_ = os.Setenv("BARBELL_CONFIG", path)

			cfg, err := config.Load()

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.PointsTable, convey.ShouldResemble, []int{12, 9, 8})
				convey.So(cfg.UnknownLabel, convey.ShouldEqual, "n/a")
				convey.So(cfg.GenderLabels["male"], convey.ShouldEqual, "M")
				convey.So(cfg.TeamSize, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, "addr: \":9090\"\nworker_count: 24\nqueue_size: 300\n")
			_ = os.Setenv("BARBELL_CONFIG", path)
			_ = os.Setenv("BARBELL_WORKER_COUNT", "32")

			cfg, err := config.Load()

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("BARBELL_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BARBELL_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("BARBELL_QUEUE_SIZE", "invalid")

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When validation fails", func() {
			cases := map[string]string{
				"BARBELL_ADDR":         "",
				"BARBELL_WORKER_COUNT": "0",
				"BARBELL_QUEUE_SIZE":   "-1",
				"BARBELL_TEAM_SIZE":    "0",
				"BARBELL_POINTS_TABLE": "1,2,3",
				"BARBELL_LOG_FORMAT":   "xml",
			}
			for key, value := range cases {
				_ = os.Setenv(key, value)
				cfg, err := config.Load()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
				_ = os.Unsetenv(key)
			}
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "barbell.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
