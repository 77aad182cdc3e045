package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/cragboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "csv")
				convey.So(cfg.MilestoneLabel, convey.ShouldEqual, "Bonus")
				convey.So(len(cfg.Routes), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CRAGBOARD_ADDR", ":8080")
			_ = os.Setenv("CRAGBOARD_STORE_BACKEND", "badger")
			_ = os.Setenv("CRAGBOARD_BADGER_PATH", "/tmp/cragboard")
			_ = os.Setenv("CRAGBOARD_MILESTONE_LABEL", "Zone")
			_ = os.Setenv("CRAGBOARD_ROUTES", "M1, M2 ,M3")
			_ = os.Setenv("CRAGBOARD_BROADCAST_WORKERS", "3")
			_ = os.Setenv("CRAGBOARD_SAME_ATTEMPT_MILESTONE", "true")
			_ = os.Setenv("CRAGBOARD_SUBMIT_RATE_LIMIT", "2.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "badger")
				convey.So(cfg.BadgerPath, convey.ShouldEqual, "/tmp/cragboard")
				convey.So(cfg.MilestoneLabel, convey.ShouldEqual, "Zone")
				convey.So(cfg.Routes, convey.ShouldResemble, []string{"M1", "M2", "M3"})
				convey.So(cfg.BroadcastWorkers, convey.ShouldEqual, 3)
				convey.So(cfg.SameAttemptMilestone, convey.ShouldBeTrue)
				convey.So(cfg.SubmitRateLimit, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store_backend: memory
routes:
  - Slab
  - Roof
milestone_label: Zone
broadcast_queue_size: 64
redis_addr: "localhost:6379"
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("CRAGBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
				convey.So(cfg.Routes, convey.ShouldResemble, []string{"Slab", "Roof"})
				convey.So(cfg.MilestoneLabel, convey.ShouldEqual, "Zone")
				convey.So(cfg.BroadcastQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.ResultsPath, convey.ShouldEqual, "result.csv") // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\nbroadcast_workers: 4\n")
			_ = os.Setenv("CRAGBOARD_CONFIG", tmpFile)
			_ = os.Setenv("CRAGBOARD_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")       // Overridden by env
				convey.So(cfg.BroadcastWorkers, convey.ShouldEqual, 4) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("CRAGBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CRAGBOARD_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CRAGBOARD_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CRAGBOARD_BROADCAST_QUEUE_SIZE", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("CRAGBOARD_STORE_BACKEND", "sqlite")

			_, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "unknown store_backend")
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if key := kv[:i]; len(key) > len("CRAGBOARD_") && key[:len("CRAGBOARD_")] == "CRAGBOARD_" {
					_ = os.Unsetenv(key)
				}
				break
			}
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "cragboard-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpFile.Name()
}
