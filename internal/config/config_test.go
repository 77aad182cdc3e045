package config_test

import (
	"errors"
	"testing"

	"github.com/okian/cragboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendCSV)
			convey.So(cfg.ResultsPath, convey.ShouldEqual, "result.csv")
			convey.So(cfg.RosterPath, convey.ShouldEqual, "climbers.csv")
			convey.So(cfg.Routes, convey.ShouldResemble, []string{"Route 1", "Route 2", "Route 3", "Route 4", "Route 5", "Route 6"})
			convey.So(cfg.MilestoneLabel, convey.ShouldEqual, "Bonus")
			convey.So(cfg.SameAttemptMilestone, convey.ShouldBeFalse)
			convey.So(cfg.BroadcastWorkers, convey.ShouldEqual, 1)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(c *config.Config)
			reason string
		}{
			{"unknown backend", func(c *config.Config) { c.StoreBackend = "postgres" }, "unknown store_backend"},
			{"no routes", func(c *config.Config) { c.Routes = nil }, "routes must not be empty"},
			{"blank route", func(c *config.Config) { c.Routes = []string{"A", " "} }, "blank"},
			{"duplicate route", func(c *config.Config) { c.Routes = []string{"A", "A"} }, "duplicate route"},
			{"blank label", func(c *config.Config) { c.MilestoneLabel = "" }, "milestone_label"},
			{"label with comma", func(c *config.Config) { c.MilestoneLabel = "Zo,ne" }, "single word"},
			{"badger without path", func(c *config.Config) { c.StoreBackend = config.BackendBadger; c.BadgerPath = "" }, "badger_path"},
			{"csv without path", func(c *config.Config) { c.ResultsPath = "" }, "results_path"},
		}

		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.reason)
				})
			})
		}

		convey.Convey("When the memory backend is selected without paths", func() {
			cfg.StoreBackend = config.BackendMemory
			cfg.ResultsPath = ""
			cfg.BadgerPath = ""

			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
