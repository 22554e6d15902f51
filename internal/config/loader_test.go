package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	t.Setenv("SCOREBOARD_TOTAL_TASKS", "20")

	Convey("Load layers defaults, file and environment", t, func() {
		Convey("Defaults survive when nothing overrides them", func() {
			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.TotalTasks, ShouldEqual, 20)
		})

		Convey("Environment variables override defaults", func() {
			t.Setenv("SCOREBOARD_ADDR", ":7070")
			t.Setenv("SCOREBOARD_TABLE_ID", "course-a")
			t.Setenv("SCOREBOARD_DEBOUNCE_MS", "500")

			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.TableID, ShouldEqual, "course-a")
			So(cfg.DebounceMS, ShouldEqual, 500)
		})

		Convey("A YAML file overrides defaults but not environment", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			raw := []byte("addr: \":6060\"\ntable_id: from-file\ntotal_tasks: 10\n")
			So(os.WriteFile(path, raw, 0o600), ShouldBeNil)
			// Clear the override leaked from the previous branch: t.Setenv
			// cleanups only run at test end, not between Convey branches.
			os.Unsetenv("SCOREBOARD_ADDR")
			t.Setenv("SCOREBOARD_CONFIG", path)
			t.Setenv("SCOREBOARD_TABLE_ID", "from-env")

			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.TableID, ShouldEqual, "from-env")
			So(cfg.TotalTasks, ShouldEqual, 20)
		})

		Convey("A missing file fails loudly", func() {
			t.Setenv("SCOREBOARD_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
			_, err := Load()
			So(errors.Is(err, ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Load rejects unusable configurations", t, func() {
		Convey("A missing task count", func() {
			os.Unsetenv("SCOREBOARD_TOTAL_TASKS")
			_, err := Load()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("An empty listen address", func() {
			t.Setenv("SCOREBOARD_TOTAL_TASKS", "20")
			t.Setenv("SCOREBOARD_ADDR", "")
			_, err := Load()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A non-positive debounce", func() {
			t.Setenv("SCOREBOARD_TOTAL_TASKS", "20")
			t.Setenv("SCOREBOARD_DEBOUNCE_MS", "0")
			_, err := Load()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
