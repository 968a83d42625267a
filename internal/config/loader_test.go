package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/jacktrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading in demo mode with defaults only", func() {
			_ = os.Setenv("JACKTRACK_DEMO", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Demo, convey.ShouldBeTrue)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 4096)
			})
		})

		convey.Convey("When command line overrides enable demo mode", func() {
			cfg, err := config.LoadWith(ctx, "", func(c *config.Config) {
				c.Demo = true
				c.Addr = ":7000"
			})

			convey.Convey("Then validation sees the overridden values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Demo, convey.ShouldBeTrue)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("JACKTRACK_ADDR", ":8080")
			_ = os.Setenv("JACKTRACK_QUEUE_SIZE", "128")
			_ = os.Setenv("JACKTRACK_CONNECT_TIMEOUT_MS", "2500")
			_ = os.Setenv("JACKTRACK_SCAN_STOP_POLICY", "retain")
			_ = os.Setenv("JACKTRACK_COURSE_FILE", "/srv/course.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.ConnectTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.ScanStopPolicy, convey.ShouldEqual, config.ScanStopRetain)
				convey.So(cfg.CourseFile, convey.ShouldEqual, "/srv/course.yaml")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
course_file: "pebble.yaml"
database_path: "rounds.db"
gps_port: "/dev/ttyACM0"
gps_baud: 4800
`)
			_ = os.Setenv("JACKTRACK_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.CourseFile, convey.ShouldEqual, "pebble.yaml")
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "rounds.db")
				convey.So(cfg.GPSPort, convey.ShouldEqual, "/dev/ttyACM0")
				convey.So(cfg.GPSBaud, convey.ShouldEqual, 4800)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000) // default
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
course_file: "pebble.yaml"
`)
			_ = os.Setenv("JACKTRACK_CONFIG", path)
			_ = os.Setenv("JACKTRACK_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			path := writeConfigFile(t, `invalid: yaml: content: [`)

			cfg, err := config.LoadFile(ctx, path)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			cfg, err := config.LoadFile(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("JACKTRACK_DEMO", "true")
			_ = os.Setenv("JACKTRACK_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		_ = os.Setenv("JACKTRACK_DEMO", "true")

		cases := map[string]string{
			"empty addr":          "JACKTRACK_ADDR=",
			"zero queue":          "JACKTRACK_QUEUE_SIZE=0",
			"bad connect timeout": "JACKTRACK_CONNECT_TIMEOUT_MS=-1",
			"bad stop policy":     "JACKTRACK_SCAN_STOP_POLICY=delete",
			"bad course format":   "JACKTRACK_COURSE_FORMAT=xlsx",
		}
		for name, kv := range cases {
			convey.Convey("When "+name, func() {
				key, val := splitKV(kv)
				_ = os.Setenv(key, val)

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should fail with ErrInvalidConfig", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}

		convey.Convey("When not in demo mode and no course file is given", func() {
			_ = os.Setenv("JACKTRACK_DEMO", "false")

			_, err := config.Load(ctx)

			convey.Convey("Then the course file is required", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "course_file")
			})
		})
	})
}

// Helper functions.

func splitKV(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"JACKTRACK_CONFIG",
		"JACKTRACK_ADDR",
		"JACKTRACK_QUEUE_SIZE",
		"JACKTRACK_CONNECT_TIMEOUT_MS",
		"JACKTRACK_SCAN_STOP_POLICY",
		"JACKTRACK_COURSE_FILE",
		"JACKTRACK_COURSE_FORMAT",
		"JACKTRACK_DEMO",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "jacktrack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
