// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and JACKTRACK_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

// Scan stop policies. See registry.StopPolicy.
const (
	ScanStopMarkLost = "mark_lost"
	ScanStopRetain   = "retain"
)

// Course file formats understood by the course loader.
const (
	CourseFormatYAML = "yaml"
	CourseFormatHTML = "html"
	CourseFormatPDF  = "pdf"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the collaborator event queue.
	EventQueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the number of remembered event ids.
	DedupeSize int `koanf:"dedupe_size"`

	// ConnectTimeoutMS is how long a BLE connect attempt may take before
	// the ball is reported Lost.
	ConnectTimeoutMS int `koanf:"connect_timeout_ms"`

	// ScanStopPolicy is mark_lost or retain.
	ScanStopPolicy string `koanf:"scan_stop_policy"`

	// CourseFile points at the course reference data. Required unless Demo.
	CourseFile string `koanf:"course_file"`

	// CourseFormat is yaml, html or pdf. Empty means "guess from extension".
	CourseFormat string `koanf:"course_format"`

	// DatabasePath is the SQLite file for saved rounds. Empty keeps rounds
	// in memory.
	DatabasePath string `koanf:"database_path"`

	// Demo swaps real radio and GPS for simulated collaborators and loads
	// the bundled sample course.
	Demo bool `koanf:"demo"`

	// GPSPort is the serial device of an NMEA receiver, e.g. /dev/ttyACM0.
	GPSPort string `koanf:"gps_port"`

	// GPSBaud is the NMEA receiver baud rate.
	GPSBaud int `koanf:"gps_baud"`

	// BLENamePrefix filters advertisements to tagged balls.
	BLENamePrefix string `koanf:"ble_name_prefix"`

	// LocationIntervalMS paces the simulated location source.
	LocationIntervalMS int `koanf:"location_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		EventQueueSize:     4096,
		DedupeSize:         50_000,
		ConnectTimeoutMS:   10_000,
		ScanStopPolicy:     ScanStopMarkLost,
		GPSBaud:            9600,
		BLENamePrefix:      "JackTrack",
		LocationIntervalMS: 1000,
	}
}
