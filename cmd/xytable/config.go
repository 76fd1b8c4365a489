package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/mastercactapus/xytable/dxf"
	"github.com/mastercactapus/xytable/session"
)

type fileConfig struct {
	Listen           string   `toml:"listen"`
	SerialPort       string   `toml:"serial_port"`
	Baud             int      `toml:"baud"`
	RecordDelimiter  string   `toml:"record_delimiter"`
	TelemetryTimeout string   `toml:"telemetry_timeout"`
	StrictTelemetry  bool     `toml:"strict_telemetry"`
	SampleResolution string   `toml:"sample_resolution"`
	FeedRate         float64  `toml:"feed_rate"`
	PulseStep        float64  `toml:"pulse_step"`
	NoOp             string   `toml:"noop"`
	Capacity         int      `toml:"capacity"`
	Overflow         string   `toml:"overflow"`
	ProgramExt       string   `toml:"program_ext"`
	ErrorLog         string   `toml:"error_log"`
	Monitor          string   `toml:"monitor"`
	DataDir          string   `toml:"data_dir"`
	Launch           []string `toml:"launch"`
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse %s: negative duration", key)
	}
	return d, nil
}

func parseDelimiter(s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("parse record_delimiter: want a single byte, got %q", s)
	}
	return s[0], nil
}

// loadConfig applies the settings defined in the TOML file at path on top
// of cfg.
func loadConfig(path string, cfg session.Config) (session.Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return cfg, fmt.Errorf("load config: unknown key %q", keys[0].String())
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("serial_port") {
		cfg.SerialPort = strings.TrimSpace(raw.SerialPort)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("record_delimiter") {
		cfg.Delimiter, err = parseDelimiter(raw.RecordDelimiter)
		if err != nil {
			return cfg, err
		}
	}
	if meta.IsDefined("telemetry_timeout") {
		cfg.TelemetryTimeout, err = parseDuration("telemetry_timeout", raw.TelemetryTimeout)
		if err != nil {
			return cfg, err
		}
	}
	if meta.IsDefined("strict_telemetry") {
		cfg.StrictTelemetry = raw.StrictTelemetry
	}
	if meta.IsDefined("sample_resolution") {
		cfg.SampleResolution, err = parseDuration("sample_resolution", raw.SampleResolution)
		if err != nil {
			return cfg, err
		}
	}
	if meta.IsDefined("feed_rate") {
		cfg.FeedRate = raw.FeedRate
	}
	if meta.IsDefined("pulse_step") {
		cfg.PulseStep = raw.PulseStep
	}
	if meta.IsDefined("noop") {
		cfg.NoOp = strings.TrimSpace(raw.NoOp)
	}
	if meta.IsDefined("capacity") {
		cfg.Capacity = raw.Capacity
	}
	if meta.IsDefined("overflow") {
		cfg.Overflow, err = dxf.ParseOverflow(strings.TrimSpace(raw.Overflow))
		if err != nil {
			return cfg, fmt.Errorf("parse overflow: %w", err)
		}
	}
	if meta.IsDefined("program_ext") {
		cfg.ProgramExt = strings.TrimSpace(raw.ProgramExt)
	}
	if meta.IsDefined("error_log") {
		cfg.ErrorLog = strings.TrimSpace(raw.ErrorLog)
	}
	if meta.IsDefined("monitor") {
		cfg.Monitor = strings.TrimSpace(raw.Monitor)
	}
	if meta.IsDefined("data_dir") {
		cfg.DataDir = strings.TrimSpace(raw.DataDir)
	}
	if meta.IsDefined("launch") {
		cfg.Launch = normalizeCommands(raw.Launch)
	}

	return cfg, nil
}

func normalizeCommands(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		v := strings.TrimSpace(c)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// applyEnv overrides cfg with any XYTABLE_* variables set.
func applyEnv(cfg session.Config, getenv func(string) string) (session.Config, error) {
	if v := strings.TrimSpace(getenv("XYTABLE_LISTEN")); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(getenv("XYTABLE_SERIAL_PORT")); v != "" {
		cfg.SerialPort = v
	}
	if v := strings.TrimSpace(getenv("XYTABLE_MONITOR")); v != "" {
		cfg.Monitor = v
	}
	if v := strings.TrimSpace(getenv("XYTABLE_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(getenv("XYTABLE_ERROR_LOG")); v != "" {
		cfg.ErrorLog = v
	}
	if v := getenv("XYTABLE_TELEMETRY_TIMEOUT"); v != "" {
		d, err := parseDuration("XYTABLE_TELEMETRY_TIMEOUT", v)
		if err != nil {
			return cfg, err
		}
		cfg.TelemetryTimeout = d
	}
	return cfg, nil
}

// parseArgs builds the session config from defaults, the optional config
// file, the environment, then any flags set explicitly on the command line.
// XYTABLE_CONFIG names the config file when --config is not given.
func parseArgs(args []string, getenv func(string) string) (session.Config, error) {
	cfg := session.DefaultConfig()

	fs := pflag.NewFlagSet("xytable", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "TOML config file.")
	listen := fs.String("listen", cfg.Listen, "Address to accept the controller script on.")
	serialPort := fs.String("serial", "", "Serial port of the controller; overrides --listen.")
	baud := fs.Int("baud", cfg.Baud, "Serial baud rate.")
	monitor := fs.String("monitor", "", "Address to serve the live monitor on.")
	dataDir := fs.String("data-dir", cfg.DataDir, "Directory served by the monitor.")
	errorLog := fs.String("error-log", cfg.ErrorLog, "File errors are appended to.")
	capacity := fs.Int("capacity", cfg.Capacity, "Maximum number of line segments per drawing.")
	overflow := fs.String("overflow", cfg.Overflow.String(), "What to do with drawings over capacity: truncate or abort.")
	strict := fs.Bool("strict", false, "End the session on a malformed telemetry record.")
	timeout := fs.Duration("timeout", 0, "Telemetry read timeout; 0 waits forever.")
	feedRate := fs.Float64("feedrate", cfg.FeedRate, "Initial feed rate.")

	err := fs.Parse(args)
	if err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if !fs.Changed("config") {
		*configPath = strings.TrimSpace(getenv("XYTABLE_CONFIG"))
	}
	if *configPath != "" {
		cfg, err = loadConfig(*configPath, cfg)
		if err != nil {
			return cfg, err
		}
	}
	cfg, err = applyEnv(cfg, getenv)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("listen") {
		cfg.Listen = *listen
	}
	if fs.Changed("serial") {
		cfg.SerialPort = *serialPort
	}
	if fs.Changed("baud") {
		cfg.Baud = *baud
	}
	if fs.Changed("monitor") {
		cfg.Monitor = *monitor
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if fs.Changed("error-log") {
		cfg.ErrorLog = *errorLog
	}
	if fs.Changed("capacity") {
		cfg.Capacity = *capacity
	}
	if fs.Changed("overflow") {
		cfg.Overflow, err = dxf.ParseOverflow(*overflow)
		if err != nil {
			return cfg, fmt.Errorf("parse --overflow: %w", err)
		}
	}
	if fs.Changed("strict") {
		cfg.StrictTelemetry = *strict
	}
	if fs.Changed("timeout") {
		if *timeout < 0 {
			return cfg, fmt.Errorf("parse --timeout: negative duration")
		}
		cfg.TelemetryTimeout = *timeout
	}
	if fs.Changed("feedrate") {
		cfg.FeedRate = *feedRate
	}

	if cfg.FeedRate <= 0 {
		return cfg, fmt.Errorf("feed rate must be positive")
	}
	if cfg.Capacity <= 0 {
		return cfg, fmt.Errorf("capacity must be positive")
	}

	return cfg, nil
}
