// Package config resolves run settings from defaults, environment variables
// and a YAML file, and edits that file for the config subcommand.
//
// Precedence, lowest first: defaults, environment, config file. Command-line
// flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// appName names the config directory.
const appName = "vstprep"

// fileName is the config file inside the config directory.
const fileName = "config.yaml"

// Config keys, as used in the file and by `config set|get`.
const (
	KeyWorkers       = "workers"
	KeyTuningCents   = "tuning-cents"
	KeyLogLevel      = "log-level"
	KeyPreRoll       = "pre-roll"
	KeyThreshold     = "threshold"
	KeyMinSeparation = "min-separation"
	KeyHopLength     = "hop-length"
	KeyFFmpegPath    = "ffmpeg-path"
)

// Environment variable fallbacks.
const (
	EnvWorkers     = "VSTPREP_WORKERS"
	EnvTuningCents = "VSTPREP_TUNING_CENTS"
	EnvLogLevel    = "VSTPREP_LOG_LEVEL"
	EnvFFmpegPath  = "FFMPEG_PATH"
)

// Default values.
const (
	DefaultWorkers       = 4
	DefaultTuningCents   = 0.0
	DefaultLogLevel      = "info"
	DefaultPreRoll       = 0.025
	DefaultThreshold     = 0.05
	DefaultMinSeparation = 0.3
	DefaultHopLength     = 512
)

// LogLevels lists the accepted log level names.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Keys returns every config key in display order.
func Keys() []string {
	return []string{
		KeyWorkers, KeyTuningCents, KeyLogLevel, KeyPreRoll,
		KeyThreshold, KeyMinSeparation, KeyHopLength, KeyFFmpegPath,
	}
}

// Config holds resolved settings.
type Config struct {
	Workers       int
	TuningCents   float64
	LogLevel      string
	PreRoll       float64
	Threshold     float64
	MinSeparation float64
	HopLength     int
	FFmpegPath    string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Workers:       DefaultWorkers,
		TuningCents:   DefaultTuningCents,
		LogLevel:      DefaultLogLevel,
		PreRoll:       DefaultPreRoll,
		Threshold:     DefaultThreshold,
		MinSeparation: DefaultMinSeparation,
		HopLength:     DefaultHopLength,
	}
}

// File mirrors config.yaml. Unset keys stay nil so they do not override
// lower-precedence sources.
type File struct {
	Workers       *int     `yaml:"workers,omitempty"`
	TuningCents   *float64 `yaml:"tuning-cents,omitempty"`
	LogLevel      *string  `yaml:"log-level,omitempty"`
	PreRoll       *float64 `yaml:"pre-roll,omitempty"`
	Threshold     *float64 `yaml:"threshold,omitempty"`
	MinSeparation *float64 `yaml:"min-separation,omitempty"`
	HopLength     *int     `yaml:"hop-length,omitempty"`
	FFmpegPath    *string  `yaml:"ffmpeg-path,omitempty"`
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/vstprep.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Load resolves settings from defaults, getenv and the file at path.
// A missing file is not an error. getenv may be nil to skip the environment.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if getenv != nil {
		if err := applyEnv(&cfg, getenv); err != nil {
			return cfg, err
		}
	}

	f, err := ReadFile(path)
	if err != nil {
		return cfg, err
	}
	f.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides defaults with environment variables that are set.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvWorkers, v)
		}
		cfg.Workers = n
	}
	if v := getenv(EnvTuningCents); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvTuningCents, v)
		}
		cfg.TuningCents = c
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv(EnvFFmpegPath); v != "" {
		cfg.FFmpegPath = v
	}
	return nil
}

func (f File) apply(cfg *Config) {
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	if f.TuningCents != nil {
		cfg.TuningCents = *f.TuningCents
	}
	if f.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(*f.LogLevel)
	}
	if f.PreRoll != nil {
		cfg.PreRoll = *f.PreRoll
	}
	if f.Threshold != nil {
		cfg.Threshold = *f.Threshold
	}
	if f.MinSeparation != nil {
		cfg.MinSeparation = *f.MinSeparation
	}
	if f.HopLength != nil {
		cfg.HopLength = *f.HopLength
	}
	if f.FFmpegPath != nil {
		cfg.FFmpegPath = ExpandPath(*f.FFmpegPath)
	}
}

// Validate checks every setting's range.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidValue, KeyWorkers, c.Workers))
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("%w: %s must be one of %s, got %q",
			ErrInvalidValue, KeyLogLevel, strings.Join(LogLevels, "|"), c.LogLevel))
	}
	if !finite(c.TuningCents) {
		errs = append(errs, fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidValue, KeyTuningCents, c.TuningCents))
	}
	// Negated comparisons so NaN fails too.
	if !(c.PreRoll >= 0) || math.IsInf(c.PreRoll, 1) {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidValue, KeyPreRoll, c.PreRoll))
	}
	if !(c.Threshold > 0 && c.Threshold <= 1) {
		errs = append(errs, fmt.Errorf("%w: %s must be in (0, 1], got %v", ErrInvalidValue, KeyThreshold, c.Threshold))
	}
	if !(c.MinSeparation >= 0) || math.IsInf(c.MinSeparation, 1) {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidValue, KeyMinSeparation, c.MinSeparation))
	}
	if c.HopLength < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidValue, KeyHopLength, c.HopLength))
	}
	return errors.Join(errs...)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// LogValue renders the settings for debug logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int(KeyWorkers, c.Workers),
		slog.Float64(KeyTuningCents, c.TuningCents),
		slog.String(KeyLogLevel, c.LogLevel),
		slog.Float64(KeyPreRoll, c.PreRoll),
		slog.Float64(KeyThreshold, c.Threshold),
		slog.Float64(KeyMinSeparation, c.MinSeparation),
		slog.Int(KeyHopLength, c.HopLength),
		slog.String(KeyFFmpegPath, c.FFmpegPath),
	)
}

// ReadFile parses the YAML file at path. Unknown keys are rejected.
// A missing or empty file yields an empty File.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-chosen or from the config dir
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return f, nil
}

// writeFile writes f to path, creating the directory if needed.
func writeFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Set parses value for key and stores it in the file at path, keeping the
// other keys.
func Set(path, key, value string) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := f.set(key, value); err != nil {
		return err
	}
	return writeFile(path, f)
}

func (f *File) set(key, value string) error {
	invalid := func() error {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	parseInt := func(lo int) (*int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < lo {
			return nil, invalid()
		}
		return &n, nil
	}
	parseFloat := func(ok func(float64) bool) (*float64, error) {
		x, err := strconv.ParseFloat(value, 64)
		if err != nil || !finite(x) || !ok(x) {
			return nil, invalid()
		}
		return &x, nil
	}

	var err error
	switch key {
	case KeyWorkers:
		f.Workers, err = parseInt(1)
	case KeyHopLength:
		f.HopLength, err = parseInt(1)
	case KeyTuningCents:
		f.TuningCents, err = parseFloat(func(float64) bool { return true })
	case KeyPreRoll:
		f.PreRoll, err = parseFloat(func(x float64) bool { return x >= 0 })
	case KeyThreshold:
		f.Threshold, err = parseFloat(func(x float64) bool { return x > 0 && x <= 1 })
	case KeyMinSeparation:
		f.MinSeparation, err = parseFloat(func(x float64) bool { return x >= 0 })
	case KeyLogLevel:
		v := strings.ToLower(value)
		if !slices.Contains(LogLevels, v) {
			return invalid()
		}
		f.LogLevel = &v
	case KeyFFmpegPath:
		v := value
		f.FFmpegPath = &v
	default:
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return err
}

// Get returns the file value of key, or "" when unset.
func Get(path, key string) (string, error) {
	if !slices.Contains(Keys(), key) {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	values, err := List(path)
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// List returns every key set in the file.
func List(path string) (map[string]string, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	putInt := func(k string, v *int) {
		if v != nil {
			out[k] = strconv.Itoa(*v)
		}
	}
	putFloat := func(k string, v *float64) {
		if v != nil {
			out[k] = strconv.FormatFloat(*v, 'g', -1, 64)
		}
	}
	putString := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	putInt(KeyWorkers, f.Workers)
	putFloat(KeyTuningCents, f.TuningCents)
	putString(KeyLogLevel, f.LogLevel)
	putFloat(KeyPreRoll, f.PreRoll)
	putFloat(KeyThreshold, f.Threshold)
	putFloat(KeyMinSeparation, f.MinSeparation)
	putInt(KeyHopLength, f.HopLength)
	putString(KeyFFmpegPath, f.FFmpegPath)
	return out, nil
}

// EnsureOutputDir creates d if needed and checks it is a writable directory.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: empty path", ErrCreateDir)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	case os.IsNotExist(err):
		if err := os.MkdirAll(d, 0o750); err != nil { // #nosec G301 -- user output dir
			return fmt.Errorf("%w: %w", ErrCreateDir, err)
		}
	case err != nil:
		return fmt.Errorf("%w: cannot access %s: %w", ErrCreateDir, d, err)
	}

	// Probe writability with a temp file.
	f, err := os.CreateTemp(d, ".vstprep-write-test-*")
	if err != nil {
		return fmt.Errorf("%w: directory is not writable: %w", ErrCreateDir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name) // best effort
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
