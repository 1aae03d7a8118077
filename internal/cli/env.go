package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/config"
	"github.com/alnah/vstprep/internal/dsp"
	"github.com/alnah/vstprep/internal/ffmpeg"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stderr  io.Writer
	Stdout  io.Writer
	Getenv  func(string) string
	Now     func() time.Time
	Version string

	// ConfigPath returns the config file used when --config is not given.
	ConfigPath func() (string, error)

	// Factories for domain objects
	ConfigLoader    ConfigLoader
	FFmpegFactory   FFmpegFactory
	CodecFactory    CodecFactory
	AnalyzerFactory AnalyzerFactory
}

// ConfigLoader resolves settings from defaults, environment and a config file.
type ConfigLoader interface {
	Load(path string, getenv func(string) string) (config.Config, error)
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string) bool
}

// FFmpegFactory creates resolvers. An empty path falls back to the system PATH.
type FFmpegFactory interface {
	NewResolver(ffmpegPath string, logger *slog.Logger) FFmpegResolver
}

// CodecFactory creates the codec used to load inputs and save clips.
type CodecFactory interface {
	NewCodec(resolver FFmpegResolver) audio.Codec
}

// AnalyzerFactory creates the spectral analyzer shared by onset and pitch
// detection.
type AnalyzerFactory interface {
	NewAnalyzer() (dsp.Analyzer, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithVersion sets the version reported in metrics.
func WithVersion(v string) EnvOption {
	return func(e *Env) {
		e.Version = v
	}
}

// WithConfigPath sets the default config file locator.
func WithConfigPath(fn func() (string, error)) EnvOption {
	return func(e *Env) {
		e.ConfigPath = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithFFmpegFactory sets the FFmpeg resolver factory.
func WithFFmpegFactory(f FFmpegFactory) EnvOption {
	return func(e *Env) {
		e.FFmpegFactory = f
	}
}

// WithCodecFactory sets the codec factory.
func WithCodecFactory(f CodecFactory) EnvOption {
	return func(e *Env) {
		e.CodecFactory = f
	}
}

// WithAnalyzerFactory sets the analyzer factory.
func WithAnalyzerFactory(f AnalyzerFactory) EnvOption {
	return func(e *Env) {
		e.AnalyzerFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:          os.Stderr,
		Stdout:          os.Stdout,
		Getenv:          os.Getenv,
		Now:             time.Now,
		Version:         "dev",
		ConfigPath:      config.DefaultPath,
		ConfigLoader:    &defaultConfigLoader{},
		FFmpegFactory:   &defaultFFmpegFactory{},
		CodecFactory:    &defaultCodecFactory{},
		AnalyzerFactory: &defaultAnalyzerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(path string, getenv func(string) string) (config.Config, error) {
	return config.Load(path, getenv)
}

// defaultFFmpegFactory implements FFmpegFactory using the ffmpeg package.
type defaultFFmpegFactory struct{}

func (defaultFFmpegFactory) NewResolver(ffmpegPath string, logger *slog.Logger) FFmpegResolver {
	return ffmpeg.NewResolver(
		ffmpeg.WithEnvProvider(ffmpegEnv{path: ffmpegPath}),
		ffmpeg.WithLogger(logger),
	)
}

// ffmpegEnv serves the resolved ffmpeg-path setting as FFMPEG_PATH, so the
// config file and the environment variable go through the same lookup.
type ffmpegEnv struct {
	path string
}

func (e ffmpegEnv) Getenv(key string) string {
	if key == ffmpeg.EnvPath {
		return e.path
	}
	return ""
}

func (ffmpegEnv) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// defaultCodecFactory implements CodecFactory with the WAV codec and ffmpeg
// transcoding for other containers.
type defaultCodecFactory struct{}

func (defaultCodecFactory) NewCodec(resolver FFmpegResolver) audio.Codec {
	return audio.NewWAVCodec(audio.WithFFmpeg(resolver, ffmpeg.NewExecutor()))
}

// defaultAnalyzerFactory implements AnalyzerFactory with dsp.Spectral.
type defaultAnalyzerFactory struct{}

func (defaultAnalyzerFactory) NewAnalyzer() (dsp.Analyzer, error) {
	return dsp.NewSpectral()
}

// Compile-time interface verification.
var (
	_ ConfigLoader    = (*defaultConfigLoader)(nil)
	_ FFmpegFactory   = (*defaultFFmpegFactory)(nil)
	_ FFmpegResolver  = (*ffmpeg.Resolver)(nil)
	_ CodecFactory    = (*defaultCodecFactory)(nil)
	_ AnalyzerFactory = (*defaultAnalyzerFactory)(nil)
)
