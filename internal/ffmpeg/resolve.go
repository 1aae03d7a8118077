package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// EnvPath is the environment variable pointing at a custom ffmpeg binary.
const EnvPath = "FFMPEG_PATH"

// minMajorVersion is the minimum recommended ffmpeg major version.
const minMajorVersion = 4

// Resolver locates the ffmpeg binary.
type Resolver struct {
	files    fileStatter
	env      envProvider
	executor *Executor
	logger   *slog.Logger
	goos     string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(f fileStatter) ResolverOption {
	return func(r *Resolver) { r.files = f }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithExecutor sets the executor used for version checks.
func WithExecutor(e *Executor) ResolverOption {
	return func(r *Resolver) { r.executor = e }
}

// WithLogger sets the logger for version warnings.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithPlatform sets the target OS (for testing install hints).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files:    osFileStatter{},
		env:      osEnvProvider{},
		executor: NewExecutor(),
		logger:   slog.Default(),
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if envPath := r.env.Getenv(EnvPath); envPath != "" {
		if _, err := r.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, EnvPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.installHint())
}

// CheckVersion logs a warning when ffmpeg is older than the supported minimum.
// Returns false if the version could not be determined.
func (r *Resolver) CheckVersion(ctx context.Context, ffmpegPath string) bool {
	output, err := r.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return false
	}

	major, ok := parseMajorVersion(output)
	if !ok {
		return false
	}
	if major < minMajorVersion {
		r.logger.Warn("ffmpeg is older than recommended",
			"version", major, "minimum", minMajorVersion)
	}
	return true
}

// parseMajorVersion extracts the major version from "ffmpeg version 6.1.1 ..."
// or "ffmpeg version n6.1.1 ..." banners.
func parseMajorVersion(output string) (int, bool) {
	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return 0, false
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}

// installHint returns platform-specific instructions.
func (r *Resolver) installHint() string {
	switch r.goos {
	case "darwin":
		return `Only .wav inputs can be read without FFmpeg. To install it:
  brew install ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "linux":
		return `Only .wav inputs can be read without FFmpeg. To install it:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "windows":
		return `Only .wav inputs can be read without FFmpeg. To install it:
  winget install ffmpeg

Or set FFMPEG_PATH to your ffmpeg.exe.`
	default:
		return `Only .wav inputs can be read without FFmpeg. Download it from https://ffmpeg.org/download.html
Or set FFMPEG_PATH to your ffmpeg binary.`
	}
}
