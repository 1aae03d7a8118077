package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs FFmpeg commands with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runOutput: defaultRunOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes FFmpeg and captures its stderr output.
// FFmpeg writes most diagnostic output (including probe info) to stderr.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

// TranscodeToWAV converts any input FFmpeg can read into a mono PCM WAV at
// the source sample rate. bitDepth selects pcm_s16le, pcm_s24le or pcm_s32le;
// other values fall back to 24-bit so sampled instruments keep their headroom.
func (e *Executor) TranscodeToWAV(ctx context.Context, ffmpegPath, inputPath, outputPath string, bitDepth int) error {
	output, err := e.runOutput(ctx, ffmpegPath, TranscodeArgs(inputPath, outputPath, bitDepth))
	if err != nil {
		return fmt.Errorf("%w: %s: %v\n%s", ErrTranscodeFailed, inputPath, err, lastLines(output, 5))
	}
	return nil
}

// TranscodeArgs builds the ffmpeg argument list used by TranscodeToWAV.
func TranscodeArgs(inputPath, outputPath string, bitDepth int) []string {
	codec := "pcm_s24le"
	switch bitDepth {
	case 16:
		codec = "pcm_s16le"
	case 32:
		codec = "pcm_s32le"
	}
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-c:a", codec,
		outputPath,
	}
}

// lastLines keeps the tail of ffmpeg's stderr for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// defaultRunOutput is the production implementation.
// Returns stderr output even when the command fails, since that is where
// ffmpeg explains what went wrong.
func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	// #nosec G204 -- ffmpegPath comes from Resolve, args are built by this package
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}
