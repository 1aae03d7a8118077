package ffmpeg

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Executor.RunOutput - FFmpeg output capture
// ---------------------------------------------------------------------------

func TestExecutor_RunOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mockOutput string
		mockErr    error
		wantOutput string
		wantErr    bool
	}{
		{name: "returns stderr output", mockOutput: "ffmpeg version 6.1.1", wantOutput: "ffmpeg version 6.1.1"},
		{name: "returns empty output", mockOutput: "", wantOutput: ""},
		{name: "returns error", mockErr: errors.New("command failed"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			executor := NewExecutor(
				WithRunOutput(func(ctx context.Context, path string, args []string) (string, error) {
					return tt.mockOutput, tt.mockErr
				}),
			)

			got, err := executor.RunOutput(context.Background(), "/usr/bin/ffmpeg", []string{"-version"})
			if tt.wantErr {
				if err == nil {
					t.Error("RunOutput() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RunOutput() unexpected error: %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("RunOutput() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TranscodeToWAV
// ---------------------------------------------------------------------------

func TestTranscodeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		codec    string
	}{
		{16, "pcm_s16le"},
		{24, "pcm_s24le"},
		{32, "pcm_s32le"},
		{0, "pcm_s24le"},
		{8, "pcm_s24le"},
	}

	for _, tt := range tests {
		args := TranscodeArgs("in.flac", "out.wav", tt.bitDepth)
		if !slices.Contains(args, tt.codec) {
			t.Errorf("TranscodeArgs(depth=%d) = %v, want codec %s", tt.bitDepth, args, tt.codec)
		}
		if args[len(args)-1] != "out.wav" {
			t.Errorf("TranscodeArgs() last arg = %q, want output path", args[len(args)-1])
		}
		i := slices.Index(args, "-ac")
		if i < 0 || args[i+1] != "1" {
			t.Errorf("TranscodeArgs() does not downmix to mono: %v", args)
		}
	}
}

func TestExecutor_TranscodeToWAV(t *testing.T) {
	t.Parallel()

	t.Run("passes arguments through", func(t *testing.T) {
		t.Parallel()

		var gotArgs []string
		e := NewExecutor(WithRunOutput(func(_ context.Context, path string, args []string) (string, error) {
			gotArgs = args
			return "", nil
		}))

		if err := e.TranscodeToWAV(context.Background(), "/usr/bin/ffmpeg", "take.flac", "take.wav", 16); err != nil {
			t.Fatalf("TranscodeToWAV() unexpected error: %v", err)
		}
		if !slices.Equal(gotArgs, TranscodeArgs("take.flac", "take.wav", 16)) {
			t.Errorf("args = %v", gotArgs)
		}
	})

	t.Run("wraps failure with stderr tail", func(t *testing.T) {
		t.Parallel()

		e := NewExecutor(WithRunOutput(func(context.Context, string, []string) (string, error) {
			return "line1\nline2\ntake.flac: Invalid data found when processing input\n", errors.New("exit status 1")
		}))

		err := e.TranscodeToWAV(context.Background(), "/usr/bin/ffmpeg", "take.flac", "take.wav", 24)
		if !errors.Is(err, ErrTranscodeFailed) {
			t.Fatalf("TranscodeToWAV() error = %v, want ErrTranscodeFailed", err)
		}
		if !strings.Contains(err.Error(), "Invalid data found") {
			t.Errorf("error %q should include ffmpeg output", err)
		}
	})
}

func TestLastLines(t *testing.T) {
	t.Parallel()

	got := lastLines("a\nb\nc\nd\n", 2)
	if got != "c\nd" {
		t.Errorf("lastLines() = %q, want %q", got, "c\nd")
	}
	if got := lastLines("only", 5); got != "only" {
		t.Errorf("lastLines() = %q, want %q", got, "only")
	}
}
