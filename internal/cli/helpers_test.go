package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/vstprep/internal/audio"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	ffmpeg       *mockFFmpegFactory
	codec        *mockCodecFactory
	analyzer     *mockAnalyzerFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		configLoader: &mockConfigLoader{},
		ffmpeg:       &mockFFmpegFactory{resolver: &mockFFmpegResolver{}},
		codec:        &mockCodecFactory{},
		analyzer:     &mockAnalyzerFactory{analyzer: &mockAnalyzer{}},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stderr     io.Writer
	stdout     io.Writer
	getenv     func(string) string
	configPath string
	mocks      *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStderr(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stderr = w }
}

func withTestStdout(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stdout = w }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestConfigPath(p string) testEnvOption {
	return func(o *testEnvOptions) { o.configPath = p }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(t *testing.T, opts ...testEnvOption) (*Env, *testMocks) {
	t.Helper()
	options := &testEnvOptions{
		stderr:     &syncBuffer{},
		stdout:     &syncBuffer{},
		getenv:     staticEnv(nil),
		configPath: filepath.Join(t.TempDir(), "config.yaml"),
		mocks:      newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stderr:          options.stderr,
		Stdout:          options.stdout,
		Getenv:          options.getenv,
		Now:             fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		Version:         "test",
		ConfigPath:      func() (string, error) { return options.configPath, nil },
		ConfigLoader:    options.mocks.configLoader,
		FFmpegFactory:   options.mocks.ffmpeg,
		CodecFactory:    options.mocks.codec,
		AnalyzerFactory: options.mocks.analyzer,
	}

	return env, options.mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// runRoot executes the root command with args.
func runRoot(ctx context.Context, env *Env, args ...string) error {
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	cmd := RootCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(ctx)
}

// writeConstantWAV writes n samples of a constant 0.2 level at sr.
func writeConstantWAV(t *testing.T, path string, n, sr int) {
	t.Helper()
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.2
	}
	if err := audio.NewWAVCodec().Save(audio.Buffer{Samples: s, SampleRate: sr, BitDepth: 16}, path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
