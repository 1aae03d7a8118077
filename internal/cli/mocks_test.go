package cli

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/config"
	"github.com/alnah/vstprep/internal/dsp"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func(path string, getenv func(string) string) (config.Config, error)

	mu        sync.Mutex
	loadCalls int
	lastPath  string
}

func (m *mockConfigLoader) Load(path string, getenv func(string) string) (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.lastPath = path
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(path, getenv)
	}
	return config.Defaults(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

func (m *mockConfigLoader) LastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

// ---------------------------------------------------------------------------
// Mock FFmpegFactory + FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string) bool

	mu           sync.Mutex
	resolveCalls int
	versionCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) bool {
	m.mu.Lock()
	m.versionCalls++
	m.mu.Unlock()

	if m.CheckVersionFunc != nil {
		return m.CheckVersionFunc(ctx, ffmpegPath)
	}
	return true
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

func (m *mockFFmpegResolver) VersionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionCalls
}

type mockFFmpegFactory struct {
	resolver *mockFFmpegResolver

	mu       sync.Mutex
	lastPath string
}

func (m *mockFFmpegFactory) NewResolver(ffmpegPath string, _ *slog.Logger) FFmpegResolver {
	m.mu.Lock()
	m.lastPath = ffmpegPath
	m.mu.Unlock()

	if m.resolver == nil {
		m.resolver = &mockFFmpegResolver{}
	}
	return m.resolver
}

func (m *mockFFmpegFactory) LastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

// ---------------------------------------------------------------------------
// Mock CodecFactory
// ---------------------------------------------------------------------------

// mockCodecFactory returns a plain WAV codec unless NewCodecFunc is set.
type mockCodecFactory struct {
	NewCodecFunc func(resolver FFmpegResolver) audio.Codec
}

func (m *mockCodecFactory) NewCodec(resolver FFmpegResolver) audio.Codec {
	if m.NewCodecFunc != nil {
		return m.NewCodecFunc(resolver)
	}
	return audio.NewWAVCodec()
}

// ---------------------------------------------------------------------------
// Mock AnalyzerFactory + Analyzer
// ---------------------------------------------------------------------------

type mockAnalyzer struct {
	OnsetEnvelopeFunc     func(samples []float64, sampleRate, hop int) ([]float64, error)
	DominantFrequencyFunc func(samples []float64, sampleRate int) (float64, bool)
}

func (m *mockAnalyzer) OnsetEnvelope(samples []float64, sampleRate, hop int) ([]float64, error) {
	if m.OnsetEnvelopeFunc != nil {
		return m.OnsetEnvelopeFunc(samples, sampleRate, hop)
	}
	return make([]float64, 1+len(samples)/hop), nil
}

func (m *mockAnalyzer) DominantFrequency(samples []float64, sampleRate int) (float64, bool) {
	if m.DominantFrequencyFunc != nil {
		return m.DominantFrequencyFunc(samples, sampleRate)
	}
	return 0, false
}

type mockAnalyzerFactory struct {
	NewAnalyzerFunc func() (dsp.Analyzer, error)
	analyzer        *mockAnalyzer
}

func (m *mockAnalyzerFactory) NewAnalyzer() (dsp.Analyzer, error) {
	if m.NewAnalyzerFunc != nil {
		return m.NewAnalyzerFunc()
	}
	if m.analyzer == nil {
		m.analyzer = &mockAnalyzer{}
	}
	return m.analyzer, nil
}

// Compile-time interface verification.
var (
	_ ConfigLoader    = (*mockConfigLoader)(nil)
	_ FFmpegFactory   = (*mockFFmpegFactory)(nil)
	_ FFmpegResolver  = (*mockFFmpegResolver)(nil)
	_ CodecFactory    = (*mockCodecFactory)(nil)
	_ AnalyzerFactory = (*mockAnalyzerFactory)(nil)
	_ dsp.Analyzer    = (*mockAnalyzer)(nil)
)
