// Package normalize peak-normalizes written clips on a fixed pool of
// background workers.
//
// Submission never blocks the splitting pipeline: jobs go to an unbounded
// FIFO drained by exactly N goroutines. Each job loads a clip, scales it so
// its peak sits at the target level, writes the result through a temporary
// file and only then removes the original.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/format"
	"github.com/alnah/vstprep/internal/observe"
)

// Defaults.
const (
	DefaultWorkers    = 4
	DefaultTargetDBFS = -1.0
)

// tempPattern names in-progress outputs next to their destination.
const tempPattern = ".normalizing-*.wav"

// Submitter accepts clips for background normalization.
type Submitter interface {
	Submit(source, destination string) error
}

// Compile-time interface implementation check.
var _ Submitter = (*Scheduler)(nil)

// Scheduler runs normalization jobs on a fixed worker pool.
// Drain must be called to release the workers.
type Scheduler struct {
	codec      audio.Codec
	fs         fileSystem
	logger     *slog.Logger
	metrics    *observe.Metrics
	targetDBFS float64
	workers    int

	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []*Job
	queue  []*Job
	closed bool

	group    errgroup.Group
	waitOnce sync.Once
	done     chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCodec sets the codec used to read and write clips.
func WithCodec(c audio.Codec) Option {
	return func(s *Scheduler) { s.codec = c }
}

// WithLogger sets the logger for job outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics sets the instruments updated by the pool.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTargetDBFS sets the peak level clips are normalized to.
func WithTargetDBFS(db float64) Option {
	return func(s *Scheduler) { s.targetDBFS = db }
}

// WithFileSystem sets the file operations used by jobs.
func WithFileSystem(fs fileSystem) Option {
	return func(s *Scheduler) { s.fs = fs }
}

// NewScheduler starts a pool of workers. workers < 1 is treated as 1.
func NewScheduler(workers int, opts ...Option) *Scheduler {
	s := &Scheduler{
		codec:      audio.NewWAVCodec(),
		fs:         osFileSystem{},
		logger:     slog.New(slog.DiscardHandler),
		targetDBFS: DefaultTargetDBFS,
		workers:    max(1, workers),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cond = sync.NewCond(&s.mu)

	for range s.workers {
		s.group.Go(s.work)
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Submit queues source for normalization into destination and returns
// immediately.
func (s *Scheduler) Submit(source, destination string) error {
	if source == "" || destination == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidJob)
	}
	if filepath.Clean(source) == filepath.Clean(destination) {
		return fmt.Errorf("%w: source and destination are both %s", ErrInvalidJob, source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	job := &Job{Source: source, Destination: destination, Status: Pending}
	s.jobs = append(s.jobs, job)
	s.queue = append(s.queue, job)
	s.metrics.QueueChanged(context.Background(), 1)
	s.cond.Signal()
	return nil
}

// Drain stops intake and waits until every submitted job is terminal.
// It returns the jobs in submission order. If ctx ends first, Drain returns
// the current snapshot and ctx's error; running jobs are not interrupted and
// a later Drain can wait again.
func (s *Scheduler) Drain(ctx context.Context) ([]Job, error) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cond.Broadcast()
	}
	s.mu.Unlock()

	s.waitOnce.Do(func() {
		go func() {
			_ = s.group.Wait()
			close(s.done)
		}()
	})

	select {
	case <-s.done:
		return s.Jobs(), nil
	case <-ctx.Done():
		return s.Jobs(), ctx.Err()
	}
}

// Jobs returns a snapshot of all jobs in submission order.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	return out
}

// Stats counts jobs by status.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, j := range s.jobs {
		switch j.Status {
		case Pending:
			st.Pending++
		case Running:
			st.Running++
		case Succeeded:
			st.Succeeded++
		case Failed:
			st.Failed++
		}
	}
	return st
}

// work is the worker loop: pop, run, repeat until closed and empty.
func (s *Scheduler) work() error {
	for {
		job, ok := s.next()
		if !ok {
			return nil
		}
		s.run(job)
	}
}

// next blocks until a job is available or the queue is closed and empty.
func (s *Scheduler) next() (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	job.Status = Running
	s.metrics.QueueChanged(context.Background(), -1)
	return job, true
}

func (s *Scheduler) run(job *Job) {
	ctx := context.Background()
	start := time.Now()

	peakDB, gainDB, err := s.normalize(ctx, job.Source, job.Destination)

	s.mu.Lock()
	job.PeakDBFS = peakDB
	job.GainDB = gainDB
	job.Err = err
	job.Status = Succeeded
	if err != nil {
		job.Status = Failed
	}
	status := job.Status
	s.mu.Unlock()

	s.metrics.RecordJob(ctx, status.String(), time.Since(start))
	if err != nil {
		s.logger.Error("normalization failed", "source", job.Source, "error", err)
		return
	}
	s.logger.Info("normalized",
		"dest", filepath.Base(job.Destination),
		"peak", format.Decibels(peakDB),
		"gain", format.Decibels(gainDB))
}

// normalize performs one job. On error no file produced by the job remains
// and the source is untouched.
func (s *Scheduler) normalize(ctx context.Context, source, dest string) (peakDB, gainDB float64, err error) {
	buf, err := s.codec.Load(ctx, source)
	if err != nil {
		return 0, 0, fmt.Errorf("load: %w", err)
	}

	peak := buf.Peak()
	gain := Gain(peak, s.targetDBFS)
	peakDB = audio.AmplitudeToDB(peak)
	gainDB = audio.AmplitudeToDB(gain)

	tmp, err := s.fs.CreateTemp(filepath.Dir(dest), tempPattern)
	if err != nil {
		return peakDB, gainDB, fmt.Errorf("create temp file: %w", err)
	}
	if err := s.codec.Save(Apply(buf, gain), tmp); err != nil {
		_ = s.fs.Remove(tmp)
		return peakDB, gainDB, fmt.Errorf("save: %w", err)
	}
	if err := s.fs.Rename(tmp, dest); err != nil {
		_ = s.fs.Remove(tmp)
		return peakDB, gainDB, fmt.Errorf("move into place: %w", err)
	}
	if err := s.fs.Remove(source); err != nil {
		_ = s.fs.Remove(dest)
		return peakDB, gainDB, fmt.Errorf("%w: %s: %w", ErrSourceRemoval, source, err)
	}
	return peakDB, gainDB, nil
}

// Gain returns the linear factor that brings peak to targetDBFS.
// Silence gets unity gain.
func Gain(peak, targetDBFS float64) float64 {
	if !(peak > 0) || math.IsInf(peak, 0) {
		return 1
	}
	return audio.DBToAmplitude(targetDBFS) / peak
}

// Apply returns a copy of buf scaled by gain and clamped to [-1, 1].
func Apply(buf audio.Buffer, gain float64) audio.Buffer {
	out := make([]float64, len(buf.Samples))
	for i, v := range buf.Samples {
		out[i] = math.Max(-1, math.Min(1, v*gain))
	}
	return audio.Buffer{Samples: out, SampleRate: buf.SampleRate, BitDepth: buf.BitDepth}
}
