// Package interrupt implements two-stage Ctrl+C handling for a split run.
//
// The first SIGINT/SIGTERM cancels the returned context: no further files or
// clips are started, but clips already queued are still normalized. A second
// signal within the window exits immediately with ExitInterrupt. A second
// signal after the window restarts it.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// Window is the default time within which a second signal aborts the run.
const Window = 2 * time.Second

// User-facing messages.
const (
	stopMessage  = "\nStopping after the current clip; queued clips are still normalized. Press Ctrl+C again to abort."
	abortMessage = "\nAborted."
)

// Stage is how far a run has been interrupted.
type Stage int

const (
	// Running means no signal was received.
	Running Stage = iota
	// Stopping means intake is canceled and queued work is finishing.
	Stopping
	// Aborted means a second signal arrived within the window.
	Aborted
)

func (s Stage) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Handler tracks the interrupt stage of one run.
type Handler struct {
	mu       sync.Mutex
	stage    Stage
	lastStop time.Time // when the current window opened
	closed   bool
	cancel   context.CancelFunc
	quit     chan struct{}

	window  time.Duration
	signals <-chan os.Signal
	owned   chan os.Signal // subscribed by New, released by Close
	exit    func(int)
	now     func() time.Time
	out     io.Writer // must be safe for concurrent writes
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignals replaces the OS subscription with ch.
func WithSignals(ch <-chan os.Signal) Option {
	return func(h *Handler) { h.signals = ch }
}

// WithExit sets the function called on abort.
func WithExit(fn func(int)) Option {
	return func(h *Handler) { h.exit = fn }
}

// WithClock sets the time source used for the abort window.
func WithClock(fn func() time.Time) Option {
	return func(h *Handler) { h.now = fn }
}

// WithOutput sets where user-facing messages go.
func WithOutput(w io.Writer) Option {
	return func(h *Handler) { h.out = w }
}

// WithWindow sets the abort window.
func WithWindow(d time.Duration) Option {
	return func(h *Handler) { h.window = d }
}

// New returns a Handler and a context canceled on the first signal or when
// parent ends. Without WithSignals it listens for SIGINT and SIGTERM.
// Call Close when the run is over.
func New(parent context.Context, opts ...Option) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		cancel: cancel,
		quit:   make(chan struct{}),
		window: Window,
		exit:   os.Exit,
		now:    time.Now,
		out:    os.Stderr,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.signals == nil {
		h.owned = make(chan os.Signal, 2)
		signal.Notify(h.owned, syscall.SIGINT, syscall.SIGTERM)
		h.signals = h.owned
	}
	go h.listen()

	return h, ctx
}

func (h *Handler) listen() {
	for {
		select {
		case <-h.quit:
			return
		case _, ok := <-h.signals:
			if !ok || h.receive() == Aborted {
				return
			}
		}
	}
}

// receive applies one signal and returns the resulting stage.
func (h *Handler) receive() Stage {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return h.stage
	}
	now := h.now()

	if h.stage == Stopping && now.Sub(h.lastStop) <= h.window {
		h.stage = Aborted
		h.mu.Unlock()
		_, _ = fmt.Fprintln(h.out, abortMessage)
		h.exit(ExitInterrupt)
		return Aborted
	}

	// First signal, or a late second one: (re)open the window.
	h.stage = Stopping
	h.lastStop = now
	h.mu.Unlock()
	h.cancel()
	_, _ = fmt.Fprintln(h.out, stopMessage)
	return Stopping
}

// Stage returns the current stage.
func (h *Handler) Stage() Stage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stage
}

// Interrupted reports whether at least one signal was received.
func (h *Handler) Interrupted() bool {
	return h.Stage() != Running
}

// Close stops listening. Signals received afterwards are ignored. Close is
// idempotent.
func (h *Handler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	if h.owned != nil {
		signal.Stop(h.owned)
	}
	close(h.quit)
}
