// Package scheduler drives the periodic broadcast.
//
// A Scheduler owns one ticker. On every tick it renders a message, takes a
// snapshot of the registry and makes exactly one delivery attempt per handle.
// Handles whose attempt fails are evicted from the registry and closed;
// nothing else about a failed attempt escapes the tick.
//
// Ticks never overlap. They run one after another on the goroutine that called
// Run, and the ticker buffers at most one pending tick, so a tick that outlives
// the period delays the next one instead of running beside it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"tickcast/pkg/logger"
	"tickcast/pkg/metrics"
	"tickcast/pkg/registry"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSendTimeout        = 5 * time.Second
	defaultMaxConcurrentSends = 100
)

var (
	ErrInvalidPeriod  = errors.New("tick period must be positive")
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// TickResult summarises one tick.
type TickResult struct {
	Recipients int
	Delivered  int
	Failed     int
	Duration   time.Duration
	Err        error
}

type Scheduler struct {
	registry      *registry.Registry
	logger        *logger.Logger
	clock         clockwork.Clock
	period        time.Duration
	sendTimeout   time.Duration
	maxConcurrent int
	message       MessageFunc

	state atomic.Int32
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.sendTimeout = timeout
		}
	}
}

// WithMaxConcurrentSends caps how many deliveries of one tick run at once.
func WithMaxConcurrentSends(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

func WithMessageFunc(fn MessageFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.message = fn
		}
	}
}

func New(reg *registry.Registry, log *logger.Logger, period time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:      reg,
		logger:        log,
		clock:         clockwork.NewRealClock(),
		period:        period,
		sendTimeout:   defaultSendTimeout,
		maxConcurrent: defaultMaxConcurrentSends,
		message:       defaultMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Run ticks until ctx is cancelled and then returns nil. It only returns an
// error when the timer cannot be started.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.period <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, s.period)
	}
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return ErrAlreadyRunning
	}
	defer s.state.Store(int32(StateStopped))

	ticker := s.clock.NewTicker(s.period)
	defer ticker.Stop()

	s.logger.PrintfInfo("Broadcast scheduler started with a period of %s", s.period)

	for {
		select {
		case <-ctx.Done():
			s.logger.PrintfInfo("Broadcast scheduler stopped")
			return nil
		case <-ticker.Chan():
			result := s.Tick(ctx)
			if result.Err == nil {
				s.logger.PrintfDebug("Tick delivered to %d/%d clients in %s", result.Delivered, result.Recipients, result.Duration)
			}
		}
	}
}

// Tick runs one broadcast. It never panics; failures are reported in the
// result and in the log.
func (s *Scheduler) Tick(ctx context.Context) (result TickResult) {
	start := s.clock.Now()
	metrics.TicksTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			s.logger.PrintfError("Panic recovered in tick: %v", r)
			metrics.TickErrorsTotal.WithLabelValues("panic").Inc()
			result.Err = fmt.Errorf("tick panicked: %v", r)
		}

		result.Duration = s.clock.Since(start)
		metrics.TickDuration.Observe(result.Duration.Seconds())
		if s.period > 0 && result.Duration > s.period {
			s.logger.PrintfWarning("Tick took %s, longer than the period of %s", result.Duration, s.period)
			metrics.SlowTicksTotal.Inc()
		}
	}()

	msg, err := s.message(start)
	if err != nil {
		s.logger.PrintfError("Failed to compute broadcast message: %v", err)
		metrics.TickErrorsTotal.WithLabelValues("message").Inc()
		result.Err = fmt.Errorf("compute message: %w", err)
		return result
	}

	handles := s.registry.Snapshot()
	result.Recipients = len(handles)

	var delivered, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)

	for _, h := range handles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.PrintfError("Panic recovered while handling a delivery: %v", r)
					metrics.TickErrorsTotal.WithLabelValues("panic").Inc()
				}
			}()

			err := s.deliver(ctx, h, msg)
			switch {
			case err == nil:
				delivered.Add(1)
				metrics.DeliveriesTotal.WithLabelValues("success").Inc()
			case ctx.Err() != nil:
				// shutting down; the client is not at fault
			default:
				failed.Add(1)
				metrics.DeliveriesTotal.WithLabelValues("failure").Inc()
				s.evict(h, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Delivered = int(delivered.Load())
	result.Failed = int(failed.Load())
	return result
}

// deliver makes one attempt and waits at most sendTimeout for it, even when the
// handle ignores its context.
func (s *Scheduler) deliver(ctx context.Context, h registry.Handle, msg string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("send panicked: %v", r)
			}
		}()
		done <- h.Send(sendCtx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("send timed out: %w", sendCtx.Err())
	}
}

// evict drops h from the registry and releases it when it holds resources of
// its own. Closing is idempotent on the handle side.
func (s *Scheduler) evict(h registry.Handle, cause error) {
	id := h.ID()
	if s.registry.Remove(id) {
		metrics.EvictionsTotal.Inc()
		s.logger.WithField("client_id", id).PrintfWarning("Removed client after failed delivery: %v", cause)
	}

	if closer, ok := h.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.WithField("client_id", id).PrintfDebug("Failed to close evicted client: %v", err)
		}
	}
}
