// Package ratelimit implements a client-side sliding-window limiter whose
// requests-per-minute ceiling adapts to provider throttling feedback.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// Window is the trailing interval over which calls are counted.
const Window = 60 * time.Second

const (
	// successesPerStep is how many cumulative successes raise the ceiling by one.
	successesPerStep = 10
	// errorsPerBackoff is how many net errors lower the ceiling.
	errorsPerBackoff = 3
	// backoffStep is how far the ceiling drops after errorsPerBackoff errors.
	backoffStep = 2
)

// Limits bounds the adaptive ceiling.
type Limits struct {
	MinRPM  int `mapstructure:"min_rpm" yaml:"min_rpm"`
	MaxRPM  int `mapstructure:"max_rpm" yaml:"max_rpm"`
	BaseRPM int `mapstructure:"base_rpm" yaml:"base_rpm"`
}

var (
	// FreeLimits matches a free-tier key: few requests per minute.
	FreeLimits = Limits{MinRPM: 2, MaxRPM: 10, BaseRPM: 8}
	// PaidLimits matches a paid key.
	PaidLimits = Limits{MinRPM: 10, MaxRPM: 60, BaseRPM: 30}
)

// LimitsFor returns the default limits for an account type. Unknown types get
// the free limits.
func LimitsFor(account models.AccountType) Limits {
	if account == models.AccountPaid {
		return PaidLimits
	}
	return FreeLimits
}

// Normalize returns a copy with MinRPM >= 1, MaxRPM >= MinRPM and BaseRPM
// clamped into [MinRPM, MaxRPM].
func (l Limits) Normalize() Limits {
	if l.MinRPM < 1 {
		l.MinRPM = 1
	}
	if l.MaxRPM < l.MinRPM {
		l.MaxRPM = l.MinRPM
	}
	if l.BaseRPM < l.MinRPM {
		l.BaseRPM = l.MinRPM
	}
	if l.BaseRPM > l.MaxRPM {
		l.BaseRPM = l.MaxRPM
	}
	return l
}

// Stats is a point-in-time snapshot of limiter state.
type Stats struct {
	Ceiling   int
	MinRPM    int
	MaxRPM    int
	InWindow  int
	Successes int
	Errors    int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleeper replaces the context-aware sleep used while waiting for admission.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithJitter replaces the 1-3s jitter source added to computed waits.
func WithJitter(jitter func() time.Duration) Option {
	return func(l *Limiter) { l.jitter = jitter }
}

// WithLogger sets the logger for ceiling changes and waits.
func WithLogger(logger logging.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// Limiter admits calls while fewer than Ceiling() calls happened in the last
// Window. All state is guarded by one mutex; waiting never holds it.
type Limiter struct {
	mu        sync.Mutex
	limits    Limits
	ceiling   int
	calls     []time.Time
	successes int
	errors    int

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
	logger logging.Logger
}

// New creates a Limiter starting at the base ceiling.
func New(limits Limits, opts ...Option) *Limiter {
	limits = limits.Normalize()
	l := &Limiter{
		limits:  limits,
		ceiling: limits.BaseRPM,
		now:     time.Now,
		sleep:   sleepContext,
		jitter:  defaultJitter,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAdmit records a call and returns true if the window has room.
func (l *Limiter) TryAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.admitLocked()
	return ok
}

// WaitUntilAdmitted blocks until a call is admitted or ctx is done.
// It returns how long it waited.
func (l *Limiter) WaitUntilAdmitted(ctx context.Context) (time.Duration, error) {
	start := l.now()
	for {
		if err := ctx.Err(); err != nil {
			return l.now().Sub(start), err
		}

		l.mu.Lock()
		wait, ok := l.admitLocked()
		ceiling := l.ceiling
		l.mu.Unlock()

		if ok {
			return l.now().Sub(start), nil
		}

		l.logger.Log("[ratelimit] ceiling %d rpm reached, waiting %s", ceiling, wait.Round(time.Millisecond))
		if err := l.sleep(ctx, wait); err != nil {
			return l.now().Sub(start), err
		}
	}
}

// admitLocked prunes the window and admits if there is room. When there is
// not, it returns how long to wait before trying again. Caller holds l.mu.
func (l *Limiter) admitLocked() (time.Duration, bool) {
	now := l.now()
	l.pruneLocked(now)

	if len(l.calls) < l.ceiling {
		l.calls = append(l.calls, now)
		return 0, true
	}

	if len(l.calls) == 0 {
		return Window / time.Duration(l.ceiling), false
	}

	wait := Window - now.Sub(l.calls[0]) + l.jitter()
	if wait < 0 {
		wait = 0
	}
	return wait, false
}

// pruneLocked drops timestamps at or before now-Window. Timestamps are
// appended in order, so the retained suffix starts at the first newer entry.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// RecordSuccess notes a successful call. Every 10th cumulative success raises
// the ceiling by one, up to MaxRPM.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successes++
	if l.errors > 0 {
		l.errors--
	}

	if l.successes%successesPerStep == 0 && l.ceiling < l.limits.MaxRPM {
		l.ceiling++
		l.logger.Log("[ratelimit] %d successes, raising ceiling to %d rpm", l.successes, l.ceiling)
	}
}

// RecordError notes a throttled call. Three net errors lower the ceiling by
// two, not below MinRPM, and reset the error count.
func (l *Limiter) RecordError() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.errors++
	if l.errors < errorsPerBackoff {
		return
	}

	old := l.ceiling
	l.ceiling = max(l.limits.MinRPM, l.ceiling-backoffStep)
	l.errors = 0
	l.logger.Log("[ratelimit] repeated throttling, lowering ceiling %d -> %d rpm", old, l.ceiling)
}

// Ceiling returns the current admission ceiling.
func (l *Limiter) Ceiling() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ceiling
}

// Limits returns the bounds the limiter was created with.
func (l *Limiter) Limits() Limits {
	return l.limits
}

// Stats returns a snapshot of the limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	return Stats{
		Ceiling:   l.ceiling,
		MinRPM:    l.limits.MinRPM,
		MaxRPM:    l.limits.MaxRPM,
		InWindow:  len(l.calls),
		Successes: l.successes,
		Errors:    l.errors,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultJitter() time.Duration {
	return time.Second + rand.N(2*time.Second)
}
