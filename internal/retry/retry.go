package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ShayCichocki/crewforge/internal/logging"
)

// Admitter is the rate limiter surface the retrier needs.
type Admitter interface {
	WaitUntilAdmitted(ctx context.Context) (time.Duration, error)
	RecordSuccess()
	RecordError()
}

// Policy holds the retry budget and delays.
type Policy struct {
	// MaxRetries bounds retries after throttling errors.
	MaxRetries int `mapstructure:"max_retries"`
	// BaseDelay is doubled for each throttling retry when the provider gives no hint.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// TransientRetries bounds retries after unclassified errors.
	TransientRetries int `mapstructure:"transient_retries"`
	// TransientDelay is the fixed wait between transient retries.
	TransientDelay time.Duration `mapstructure:"transient_delay"`
	// SuggestedJitterMin and SuggestedJitterMax bound the jitter added to a
	// provider-suggested delay.
	SuggestedJitterMin time.Duration `mapstructure:"suggested_jitter_min"`
	SuggestedJitterMax time.Duration `mapstructure:"suggested_jitter_max"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         5,
		BaseDelay:          30 * time.Second,
		TransientRetries:   2,
		TransientDelay:     5 * time.Second,
		SuggestedJitterMin: 5 * time.Second,
		SuggestedJitterMax: 10 * time.Second,
	}
}

// Validate replaces out-of-range values with defaults.
func (p *Policy) Validate() {
	d := DefaultPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.TransientRetries < 0 {
		p.TransientRetries = d.TransientRetries
	}
	if p.TransientDelay <= 0 {
		p.TransientDelay = d.TransientDelay
	}
	if p.SuggestedJitterMin < 0 {
		p.SuggestedJitterMin = d.SuggestedJitterMin
	}
	if p.SuggestedJitterMax < p.SuggestedJitterMin {
		p.SuggestedJitterMax = p.SuggestedJitterMin
	}
}

// Attempt describes one scheduled retry. It is handed to the notify hook.
type Attempt struct {
	// Index counts retries of this kind, starting at 0.
	Index int
	Kind  ErrorKind
	Delay time.Duration
	Err   error
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithLogger sets the logger for retry decisions.
func WithLogger(logger logging.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// WithTimer replaces the timer used to sleep between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(r *Retrier) { r.newTimer = newTimer }
}

// WithJitter replaces the source of jitter added to suggested delays.
func WithJitter(jitter func(min, max time.Duration) time.Duration) Option {
	return func(r *Retrier) { r.jitter = jitter }
}

// WithNotify registers a hook called before every retry sleep.
func WithNotify(fn func(Attempt)) Option {
	return func(r *Retrier) { r.notify = fn }
}

// Retrier runs model calls through the rate limiter and retries them
// according to how they failed.
type Retrier struct {
	limiter  Admitter
	policy   Policy
	logger   logging.Logger
	newTimer func() backoff.Timer
	jitter   func(min, max time.Duration) time.Duration
	notify   func(Attempt)
}

// New creates a Retrier bound to limiter.
func New(limiter Admitter, policy Policy, opts ...Option) *Retrier {
	policy.Validate()
	r := &Retrier{
		limiter: limiter,
		policy:  policy,
		logger:  logging.NopLogger(),
		jitter:  uniformJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retry policy in effect.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Execute waits for admission, invokes call and handles its failure:
//   - throttling is recorded on the limiter and retried up to MaxRetries times,
//     then fails with ErrRetryExhausted
//   - quota errors fail immediately with ErrQuotaExceeded
//   - anything else is retried TransientRetries times, then returned unchanged
//
// Context cancellation is returned as-is at any point.
func (r *Retrier) Execute(ctx context.Context, call func(context.Context) error) error {
	run := &attemptBackOff{policy: r.policy, jitter: r.jitter}
	attempts := 0

	operation := func() error {
		attempts++
		if _, err := r.limiter.WaitUntilAdmitted(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := call(ctx)
		if err == nil {
			r.limiter.RecordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		kind := Classify(err)
		run.lastKind = kind
		run.lastErr = err

		switch kind {
		case KindRateLimited:
			r.limiter.RecordError()
		case KindQuotaExceeded:
			r.logger.Log("[retry] quota exceeded on attempt %d, not retrying: %v", attempts, err)
			return backoff.Permanent(&CallError{Kind: KindQuotaExceeded, Attempts: attempts, Err: err})
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		a := Attempt{Index: run.lastIndex, Kind: run.lastKind, Delay: next, Err: err}
		r.logger.Log("[retry] attempt %d failed (%s), retry #%d in %s: %v",
			attempts, a.Kind, a.Index+1, next.Round(time.Millisecond), err)
		if r.notify != nil {
			r.notify(a)
		}
	}

	var timer backoff.Timer
	if r.newTimer != nil {
		timer = r.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(run, ctx), notify, timer)
	if err == nil {
		return nil
	}

	if run.exhausted && run.lastKind == KindRateLimited && ctx.Err() == nil {
		r.logger.Log("[retry] giving up after %d attempts: %v", attempts, err)
		return &CallError{Kind: KindRateLimited, Attempts: attempts, Exhausted: true, Err: err}
	}
	return err
}

// attemptBackOff computes the delay for the next attempt from the kind of
// the last failure. Each kind has its own budget.
type attemptBackOff struct {
	policy Policy
	jitter func(min, max time.Duration) time.Duration

	lastKind  ErrorKind
	lastErr   error
	lastIndex int

	rateLimitRetries int
	transientRetries int
	exhausted        bool
}

var _ backoff.BackOff = (*attemptBackOff)(nil)

func (b *attemptBackOff) Reset() {
	b.rateLimitRetries = 0
	b.transientRetries = 0
	b.exhausted = false
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	switch b.lastKind {
	case KindRateLimited:
		if b.rateLimitRetries >= b.policy.MaxRetries {
			b.exhausted = true
			return backoff.Stop
		}
		b.lastIndex = b.rateLimitRetries
		b.rateLimitRetries++
		return b.rateLimitDelay(b.lastIndex)
	case KindTransient:
		if b.transientRetries >= b.policy.TransientRetries {
			b.exhausted = true
			return backoff.Stop
		}
		b.lastIndex = b.transientRetries
		b.transientRetries++
		return b.policy.TransientDelay
	default:
		return backoff.Stop
	}
}

// rateLimitDelay honors a provider-suggested delay plus jitter, otherwise
// doubles BaseDelay per retry.
func (b *attemptBackOff) rateLimitDelay(index int) time.Duration {
	if suggested, ok := SuggestedDelay(b.lastErr); ok {
		return suggested + b.jitter(b.policy.SuggestedJitterMin, b.policy.SuggestedJitterMax)
	}
	return b.policy.BaseDelay * time.Duration(1<<index)
}

func uniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}
