package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// fakeClock is a manual clock whose sleeper advances time instantly.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	c.Advance(d)
	return nil
}

func fixedJitter(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

func newTestLimiter(limits Limits, clock *fakeClock) *Limiter {
	return New(limits,
		WithClock(clock.Now),
		WithSleeper(clock.Sleep),
		WithJitter(fixedJitter(2*time.Second)),
	)
}

func TestLimitsFor(t *testing.T) {
	if got := LimitsFor(models.AccountPaid); got != PaidLimits {
		t.Errorf("LimitsFor(paid) = %+v, want %+v", got, PaidLimits)
	}
	if got := LimitsFor(models.AccountFree); got != FreeLimits {
		t.Errorf("LimitsFor(free) = %+v, want %+v", got, FreeLimits)
	}
	if got := LimitsFor(models.AccountType("")); got != FreeLimits {
		t.Errorf("LimitsFor(unknown) = %+v, want free limits", got)
	}
}

func TestLimits_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Limits
		want Limits
	}{
		{"already valid", Limits{2, 10, 5}, Limits{2, 10, 5}},
		{"base above max", Limits{2, 10, 50}, Limits{2, 10, 10}},
		{"base below min", Limits{5, 10, 1}, Limits{5, 10, 5}},
		{"zero min", Limits{0, 10, 5}, Limits{1, 10, 5}},
		{"max below min", Limits{5, 3, 4}, Limits{5, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTryAdmit_RespectsCeiling(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 1, MaxRPM: 5, BaseRPM: 3}, clock)

	for i := 0; i < 3; i++ {
		if !l.TryAdmit() {
			t.Fatalf("call %d should be admitted", i+1)
		}
		clock.Advance(time.Second)
	}
	if l.TryAdmit() {
		t.Fatal("4th call within the window should be rejected")
	}

	// First call was at t0; at t0+60s it falls out of the window.
	clock.Advance(57 * time.Second)
	if !l.TryAdmit() {
		t.Error("call should be admitted once the oldest entry expires")
	}
}

func TestWaitUntilAdmitted_WaitsForOldestToExpire(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 1, MaxRPM: 5, BaseRPM: 2}, clock)

	l.TryAdmit()
	clock.Advance(10 * time.Second)
	l.TryAdmit()
	clock.Advance(10 * time.Second)

	waited, err := l.WaitUntilAdmitted(context.Background())
	if err != nil {
		t.Fatalf("WaitUntilAdmitted() error = %v", err)
	}

	// 60s - 20s elapsed since oldest + 2s jitter.
	want := 42 * time.Second
	if waited != want {
		t.Errorf("waited = %v, want %v", waited, want)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != want {
		t.Errorf("sleeps = %v, want [%v]", clock.sleeps, want)
	}
	if got := l.Stats().InWindow; got != 2 {
		t.Errorf("InWindow = %d, want 2", got)
	}
}

func TestWaitUntilAdmitted_NoWaitWhenRoom(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(FreeLimits, clock)

	waited, err := l.WaitUntilAdmitted(context.Background())
	if err != nil {
		t.Fatalf("WaitUntilAdmitted() error = %v", err)
	}
	if waited != 0 {
		t.Errorf("waited = %v, want 0", waited)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("unexpected sleeps: %v", clock.sleeps)
	}
}

func TestWaitUntilAdmitted_NeverExceedsCeilingInAnyWindow(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 2, MaxRPM: 4, BaseRPM: 4}, clock)

	var admitted []time.Time
	for i := 0; i < 40; i++ {
		if _, err := l.WaitUntilAdmitted(context.Background()); err != nil {
			t.Fatalf("WaitUntilAdmitted() error = %v", err)
		}
		admitted = append(admitted, clock.Now())
		clock.Advance(3 * time.Second)
	}

	ceiling := l.Ceiling()
	for i := range admitted {
		count := 0
		for j := 0; j <= i; j++ {
			if admitted[i].Sub(admitted[j]) < Window {
				count++
			}
		}
		if count > ceiling {
			t.Fatalf("window ending at call %d holds %d calls, ceiling %d", i, count, ceiling)
		}
	}
}

func TestWaitUntilAdmitted_ContextCancelled(t *testing.T) {
	l := New(Limits{MinRPM: 1, MaxRPM: 1, BaseRPM: 1}, WithJitter(fixedJitter(time.Second)))
	if !l.TryAdmit() {
		t.Fatal("first call should be admitted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.WaitUntilAdmitted(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	stats := l.Stats()
	if stats.InWindow != 1 || stats.Ceiling != 1 {
		t.Errorf("state changed after cancellation: %+v", stats)
	}
}

func TestRecordError_LowersCeilingAfterThree(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 2, MaxRPM: 10, BaseRPM: 8}, clock)

	l.RecordError()
	l.RecordError()
	if got := l.Ceiling(); got != 8 {
		t.Fatalf("ceiling after 2 errors = %d, want 8", got)
	}

	l.RecordError()
	if got := l.Ceiling(); got != 6 {
		t.Errorf("ceiling after 3 errors = %d, want 6", got)
	}
	if got := l.Stats().Errors; got != 0 {
		t.Errorf("error counter = %d, want reset to 0", got)
	}
}

func TestRecordError_ClampsToMin(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 2, MaxRPM: 10, BaseRPM: 3}, clock)

	for i := 0; i < 9; i++ {
		l.RecordError()
		if c := l.Ceiling(); c < 2 || c > 10 {
			t.Fatalf("ceiling %d out of bounds after %d errors", c, i+1)
		}
	}
	if got := l.Ceiling(); got != 2 {
		t.Errorf("ceiling = %d, want min 2", got)
	}
}

func TestRecordSuccess_DecrementsErrors(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 2, MaxRPM: 10, BaseRPM: 8}, clock)

	l.RecordError()
	l.RecordError()
	l.RecordSuccess()
	l.RecordError()
	if got := l.Ceiling(); got != 8 {
		t.Errorf("ceiling = %d, want 8 (success should have offset one error)", got)
	}
	if got := l.Stats().Errors; got != 2 {
		t.Errorf("errors = %d, want 2", got)
	}

	l.RecordSuccess()
	l.RecordSuccess()
	l.RecordSuccess()
	if got := l.Stats().Errors; got != 0 {
		t.Errorf("errors = %d, want floor of 0", got)
	}
}

func TestRecordSuccess_RaisesCeilingEveryTenth(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 2, MaxRPM: 10, BaseRPM: 8}, clock)

	for i := 1; i <= 9; i++ {
		l.RecordSuccess()
	}
	if got := l.Ceiling(); got != 8 {
		t.Fatalf("ceiling after 9 successes = %d, want 8", got)
	}

	l.RecordSuccess()
	if got := l.Ceiling(); got != 9 {
		t.Fatalf("ceiling after 10 successes = %d, want 9", got)
	}

	for i := 0; i < 30; i++ {
		l.RecordSuccess()
	}
	if got := l.Ceiling(); got != 10 {
		t.Errorf("ceiling = %d, want capped at max 10", got)
	}
}

func TestLimiter_ConcurrentAdmission(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Limits{MinRPM: 1, MaxRPM: 20, BaseRPM: 7}, clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAdmit() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 7 {
		t.Errorf("admitted = %d, want 7", admitted)
	}
}
