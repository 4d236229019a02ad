package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/activator"
	"github.com/dmitrijs2005/deadswitch/internal/clock"
	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/cryptox"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/mailbox"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/notify/notifytest"
	"github.com/dmitrijs2005/deadswitch/internal/switchstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "feedfacefeedfacefeedfacefeedface"

var epoch = time.Date(2024, time.May, 5, 9, 30, 0, 0, time.UTC)

type fixture struct {
	clock *clock.Fake
	state *switchstate.State
	rec   *notifytest.Recorder
	wd    *Watchdog
}

func newFixture(t *testing.T, thresholdDays int) *fixture {
	t.Helper()
	fc := clock.NewFake(epoch)
	st := switchstate.New(fc, secret)
	rec := notifytest.New()

	sender, err := mailbox.ParseSender("me@example.com")
	require.NoError(t, err)
	rcpts, err := mailbox.ParseAll([]string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	sealed, err := cryptox.Seal([]byte("top secret payload"))
	require.NoError(t, err)

	act := activator.New(rec, sender, rcpts, sealed, logging.Discard(), metrics.Nop{})
	wd, err := New(Config{Interval: time.Hour, ThresholdDays: thresholdDays}, st, fc, act, logging.Discard(), metrics.Nop{})
	require.NoError(t, err)

	return &fixture{clock: fc, state: st, rec: rec, wd: wd}
}

type panicActivator struct{}

func (panicActivator) Activate(context.Context) (activator.Report, error) {
	panic("transport exploded")
}

type countingActivator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingActivator) Activate(context.Context) (activator.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return activator.Report{}, nil
}

func TestNew_Validation(t *testing.T) {
	st := switchstate.New(clock.Real(), secret)
	act := &countingActivator{}

	_, err := New(Config{Interval: 0, ThresholdDays: 7}, st, clock.Real(), act, logging.Discard(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = New(Config{Interval: time.Hour, ThresholdDays: 0}, st, clock.Real(), act, logging.Discard(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = New(Config{Interval: time.Hour, ThresholdDays: 7}, nil, clock.Real(), act, logging.Discard(), nil)
	assert.Error(t, err)
}

func TestDue_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "fresh", elapsed: 0, want: false},
		{name: "6d23h", elapsed: 6*day + 23*time.Hour, want: false},
		{name: "6d23h59m59s", elapsed: 7*day - time.Second, want: false},
		{name: "exactly 7d", elapsed: 7 * day, want: true},
		{name: "8d", elapsed: 8 * day, want: true},
		{name: "clock went backwards", elapsed: -time.Hour, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Due(tt.elapsed, 7))
		})
	}
}

func TestTick_ThresholdBoundaryWithState(t *testing.T) {
	f := newFixture(t, 7)

	f.clock.Advance(6*day + 23*time.Hour)
	assert.False(t, f.wd.Tick(context.Background()))
	assert.Zero(t, f.rec.Calls())

	f.clock.Advance(time.Hour)
	assert.True(t, f.wd.Tick(context.Background()))
	assert.Equal(t, 2, f.rec.Calls())
}

func TestTick_ScenarioA_FiresExactlyOnce(t *testing.T) {
	f := newFixture(t, 1)

	f.clock.Advance(25 * time.Hour)
	require.True(t, f.wd.Tick(context.Background()))

	sent := f.rec.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@example.com", sent[0].To[0].Address())
	assert.Equal(t, "b@example.com", sent[1].To[0].Address())
	for _, msg := range sent {
		assert.Contains(t, msg.HTMLBody, "top secret payload")
	}

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Hour)
		assert.False(t, f.wd.Tick(context.Background()))
	}
	assert.Equal(t, 2, f.rec.Calls(), "later ticks must not resend")
	assert.False(t, f.state.Armed())
}

func TestTick_ScenarioB_HeartbeatPostponesActivation(t *testing.T) {
	f := newFixture(t, 1)

	f.clock.Advance(23 * time.Hour)
	require.True(t, f.state.RecordHeartbeat(secret))
	heartbeatAt := f.clock.Now()

	for f.clock.Now().Before(heartbeatAt.Add(day - time.Hour)) {
		f.clock.Advance(time.Hour)
		assert.False(t, f.wd.Tick(context.Background()), "fired at %s", f.clock.Now())
	}
	assert.Zero(t, f.rec.Calls())

	f.clock.Advance(heartbeatAt.Add(day).Sub(f.clock.Now()))
	assert.True(t, f.wd.Tick(context.Background()))
	assert.Equal(t, 2, f.rec.Calls())
}

func TestTick_ScenarioC_WrongTokenDoesNotPostpone(t *testing.T) {
	f := newFixture(t, 1)

	f.clock.Advance(23 * time.Hour)
	require.False(t, f.state.RecordHeartbeat("wrong"))

	f.clock.Advance(time.Hour)
	assert.True(t, f.wd.Tick(context.Background()))
}

func TestTick_ConcurrentTicksActivateOnce(t *testing.T) {
	fc := clock.NewFake(epoch)
	st := switchstate.New(fc, secret)
	act := &countingActivator{}
	wd, err := New(Config{Interval: time.Hour, ThresholdDays: 1}, st, fc, act, logging.Discard(), nil)
	require.NoError(t, err)

	fc.Advance(2 * day)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wd.Tick(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, act.calls)
}

func TestTick_ActivatorPanicLeavesSwitchFired(t *testing.T) {
	fc := clock.NewFake(epoch)
	st := switchstate.New(fc, secret)
	wd, err := New(Config{Interval: time.Hour, ThresholdDays: 1}, st, fc, panicActivator{}, logging.Discard(), nil)
	require.NoError(t, err)

	var hookErrs []error
	wd.OnActivated(func(r activator.Report, err error) {
		assert.Empty(t, r.Delivered())
		hookErrs = append(hookErrs, err)
	})

	fc.Advance(2 * day)

	assert.NotPanics(t, func() {
		assert.True(t, wd.Tick(context.Background()))
	})
	assert.NotPanics(t, func() {
		assert.False(t, wd.Tick(context.Background()))
	})

	assert.False(t, st.Armed())
	require.Len(t, hookErrs, 1)
	assert.ErrorContains(t, hookErrs[0], "transport exploded")
}

func TestTick_OnActivatedHook(t *testing.T) {
	f := newFixture(t, 1)

	var got []activator.Report
	f.wd.OnActivated(func(r activator.Report, err error) {
		assert.NoError(t, err)
		got = append(got, r)
	})

	f.clock.Advance(day)
	f.wd.Tick(context.Background())
	f.clock.Advance(day)
	f.wd.Tick(context.Background())

	require.Len(t, got, 1)
	assert.Len(t, got[0].Delivered(), 2)
}

func TestRun_TicksOnIntervalAndStops(t *testing.T) {
	f := newFixture(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.wd.Run(ctx)
		close(done)
	}()

	// the immediate start-up tick sees a fresh state
	waitTimers(t, f.clock, 1)
	assert.Zero(t, f.rec.Calls())

	f.clock.Advance(day - time.Hour)
	waitTimers(t, f.clock, 1)
	assert.Zero(t, f.rec.Calls())

	f.clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return f.rec.Calls() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog did not stop after cancel")
	}
}

// waitTimers blocks until exactly n timers are pending on fc.
func waitTimers(t *testing.T, fc *clock.Fake, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, n))
}
