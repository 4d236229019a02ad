// Package watchdog decides when the switch fires. On every tick it compares
// the whole days elapsed since the last heartbeat with the activation
// threshold and, once the threshold is reached, hands over to the activator
// through the switch's exactly-once gate.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/activator"
	"github.com/dmitrijs2005/deadswitch/internal/clock"
	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/switchstate"
)

const day = 24 * time.Hour

// Activator is the terminal action run when the switch fires.
type Activator interface {
	Activate(ctx context.Context) (activator.Report, error)
}

// Config is the watchdog's immutable runtime config.
type Config struct {
	Interval      time.Duration
	ThresholdDays int
}

type Watchdog struct {
	cfg       Config
	state     *switchstate.State
	clock     clock.Clock
	activator Activator
	logger    logging.Logger
	metrics   metrics.Recorder
	onFire    []func(activator.Report, error)
}

func New(cfg Config, s *switchstate.State, c clock.Clock, a Activator, l logging.Logger, m metrics.Recorder) (*Watchdog, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: watchdog interval must be > 0", common.ErrInvalidConfig)
	}
	if cfg.ThresholdDays < 1 {
		return nil, fmt.Errorf("%w: activation threshold must be at least 1 day", common.ErrInvalidConfig)
	}
	if s == nil || a == nil {
		return nil, errors.New("watchdog: state and activator are required")
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Watchdog{
		cfg:       cfg,
		state:     s,
		clock:     c,
		activator: a,
		logger:    l.With("module", "watchdog"),
		metrics:   m,
	}, nil
}

// OnActivated registers fn to run after the activator returns. Must be
// called before Run.
func (w *Watchdog) OnActivated(fn func(activator.Report, error)) {
	w.onFire = append(w.onFire, fn)
}

// Due reports whether elapsed, truncated to whole days, reaches the threshold.
func Due(elapsed time.Duration, thresholdDays int) bool {
	if elapsed < 0 {
		return false
	}
	return int64(elapsed/day) >= int64(thresholdDays)
}

// Tick performs exactly one evaluation and reports whether it fired. A panic
// inside the evaluation fails only this tick. Once the switch is disarmed the
// OnActivated hooks run even if the activator panics.
func (w *Watchdog) Tick(ctx context.Context) (fired bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "watchdog tick panicked", "panic", fmt.Sprint(r))
			fired = false
		}
	}()

	w.metrics.WatchdogTick()

	elapsed := w.state.TimeSinceLastHeartbeat()
	if !Due(elapsed, w.cfg.ThresholdDays) {
		w.logger.Debug(ctx, "switch holding", "elapsed", elapsed.String())
		return false
	}

	if !w.state.TryFire() {
		w.logger.Debug(ctx, "switch already fired")
		return false
	}
	w.metrics.Armed(false)

	w.logger.Warn(ctx, "activation threshold reached",
		"elapsed", elapsed.String(), "threshold_days", w.cfg.ThresholdDays)

	report, err := w.activate(ctx)
	if err != nil {
		w.logger.Error(ctx, "activation finished with errors",
			"delivered", len(report.Delivered()), "failed", len(report.Failed()), "error", err)
	} else {
		w.logger.Info(ctx, "activation finished", "delivered", len(report.Delivered()))
	}

	for _, fn := range w.onFire {
		fn(report, err)
	}
	return true
}

func (w *Watchdog) activate(ctx context.Context) (report activator.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report, err = activator.Report{}, fmt.Errorf("activator panicked: %v", r)
		}
	}()
	return w.activator.Activate(ctx)
}

// Run evaluates once immediately and then every Interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info(ctx, "Starting watchdog",
		"interval", w.cfg.Interval.String(), "threshold_days", w.cfg.ThresholdDays)

	w.Tick(ctx)

	for {
		t := w.clock.NewTimer(w.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			w.logger.Info(ctx, "Stopping watchdog...")
			return
		case <-t.Chan():
			w.Tick(ctx)
		}
	}
}
