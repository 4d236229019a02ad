// Package server assembles the switch from its parts and runs it until the
// process is asked to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/deadswitch/internal/activator"
	"github.com/dmitrijs2005/deadswitch/internal/checkin"
	"github.com/dmitrijs2005/deadswitch/internal/clock"
	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/mailbox"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/notify"
	"github.com/dmitrijs2005/deadswitch/internal/payload"
	"github.com/dmitrijs2005/deadswitch/internal/server/config"
	"github.com/dmitrijs2005/deadswitch/internal/server/httpapi"
	"github.com/dmitrijs2005/deadswitch/internal/switchstate"
	"github.com/dmitrijs2005/deadswitch/internal/watchdog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/deadswitch/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	closeLog func() error
	state    *switchstate.State
	handler  http.Handler
	http     *httpapi.Server
	grpc     *gs.HealthServer
	checkin  *checkin.Emailer
	watchdog *watchdog.Watchdog
}

type options struct {
	clock    clock.Clock
	notifier notify.Notifier
	logger   logging.Logger
}

type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithNotifier replaces the SMTP notifier.
func WithNotifier(n notify.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithLogger replaces the logger built from the log settings.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// NewApp validates the positional arguments (payload, sender, recipients),
// loads and seals the payload and wires every component around one shared
// switch state.
func NewApp(ctx context.Context, c *config.Config, args []string, opts ...Option) (app *App, err error) {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(args) < 3 {
		return nil, fmt.Errorf("%w: need <payload> <sender> <recipient>...", common.ErrMissingArgs)
	}

	closeLog := func() error { return nil }
	logger := o.logger
	if logger == nil {
		w, closer := logging.NewWriter(logging.OutputConfig{
			File:       c.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		})
		logger, closeLog = logging.NewJSON(w, logging.ParseLevel(c.LogLevel)), closer
	}
	defer func() {
		if err != nil {
			_ = closeLog()
		}
	}()

	sender, err := mailbox.ParseSender(args[1])
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	recipients, err := mailbox.ParseAll(args[2:])
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}

	sealed, err := payload.Load(ctx, args[0], payload.S3Options{
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}

	n := o.notifier
	if n == nil {
		smtp, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Password: c.SenderPassword,
			Timeout:  c.SMTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		n = smtp
	}

	state, err := switchstate.NewWithRandomToken(o.clock)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewPrometheus(reg)
	m.Armed(true)
	m.LastHeartbeat(state.LastHeartbeat())

	act := activator.New(n, sender, recipients, sealed, logger, m)

	wd, err := watchdog.New(watchdog.Config{Interval: c.WatchdogInterval, ThresholdDays: c.ThresholdDays},
		state, o.clock, act, logger, m)
	if err != nil {
		return nil, err
	}

	em, err := checkin.New(checkin.Config{Schedule: c.CheckinSchedule, PublicURL: c.PublicURL},
		state, n, sender, o.clock, logger, m)
	if err != nil {
		return nil, err
	}

	handler := httpapi.NewReceiver(state, logger, m).Routes(reg)

	app = &App{
		config:   c,
		logger:   logger,
		closeLog: closeLog,
		state:    state,
		handler:  handler,
		http:     httpapi.NewServer(c.ListenAddr, handler, logger),
		checkin:  em,
		watchdog: wd,
	}

	if c.GRPCAddr != "" {
		hs := gs.NewHealthServer(c.GRPCAddr, logger)
		wd.OnActivated(func(activator.Report, error) { hs.SetArmed(false) })
		app.grpc = hs
	}

	logger.Info(ctx, "Switch configured",
		"sender", sender.Address(),
		"recipients", mailbox.Addresses(recipients),
		"threshold_days", c.ThresholdDays,
		"payload_bytes", sealed.Len())

	return app, nil
}

// Handler returns the HTTP routes served by the app.
func (app *App) Handler() http.Handler { return app.handler }

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts the HTTP listener, the check-in scheduler, the watchdog and,
// when configured, the gRPC health listener. It returns once all of them
// have stopped, after ctx is done or a signal arrives. A listener that
// fails to start stops the whole app.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(name string, err error) {
		app.logger.Error(ctx, name+" stopped", "error", err)
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		mu.Unlock()
		cancelFunc()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			fail("http server", err)
		}
	}()
	go func() {
		defer wg.Done()
		app.checkin.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.watchdog.Run(ctx)
	}()

	if app.grpc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.grpc.Run(ctx); err != nil {
				fail("grpc server", err)
			}
		}()
	}

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	if err := app.closeLog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
