package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/switchstate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Receiver validates reset signals and updates the switch state. It never
// fails on bad input: a wrong or missing token is an ordinary outcome.
type Receiver struct {
	state   *switchstate.State
	logger  logging.Logger
	metrics metrics.Recorder
}

func NewReceiver(s *switchstate.State, l logging.Logger, m metrics.Recorder) *Receiver {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Receiver{state: s, logger: l, metrics: m}
}

// Heartbeat records a heartbeat for token and reports whether it was accepted.
func (r *Receiver) Heartbeat(ctx context.Context, token string) bool {
	ok := r.state.RecordHeartbeat(token)
	r.metrics.HeartbeatReceived(ok)
	if ok {
		r.metrics.LastHeartbeat(r.state.LastHeartbeat())
		r.logger.Info(ctx, "Heartbeat success.", "request_id", RequestID(ctx))
	} else {
		r.logger.Info(ctx, "Heartbeat failure.", "request_id", RequestID(ctx))
	}
	return ok
}

func (r *Receiver) handleHeartbeat(w http.ResponseWriter, req *http.Request) {
	body := common.HeartbeatFailure
	if r.Heartbeat(req.Context(), req.URL.Query().Get(common.TokenParam)) {
		body = common.HeartbeatSuccess
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, body)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// Routes builds the HTTP handler. gatherer may be nil to omit /metrics.
func (r *Receiver) Routes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+common.HeartbeatPath, r.handleHeartbeat)
	mux.HandleFunc("GET /healthz", handleHealthz)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r.withRecover(r.withRequestID(mux))
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID returns the id assigned by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (r *Receiver) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(req.Context(), requestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// withRecover turns a panic into a failure response for that request only.
func (r *Receiver) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error(req.Context(), "request panicked", "path", req.URL.Path, "panic", fmt.Sprint(p))
				http.Error(w, common.HeartbeatFailure, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}
