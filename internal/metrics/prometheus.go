package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deadswitch"

// Prometheus implements Recorder with counters and gauges registered on reg.
type Prometheus struct {
	heartbeats    *prometheus.CounterVec
	lastHeartbeat prometheus.Gauge
	armed         prometheus.Gauge
	ticks         prometheus.Counter
	checkins      *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates and registers the collectors. A nil reg means
// prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeat requests by result (accepted,rejected).",
		}, []string{"result"}),
		lastHeartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_heartbeat_timestamp_seconds",
			Help:      "Unix time of the last accepted heartbeat.",
		}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "armed",
			Help:      "1 while activation is still possible, 0 after it fired.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "ticks_total",
			Help:      "Watchdog evaluations.",
		}),
		checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "emails_total",
			Help:      "Check-in emails by result (success,failure).",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activation",
			Name:      "deliveries_total",
			Help:      "Activation emails by result (success,failure).",
		}, []string{"result"}),
	}

	reg.MustRegister(p.heartbeats, p.lastHeartbeat, p.armed, p.ticks, p.checkins, p.deliveries)
	return p
}

func (p *Prometheus) HeartbeatReceived(accepted bool) {
	if accepted {
		p.heartbeats.WithLabelValues("accepted").Inc()
		return
	}
	p.heartbeats.WithLabelValues("rejected").Inc()
}

func (p *Prometheus) LastHeartbeat(at time.Time) {
	p.lastHeartbeat.Set(float64(at.Unix()))
}

func (p *Prometheus) Armed(armed bool) {
	if armed {
		p.armed.Set(1)
		return
	}
	p.armed.Set(0)
}

func (p *Prometheus) WatchdogTick() { p.ticks.Inc() }

func (p *Prometheus) CheckinSent(err error) {
	p.checkins.WithLabelValues(result(err)).Inc()
}

func (p *Prometheus) ActivationDelivery(err error) {
	p.deliveries.WithLabelValues(result(err)).Inc()
}
