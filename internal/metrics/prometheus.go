package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports counters through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	usersRegistered prometheus.Counter
	logins          *prometheus.CounterVec
	sessionsEnded   prometheus.Counter
	messagesSent    prometheus.Counter
	messagesRead    prometheus.Counter
	messagesDeleted prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// NewPrometheus creates a recorder with its own registry, including the
// Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		usersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "postbox_users_registered_total",
			Help: "Total number of registered users",
		}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"status"}),
		sessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "postbox_sessions_ended_total",
			Help: "Total number of sessions ended by logout",
		}),
		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "postbox_messages_sent_total",
			Help: "Total number of messages sent",
		}),
		messagesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "postbox_messages_read_total",
			Help: "Total number of messages returned by inbox reads",
		}),
		messagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "postbox_messages_deleted_total",
			Help: "Total number of messages deleted",
		}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_rate_limited_total",
			Help: "Requests rejected by rate limiting",
		}, []string{"scope"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncUserRegistered()     { p.usersRegistered.Inc() }
func (p *PrometheusRecorder) IncLogin(status string) { p.logins.WithLabelValues(status).Inc() }
func (p *PrometheusRecorder) IncSessionEnded()       { p.sessionsEnded.Inc() }
func (p *PrometheusRecorder) IncMessageSent()        { p.messagesSent.Inc() }
func (p *PrometheusRecorder) IncMessageDeleted()     { p.messagesDeleted.Inc() }

func (p *PrometheusRecorder) AddMessagesRead(n int) {
	if n > 0 {
		p.messagesRead.Add(float64(n))
	}
}

func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}
