package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomchat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_sweep_runs_total",
			Help: "Total number of retention sweeps, by result.",
		},
		[]string{"result"},
	)
	sweepPurgedMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_sweep_purged_messages_total",
			Help: "Total number of messages removed by retention sweeps.",
		},
	)
	sweepPurgedPresenceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_sweep_purged_presence_total",
			Help: "Total number of presence records removed by retention sweeps.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		sweepRunsTotal,
		sweepPurgedMessagesTotal,
		sweepPurgedPresenceTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func ObserveSweep(result string, purgedMessages, purgedPresence int) {
	sweepRunsTotal.WithLabelValues(result).Inc()
	sweepPurgedMessagesTotal.Add(float64(purgedMessages))
	sweepPurgedPresenceTotal.Add(float64(purgedPresence))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
