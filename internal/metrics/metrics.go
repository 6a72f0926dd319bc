package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total number of leads created",
		},
		[]string{"source"},
	)

	leadStageChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_stage_changes_total",
			Help: "Total number of pipeline stage changes by target stage",
		},
		[]string{"stage"},
	)

	automationsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automations_fired_total",
			Help: "Total number of automation rule firings by trigger category",
		},
		[]string{"trigger"},
	)

	messagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of outbound messages by result",
		},
		[]string{"result"},
	)

	syncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backend_sync_failures_total",
			Help: "Total number of rejected backend syncs that were compensated",
		},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordLeadCreated(source string) {
	leadsCreated.WithLabelValues(source).Inc()
}

func RecordStageChange(stage string) {
	leadStageChanges.WithLabelValues(stage).Inc()
}

func RecordAutomationFired(trigger string) {
	automationsFired.WithLabelValues(trigger).Inc()
}

func RecordMessage(result string) {
	messagesSent.WithLabelValues(result).Inc()
}

func RecordSyncFailure() {
	syncFailures.Inc()
}
