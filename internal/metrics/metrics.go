// Package metrics exposes Prometheus counters for captured failures and report delivery.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Capture sources.
const (
	SourceRun       = "run"
	SourceWrap      = "wrap"
	SourceGoroutine = "goroutine"
	SourceTimer     = "timer"
	SourceInterval  = "interval"
	SourceHTTP      = "http"
	SourceCron      = "cron"
	SourceUncaught  = "uncaught"
)

var (
	failuresCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jex",
			Name:      "failures_captured_total",
			Help:      "Total number of failures captured, by interception source",
		},
		[]string{"source"},
	)

	reportsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jex",
			Name:      "reports_sent_total",
			Help:      "Total number of reports handed to the transport",
		},
	)

	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jex",
			Name:      "report_delivery_failures_total",
			Help:      "Total number of report deliveries that failed, by error type",
		},
		[]string{"type"},
	)
)

// Register adds the jex collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{failuresCaptured, reportsSent, deliveryFailures} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordCaptured counts a failure observed by the interception layer.
func RecordCaptured(source string) {
	failuresCaptured.WithLabelValues(source).Inc()
}

// RecordSent counts a report handed to a transport.
func RecordSent() {
	reportsSent.Inc()
}

// RecordDeliveryFailure counts a failed delivery.
func RecordDeliveryFailure(errType string) {
	deliveryFailures.WithLabelValues(errType).Inc()
}

// Captured returns the collector for failures captured, for tests and custom registries.
func Captured() *prometheus.CounterVec { return failuresCaptured }

// Sent returns the reports sent counter.
func Sent() prometheus.Counter { return reportsSent }

// DeliveryFailures returns the delivery failures collector.
func DeliveryFailures() *prometheus.CounterVec { return deliveryFailures }
