// Package exporters publishes playback metrics over HTTP and the event bus.
package exporters

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxScrapesInFlight = 4

// HTTPHandler serves g in the Prometheus text or OpenMetrics format. A nil
// gatherer serves the default registry, where the metrics package registers.
func HTTPHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: maxScrapesInFlight,
		Timeout:             5 * time.Second,
	})
}
