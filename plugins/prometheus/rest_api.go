package prometheus

import (
	echoprometheus "github.com/labstack/echo-contrib/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	restapiHTTPErrorCount        prometheus.Gauge
	restapiSubmittedTransactions prometheus.Gauge
	restapiRejectedTransactions  prometheus.Gauge
	restapiRateLimitedRequests   prometheus.Gauge
)

func newRestAPIGauge(name string, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cycled",
			Subsystem: "restapi",
			Name:      name,
			Help:      help,
		},
	)
	registry.MustRegister(gauge)
	return gauge
}

func configureRestAPI() {
	restapiHTTPErrorCount = newRestAPIGauge("http_request_errors", "The amount of encountered HTTP request errors.")
	restapiSubmittedTransactions = newRestAPIGauge("submitted_transactions", "The amount of transactions committed through the REST API.")
	restapiRejectedTransactions = newRestAPIGauge("rejected_transactions", "The amount of transactions rejected by the ledger.")
	restapiRateLimitedRequests = newRestAPIGauge("rate_limited_requests", "The amount of transactions refused by the rate limiter.")

	addCollect(collectRestAPI)

	if deps.Echo != nil {
		p := echoprometheus.NewPrometheus("cycled_restapi", nil)
		for _, m := range p.MetricsList {
			registry.MustRegister(m.MetricCollector)
		}
		deps.Echo.Use(p.HandlerFunc)
	}
}

func collectRestAPI() {
	restapiHTTPErrorCount.Set(float64(deps.RestAPIMetrics.HTTPRequestErrorCounter.Load()))
	restapiSubmittedTransactions.Set(float64(deps.RestAPIMetrics.SubmittedTransactions.Load()))
	restapiRejectedTransactions.Set(float64(deps.RestAPIMetrics.RejectedTransactions.Load()))
	restapiRateLimitedRequests.Set(float64(deps.RestAPIMetrics.RateLimitedRequests.Load()))
}
