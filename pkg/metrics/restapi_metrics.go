package metrics

import (
	"go.uber.org/atomic"
)

// RestAPIMetrics defines REST API metrics over the entire runtime of the node.
type RestAPIMetrics struct {
	// The total number HTTP request errors.
	HTTPRequestErrorCounter atomic.Uint32
	// The number of transactions committed through the API.
	SubmittedTransactions atomic.Uint32
	// The number of transactions the ledger rejected.
	RejectedTransactions atomic.Uint32
	// The number of requests refused by the rate limiter.
	RateLimitedRequests atomic.Uint32
}
