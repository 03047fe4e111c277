package shutdown

// Please add the dependencies if you add your own priority here.
// Otherwise investigating deadlocks at shutdown is much more complicated.

const (
	PriorityCloseDatabase = iota // no dependencies
	PriorityCloseLedger          // depends on PriorityCloseDatabase
	PriorityLedgerEvents         // depends on PriorityCloseLedger
	PriorityRelayer              // depends on PriorityCloseLedger
	PriorityRestAPI              // depends on PriorityCloseLedger
	PriorityMetricsUpdater
	PriorityPrometheus
)
