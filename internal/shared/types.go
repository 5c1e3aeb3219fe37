package shared

// Asynq task types. The worker binary registers a handler per type.
const (
	// TypeLedgerReconcileAppend retries a redemption ledger append that
	// failed after the outcome was already committed.
	TypeLedgerReconcileAppend = "ledger:reconcile_append"

	// TypeReportCacheWarm precomputes the coupon report for the trailing
	// window so dashboard loads are served from cache.
	TypeReportCacheWarm = "report:cache_warm"
)

// Queue names, in priority order. Weights are configured in cmd/worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
