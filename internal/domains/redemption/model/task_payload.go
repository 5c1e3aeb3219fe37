package model

// ReconcileAppendPayload carries a full ledger row whose durable append failed
// after the redemption was already committed. The worker retries the append
// until it lands; a committed-but-unlogged redemption would corrupt reporting.
type ReconcileAppendPayload struct {
	Attempt Attempt `json:"attempt"`
}
