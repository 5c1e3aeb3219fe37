package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"academy-backend/internal/domains/redemption/model"
	"academy-backend/internal/domains/redemption/repository"
	"academy-backend/internal/shared/utils"
	"academy-backend/pkg/logger"
)

// ReconcileAppendHandler lands ledger rows whose synchronous append failed.
// The append dedupes on row id, so a retried task never produces a second
// row.
type ReconcileAppendHandler struct {
	ledger repository.Ledger
}

func NewReconcileAppendHandler(ledger repository.Ledger) *ReconcileAppendHandler {
	return &ReconcileAppendHandler{
		ledger: ledger,
	}
}

func (h *ReconcileAppendHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ReconcileAppendPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		// A payload that cannot decode will never decode. Park it instead of
		// burning retries.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.ledger.Append(ctx, &payload.Attempt); err != nil {
		logger.Info("ledger reconcile append failed, will retry", map[string]interface{}{
			"attempt_id": payload.Attempt.ID.String(),
			"error":      err.Error(),
		})
		return fmt.Errorf("reconcile ledger append: %w", err)
	}

	logger.Info("ledger row reconciled", map[string]interface{}{
		"attempt_id": payload.Attempt.ID.String(),
		"order_id":   payload.Attempt.OrderID.String(),
		"outcome":    string(payload.Attempt.Outcome),
	})

	return nil
}
