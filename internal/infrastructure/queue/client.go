package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	redemption "academy-backend/internal/domains/redemption/model"
	"academy-backend/internal/shared"
	"academy-backend/pkg/logger"
)

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr, password string, db int) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		}),
	}
}

// EnqueueLedgerAppend hands a fully-built ledger row to the worker. The row
// carries its own id, so the worker's append is idempotent and the task can
// retry aggressively.
func (c *Client) EnqueueLedgerAppend(ctx context.Context, attempt *redemption.Attempt) error {
	payload, err := json.Marshal(redemption.ReconcileAppendPayload{Attempt: *attempt})
	if err != nil {
		return fmt.Errorf("marshal reconcile payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeLedgerReconcileAppend, payload)

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(20),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue ledger reconcile: %w", err)
	}

	logger.Info("ledger reconcile task enqueued", map[string]interface{}{
		"task_id":  info.ID,
		"queue":    info.Queue,
		"order_id": attempt.OrderID.String(),
	})

	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
