package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"academy-backend/internal/domains/report/model"
	"academy-backend/internal/domains/report/service"
	"academy-backend/internal/shared/utils"
	"academy-backend/pkg/clock"
	"academy-backend/pkg/logger"
)

const defaultWarmDays = 30

// CacheWarmPayload configures the trailing window to precompute.
type CacheWarmPayload struct {
	Days     int `json:"days"`
	TopLimit int `json:"top_limit"`
}

// CacheWarmHandler builds the coupon report for the trailing window and
// leaves it in the report cache with the warm TTL, which outlives the cron
// period. The dashboard's "last N days" view asks for whole UTC days, so
// the warmed range uses the same day bounds.
type CacheWarmHandler struct {
	service service.ReportService
	clk     clock.Clock
}

func NewCacheWarmHandler(reportService service.ReportService, clk clock.Clock) *CacheWarmHandler {
	return &CacheWarmHandler{
		service: reportService,
		clk:     clk,
	}
}

func (h *CacheWarmHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload CacheWarmPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	days := payload.Days
	if days <= 0 {
		days = defaultWarmDays
	}

	today := h.clk.Now().UTC().Truncate(24 * time.Hour)
	req := model.ReportRequest{
		Start:    today.AddDate(0, 0, -(days - 1)),
		End:      today.Add(24*time.Hour - time.Nanosecond),
		TopLimit: payload.TopLimit,
	}

	report, err := h.service.WarmReport(ctx, req)
	if err != nil {
		return fmt.Errorf("warm report cache: %w", err)
	}

	logger.Info("report cache warmed", map[string]interface{}{
		"start":    req.Start.Format("2006-01-02"),
		"end":      req.End.Format("2006-01-02"),
		"attempts": report.Overview.TotalAttempts,
	})

	return nil
}
