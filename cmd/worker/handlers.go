package main

import (
	"github.com/hibiken/asynq"

	redemptionJob "academy-backend/internal/domains/redemption/job"
	reportJob "academy-backend/internal/domains/report/job"
	"academy-backend/internal/shared"
	"academy-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Ledger handlers
	reconcileAppend *redemptionJob.ReconcileAppendHandler

	// Report handlers
	reportCacheWarm *reportJob.CacheWarmHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		reconcileAppend: redemptionJob.NewReconcileAppendHandler(c.Ledger),
		reportCacheWarm: reportJob.NewCacheWarmHandler(c.ReportService, c.Clock),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Ledger tasks
	mux.HandleFunc(shared.TypeLedgerReconcileAppend, h.reconcileAppend.ProcessTask)

	// Report tasks
	mux.HandleFunc(shared.TypeReportCacheWarm, h.reportCacheWarm.ProcessTask)
}
