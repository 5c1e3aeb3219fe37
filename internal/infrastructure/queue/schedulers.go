package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"academy-backend/internal/config"
	reportJob "academy-backend/internal/domains/report/job"
	"academy-backend/internal/shared"
	"academy-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	reportCfg config.ReportConfig
}

func NewScheduler(redisAddr, password string, db int, reportCfg config.ReportConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		reportCfg: reportCfg,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerReportCacheWarmJob()
}

// ================================================
// JOB: Warm Report Cache (Hourly)
// ================================================
// The trailing-30-day coupon report is the dashboard's landing view.
// Recomputing it every hour (with a cache TTL just over the period) keeps
// dashboard loads on the warmed payload at most an hour stale.
func (s *Scheduler) registerReportCacheWarmJob() error {
	payload, err := json.Marshal(reportJob.CacheWarmPayload{
		Days:     30,
		TopLimit: s.reportCfg.TopCouponsLimit,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReportCacheWarm, payload)

	_, err = s.scheduler.Register(
		"0 * * * *", // Hourly at minute 0
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register ReportCacheWarm job", err)
		return err
	}

	logger.Info("✓ Registered ReportCacheWarm: hourly", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
