package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/domains/report/model"
	"academy-backend/internal/domains/report/service"
	"academy-backend/internal/shared/response"
	"academy-backend/pkg/logger"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		service: reportService,
	}
}

// GetCouponReport returns the analytics payload for a date range.
// GET /v1/admin/reports/coupons?start=2026-08-01&end=2026-08-31&top=8
//
// start and end accept a calendar date (whole UTC days) or a full RFC3339
// timestamp. Both bounds are inclusive.
func (h *ReportHandler) GetCouponReport(c *gin.Context) {
	start, ok := parseTimeParam(c, "start", false)
	if !ok {
		return
	}
	end, ok := parseTimeParam(c, "end", true)
	if !ok {
		return
	}

	req := model.ReportRequest{
		Start:    start,
		End:      end,
		TopLimit: parseIntQuery(c, "top", 0),
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest,
			"VAL_INVALID_INPUT", "invalid report range", err)
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), req)
	if err != nil {
		logger.Error("report handler error", err)
		response.InternalServerError(c, "failed to build report")
		return
	}

	response.Success(c, http.StatusOK, report)
}

// parseTimeParam reads a required time query param. A bare date expands to
// the start of that UTC day, or the end of it for the end bound.
func parseTimeParam(c *gin.Context, name string, endOfDay bool) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		response.BadRequest(c, name+" query parameter is required")
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.BadRequest(c, name+" must be YYYY-MM-DD or RFC3339")
		return time.Time{}, false
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
