package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"academy-backend/internal/domains/coupon/model"
	"academy-backend/internal/domains/coupon/service"
	"academy-backend/internal/shared/response"
	"academy-backend/pkg/logger"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{
		service: couponService,
	}
}

// -------------------------------------------------------------------
// PUBLIC ENDPOINTS
// -------------------------------------------------------------------

// Validate answers whether a code is currently usable for an order.
// POST /v1/coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	var req model.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest,
			string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	// A logged-in caller's identity beats whatever the body claims.
	if userID := userIDFromContext(c); userID != nil {
		req.CustomerID = userID
	}

	result, err := h.service.ValidateCoupon(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Redeem commits one use of a coupon against a finalized order.
// POST /v1/coupons/redeem
func (h *CouponHandler) Redeem(c *gin.Context) {
	var req model.RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest,
			string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	if userID := userIDFromContext(c); userID != nil {
		req.CustomerID = userID
	}

	result, err := h.service.RedeemCoupon(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// -------------------------------------------------------------------
// ADMIN ENDPOINTS
// -------------------------------------------------------------------

// Create registers a new coupon.
// POST /v1/admin/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req model.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest,
			string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, coupon)
}

// Update edits a coupon's rule fields.
// PATCH /v1/admin/coupons/:code
func (h *CouponHandler) Update(c *gin.Context) {
	var req model.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	coupon, err := h.service.UpdateCoupon(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupon)
}

// Activate enables a coupon.
// POST /v1/admin/coupons/:code/activate
func (h *CouponHandler) Activate(c *gin.Context) {
	h.setStatus(c, true)
}

// Deactivate disables a coupon without deleting its history.
// POST /v1/admin/coupons/:code/deactivate
func (h *CouponHandler) Deactivate(c *gin.Context) {
	h.setStatus(c, false)
}

func (h *CouponHandler) setStatus(c *gin.Context, isActive bool) {
	code := c.Param("code")

	if err := h.service.SetCouponStatus(c.Request.Context(), code, isActive); err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"code":      code,
		"is_active": isActive,
	})
}

// Get returns one coupon with its usage counters.
// GET /v1/admin/coupons/:code
func (h *CouponHandler) Get(c *gin.Context) {
	coupon, err := h.service.GetCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupon)
}

// List returns all coupons.
// GET /v1/admin/coupons
func (h *CouponHandler) List(c *gin.Context) {
	coupons, err := h.service.ListCoupons(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, coupons, &response.Meta{
		Total: len(coupons),
	})
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func (h *CouponHandler) handleError(c *gin.Context, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		response.ErrorResponse(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message)
		return
	}

	logger.Error("coupon handler error", err)
	response.InternalServerError(c, "something went wrong, please try again later")
}

func userIDFromContext(c *gin.Context) *uuid.UUID {
	value, exists := c.Get("userID")
	if !exists {
		return nil
	}

	userID, ok := value.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}
