package model

import "errors"

// RejectReason is the structured, user-visible reason a coupon was not
// applied. Rejections are expected business outcomes, not faults, and the
// check order fixes which reason wins when several apply.
type RejectReason string

const (
	RejectCouponNotFound    RejectReason = "COUPON_NOT_FOUND"
	RejectInactive          RejectReason = "INACTIVE"
	RejectNotStarted        RejectReason = "NOT_STARTED"
	RejectExpired           RejectReason = "EXPIRED"
	RejectScopeMismatch     RejectReason = "SCOPE_MISMATCH"
	RejectUsageLimitReached RejectReason = "USAGE_LIMIT_REACHED"
	RejectPerUserLimit      RejectReason = "PER_USER_LIMIT_REACHED"
	RejectMinOrderNotMet    RejectReason = "MIN_ORDER_NOT_MET"
)

// Rule validation errors (admin create/update)
var (
	ErrInvalidDiscountType   = errors.New("discount_type must be 'percentage' or 'fixed'")
	ErrInvalidDiscountValue  = errors.New("discount_value must be > 0")
	ErrPercentageTooHigh     = errors.New("percentage discount cannot exceed 100")
	ErrInvalidMinOrderAmount = errors.New("min_order_amount must be >= 0")
	ErrInvalidCurrency       = errors.New("unsupported coupon currency")
	ErrInvalidScope          = errors.New("applies_to must be 'all', 'checkout' or 'package'")
	ErrInvalidUsageLimit     = errors.New("usage limits must be positive when set")
	ErrInvalidDateRange      = errors.New("expires_at must be after starts_at")
)

type ErrorCode string

const (
	// Coupon application errors
	ErrCodeCouponNotFound ErrorCode = "COUPON_NOT_FOUND" // 404
	ErrCodeCouponRejected ErrorCode = "COUPON_REJECTED"  // 400
	ErrCodeCommitConflict ErrorCode = "COUPON_CONFLICT"  // 409

	// Admin operation errors
	ErrCodeDuplicateCode ErrorCode = "VAL_DUPLICATE_CODE" // 400

	// Validation errors (400)
	ErrCodeValidationFailed ErrorCode = "VAL_INVALID_INPUT" // 400

	// System errors (500)
	ErrCodeStoreUnavailable ErrorCode = "SYS_STORE_UNAVAILABLE" // 503
	ErrCodeInternalError    ErrorCode = "SYS_INTERNAL_ERROR"    // 500
)

type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Predefined errors
var (
	ErrCouponNotFound = &AppError{
		Code:       ErrCodeCouponNotFound,
		Message:    "coupon code does not exist",
		HTTPStatus: 404,
	}

	ErrCouponCodeExists = &AppError{
		Code:       ErrCodeDuplicateCode,
		Message:    "coupon code already exists",
		HTTPStatus: 400,
	}
)
