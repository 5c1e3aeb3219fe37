package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/coupon/model"
	"academy-backend/internal/domains/coupon/repository"
	"academy-backend/internal/domains/currency"
	redemption "academy-backend/internal/domains/redemption/model"
	redemptionrepo "academy-backend/internal/domains/redemption/repository"
	"academy-backend/pkg/cache"
	"academy-backend/pkg/clock"
	"academy-backend/pkg/logger"
)

const (
	couponCacheKeyPrefix = "coupon:code:"
	couponCacheTTL       = 30 * time.Second
)

type couponService struct {
	repo      repository.CouponRepository
	ledger    redemptionrepo.Ledger
	validator *Validator
	converter currency.Converter
	clock     clock.Clock
	cache     cache.Cache
	enqueuer  ReconcileEnqueuer
}

func NewCouponService(
	repo repository.CouponRepository,
	ledger redemptionrepo.Ledger,
	validator *Validator,
	converter currency.Converter,
	clk clock.Clock,
	cacheClient cache.Cache,
	enqueuer ReconcileEnqueuer,
) CouponService {
	return &couponService{
		repo:      repo,
		ledger:    ledger,
		validator: validator,
		converter: converter,
		clock:     clk,
		cache:     cacheClient,
		enqueuer:  enqueuer,
	}
}

// -------------------------------------------------------------------
// EVALUATION
// -------------------------------------------------------------------

func (s *couponService) ValidateCoupon(ctx context.Context, req model.ValidateCouponRequest) (*model.ValidateCouponResponse, error) {
	order, err := s.buildOrder(uuid.Nil, req.Amount, req.Currency, req.Context, req.CustomerID)
	if err != nil {
		return nil, err
	}

	coupon, err := s.findForEvaluation(ctx, req.Code)
	if err != nil {
		if errors.Is(err, model.ErrCouponNotFound) {
			return rejectedValidateResponse(model.RejectCouponNotFound), nil
		}
		return nil, err
	}

	if err := s.loadPriorRedemptions(ctx, coupon, &order); err != nil {
		return nil, err
	}

	eval, err := s.validator.Evaluate(coupon, order, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if !eval.Valid {
		return rejectedValidateResponse(eval.RejectReason), nil
	}

	final := eval.NormalizedAmount.Sub(eval.Discount)
	return &model.ValidateCouponResponse{
		Valid:          true,
		DiscountAmount: &eval.Discount,
		FinalAmount:    &final,
	}, nil
}

// findForEvaluation serves evaluate-only reads through a short-lived cache.
// Commit decisions never come through here; TryCommitRedemption re-checks
// everything against the database.
func (s *couponService) findForEvaluation(ctx context.Context, code string) (*model.Coupon, error) {
	key := couponCacheKeyPrefix + model.NormalizeCode(code)

	if s.cache != nil {
		var cached model.Coupon
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, coupon, couponCacheTTL); err != nil {
			logger.Warn("failed to cache coupon", map[string]interface{}{
				"code":  coupon.Code,
				"error": err.Error(),
			})
		}
	}

	return coupon, nil
}

// -------------------------------------------------------------------
// REDEMPTION
// -------------------------------------------------------------------

// RedeemCoupon is the two-phase redeem: evaluate against a snapshot, then
// atomically commit through the store, which re-checks the limits. Every
// attempt that reaches this operation ends as exactly one ledger row.
func (s *couponService) RedeemCoupon(ctx context.Context, req model.RedeemCouponRequest) (*model.RedeemCouponResponse, error) {
	order, err := s.buildOrder(req.OrderID, req.Amount, req.Currency, req.Context, req.CustomerID)
	if err != nil {
		return nil, err
	}

	// Idempotency: a retried order returns the recorded outcome instead of
	// consuming a second use.
	existing, err := s.ledger.FindSuccessByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("check order idempotency: %w", err)
	}
	if existing != nil {
		logger.Info("redeem replay for already-committed order", map[string]interface{}{
			"order_id": req.OrderID.String(),
			"coupon":   existing.CouponCode,
		})
		return &model.RedeemCouponResponse{
			Committed:      true,
			DiscountAmount: &existing.DiscountAmount,
		}, nil
	}

	coupon, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		// An unknown code never reaches the commit stage and leaves no
		// ledger row.
		return nil, err
	}

	if err := s.loadPriorRedemptions(ctx, coupon, &order); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	eval, err := s.validator.Evaluate(coupon, order, now)
	if err != nil {
		return nil, err
	}

	if !eval.Valid {
		s.recordAttempt(ctx, s.rejectedAttempt(coupon, order, eval.RejectReason, now))
		return rejectedRedeemResponse(eval.RejectReason), nil
	}

	outcome, err := s.repo.TryCommitRedemption(ctx, coupon.Code, order.CustomerID)
	if err != nil {
		return nil, err
	}

	if !outcome.Committed {
		// The snapshot was stale. One retry from fresh state covers the case
		// where a concurrent admin raised a limit between the two phases.
		outcome, eval, err = s.retryCommit(ctx, coupon.Code, order, now)
		if err != nil {
			return nil, err
		}
		if !outcome.Committed {
			s.recordAttempt(ctx, s.rejectedAttempt(coupon, order, outcome.ConflictReason, now))
			return rejectedRedeemResponse(outcome.ConflictReason), nil
		}
	}

	attempt, err := s.successAttempt(coupon, order, eval, now)
	if err != nil {
		return nil, err
	}
	s.recordAttempt(ctx, attempt)

	logger.Info("coupon redeemed", map[string]interface{}{
		"coupon":   coupon.Code,
		"order_id": order.OrderID.String(),
		"discount": eval.Discount.String(),
	})

	s.invalidateCache(ctx, coupon.Code)

	return &model.RedeemCouponResponse{
		Committed:      true,
		DiscountAmount: &eval.Discount,
	}, nil
}

// retryCommit re-reads the coupon and tries the commit once more.
func (s *couponService) retryCommit(ctx context.Context, code string, order model.Order, now time.Time) (model.CommitOutcome, model.Evaluation, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return model.CommitOutcome{}, model.Evaluation{}, err
	}

	if err := s.loadPriorRedemptions(ctx, coupon, &order); err != nil {
		return model.CommitOutcome{}, model.Evaluation{}, err
	}

	eval, err := s.validator.Evaluate(coupon, order, now)
	if err != nil {
		return model.CommitOutcome{}, model.Evaluation{}, err
	}
	if !eval.Valid {
		return model.CommitOutcome{ConflictReason: eval.RejectReason}, eval, nil
	}

	outcome, err := s.repo.TryCommitRedemption(ctx, coupon.Code, order.CustomerID)
	if err != nil {
		return model.CommitOutcome{}, model.Evaluation{}, err
	}

	return outcome, eval, nil
}

// recordAttempt appends the attempt row, falling back to the reconciliation
// queue when the append fails. The caller's response does not depend on the
// append: the outcome is already decided.
func (s *couponService) recordAttempt(ctx context.Context, attempt *redemption.Attempt) {
	err := s.ledger.Append(ctx, attempt)
	if err == nil {
		return
	}
	logger.Error("ledger append failed, enqueueing reconciliation", err)

	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueLedgerAppend(ctx, attempt); err != nil {
		logger.Error("failed to enqueue ledger reconciliation", err)
	}
}

// successAttempt builds the normalized ledger row for a committed redemption.
// Amounts are converted into the reporting currency at write time, stamped
// with the rate snapshot id.
func (s *couponService) successAttempt(coupon *model.Coupon, order model.Order, eval model.Evaluation, now time.Time) (*redemption.Attempt, error) {
	orderInReporting, err := s.converter.Convert(order.Amount, order.Currency, currency.Reporting)
	if err != nil {
		return nil, fmt.Errorf("normalize order amount for ledger: %w", err)
	}

	discountInReporting, err := s.converter.Convert(eval.Discount, coupon.Currency, currency.Reporting)
	if err != nil {
		return nil, fmt.Errorf("normalize discount for ledger: %w", err)
	}
	discountInReporting = discountInReporting.Round(2)

	return &redemption.Attempt{
		ID:             uuid.New(),
		CouponCode:     coupon.Code,
		CustomerID:     order.CustomerID,
		OrderID:        order.OrderID,
		Context:        string(order.Context),
		OrderAmount:    order.Amount,
		OrderCurrency:  order.Currency,
		DiscountAmount: discountInReporting,
		NetRevenue:     orderInReporting.Round(2).Sub(discountInReporting),
		RateSnapshot:   s.converter.SnapshotID(),
		Outcome:        redemption.OutcomeSuccess,
		OccurredAt:     now.UTC(),
	}, nil
}

func (s *couponService) rejectedAttempt(coupon *model.Coupon, order model.Order, reason model.RejectReason, now time.Time) *redemption.Attempt {
	reasonStr := string(reason)
	return &redemption.Attempt{
		ID:             uuid.New(),
		CouponCode:     coupon.Code,
		CustomerID:     order.CustomerID,
		OrderID:        order.OrderID,
		Context:        string(order.Context),
		OrderAmount:    order.Amount,
		OrderCurrency:  order.Currency,
		DiscountAmount: decimal.Zero,
		NetRevenue:     decimal.Zero,
		RateSnapshot:   s.converter.SnapshotID(),
		Outcome:        redemption.OutcomeRejected,
		RejectReason:   &reasonStr,
		OccurredAt:     now.UTC(),
	}
}

// -------------------------------------------------------------------
// ADMIN OPERATIONS
// -------------------------------------------------------------------

func (s *couponService) CreateCoupon(ctx context.Context, req model.CreateCouponRequest) (*model.CouponResponse, error) {
	coupon, err := couponFromCreateRequest(req)
	if err != nil {
		return nil, err
	}

	if err := coupon.Validate(); err != nil {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: 400,
		}
	}

	exists, err := s.repo.CheckCodeExists(ctx, coupon.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrCouponCodeExists
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	logger.Info("coupon created", map[string]interface{}{
		"code": coupon.Code,
		"type": coupon.DiscountType.String(),
	})

	return coupon.ToResponse(), nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, code string, req model.UpdateCouponRequest) (*model.CouponResponse, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := applyUpdateRequest(coupon, req); err != nil {
		return nil, err
	}

	if err := coupon.Validate(); err != nil {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: 400,
		}
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, coupon.Code)

	return coupon.ToResponse(), nil
}

func (s *couponService) SetCouponStatus(ctx context.Context, code string, isActive bool) error {
	if err := s.repo.UpdateStatus(ctx, code, isActive); err != nil {
		return err
	}

	s.invalidateCache(ctx, code)

	logger.Info("coupon status changed", map[string]interface{}{
		"code":      model.NormalizeCode(code),
		"is_active": isActive,
	})

	return nil
}

func (s *couponService) GetCoupon(ctx context.Context, code string) (*model.CouponResponse, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return coupon.ToResponse(), nil
}

func (s *couponService) ListCoupons(ctx context.Context) ([]*model.CouponResponse, error) {
	coupons, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.CouponResponse, 0, len(coupons))
	for _, coupon := range coupons {
		responses = append(responses, coupon.ToResponse())
	}
	return responses, nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func (s *couponService) buildOrder(orderID uuid.UUID, amount decimal.Decimal, currencyCode, contextStr string, customerID *uuid.UUID) (model.Order, error) {
	cur, err := currency.Parse(currencyCode)
	if err != nil {
		return model.Order{}, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: 400,
		}
	}

	orderContext := model.Context(contextStr)
	if !orderContext.IsValid() {
		return model.Order{}, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    "context must be 'checkout' or 'package'",
			HTTPStatus: 400,
		}
	}

	return model.Order{
		OrderID:    orderID,
		Amount:     amount,
		Currency:   cur,
		Context:    orderContext,
		CustomerID: customerID,
	}, nil
}

// loadPriorRedemptions fills the per-user history the validator needs. Skipped
// for guests and for coupons without a per-user cap.
func (s *couponService) loadPriorRedemptions(ctx context.Context, coupon *model.Coupon, order *model.Order) error {
	if coupon.PerUserLimit == nil || order.CustomerID == nil {
		return nil
	}

	count, err := s.repo.GetUserSuccessCount(ctx, coupon.Code, *order.CustomerID)
	if err != nil {
		return fmt.Errorf("load prior redemptions: %w", err)
	}
	order.PriorUserRedemptions = count
	return nil
}

func (s *couponService) invalidateCache(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, couponCacheKeyPrefix+model.NormalizeCode(code)); err != nil {
		logger.Warn("failed to invalidate coupon cache", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
	}
}

func rejectedValidateResponse(reason model.RejectReason) *model.ValidateCouponResponse {
	return &model.ValidateCouponResponse{
		Valid:        false,
		RejectReason: &reason,
	}
}

func rejectedRedeemResponse(reason model.RejectReason) *model.RedeemCouponResponse {
	return &model.RedeemCouponResponse{
		Committed:    false,
		RejectReason: &reason,
	}
}

func couponFromCreateRequest(req model.CreateCouponRequest) (*model.Coupon, error) {
	coupon := &model.Coupon{
		Code:           model.NormalizeCode(req.Code),
		Name:           req.Name,
		DiscountType:   model.DiscountType(req.DiscountType),
		DiscountValue:  decimal.NewFromFloat(req.DiscountValue),
		MinOrderAmount: decimal.NewFromFloat(req.MinOrderAmount),
		Currency:       currency.Currency(model.NormalizeCode(req.Currency)),
		AppliesTo:      model.Scope(req.AppliesTo),
		UsageLimit:     req.UsageLimit,
		PerUserLimit:   req.PerUserLimit,
		IsActive:       req.IsActive,
	}

	if req.MaxDiscountAmount != nil {
		max := decimal.NewFromFloat(*req.MaxDiscountAmount)
		coupon.MaxDiscountAmount = &max
	}

	var err error
	if coupon.StartsAt, err = parseOptionalTime(req.StartsAt); err != nil {
		return nil, invalidTimeError("starts_at")
	}
	if coupon.ExpiresAt, err = parseOptionalTime(req.ExpiresAt); err != nil {
		return nil, invalidTimeError("expires_at")
	}

	return coupon, nil
}

func applyUpdateRequest(coupon *model.Coupon, req model.UpdateCouponRequest) error {
	if req.Name != nil {
		coupon.Name = *req.Name
	}
	if req.MaxDiscountAmount != nil {
		max := decimal.NewFromFloat(*req.MaxDiscountAmount)
		coupon.MaxDiscountAmount = &max
	}
	if req.MinOrderAmount != nil {
		coupon.MinOrderAmount = decimal.NewFromFloat(*req.MinOrderAmount)
	}
	if req.UsageLimit != nil {
		coupon.UsageLimit = req.UsageLimit
	}
	if req.PerUserLimit != nil {
		coupon.PerUserLimit = req.PerUserLimit
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	var err error
	if req.StartsAt != nil {
		if coupon.StartsAt, err = parseOptionalTime(req.StartsAt); err != nil {
			return invalidTimeError("starts_at")
		}
	}
	if req.ExpiresAt != nil {
		if coupon.ExpiresAt, err = parseOptionalTime(req.ExpiresAt); err != nil {
			return invalidTimeError("expires_at")
		}
	}

	return nil
}

func parseOptionalTime(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

func invalidTimeError(field string) error {
	return &model.AppError{
		Code:       model.ErrCodeValidationFailed,
		Message:    field + " must be RFC3339",
		HTTPStatus: 400,
	}
}
