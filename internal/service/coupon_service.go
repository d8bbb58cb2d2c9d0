package service

import (
	"context"
	"fmt"
	"strings"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"

	"github.com/rs/zerolog"
)

// CouponServiceImpl implements ports.CouponService.
type CouponServiceImpl struct {
	couponRepo ports.CouponRepository
	log        zerolog.Logger
}

// NewCouponService creates a new CouponServiceImpl.
func NewCouponService(couponRepo ports.CouponRepository, log zerolog.Logger) *CouponServiceImpl {
	return &CouponServiceImpl{couponRepo: couponRepo, log: log}
}

// Apply resolves the code against the catalog and prices baseAmount.
// Unknown or inactive codes are not errors: the quote comes back with
// Valid=false and the base amount untouched.
func (s *CouponServiceImpl) Apply(ctx context.Context, code string, baseAmount int64) (domain.CouponQuote, error) {
	if baseAmount < 0 {
		return domain.CouponQuote{}, apperror.ErrInvalidAmount()
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))

	coupon, err := s.couponRepo.GetByCode(ctx, normalized)
	if err != nil {
		return domain.CouponQuote{}, apperror.InternalError(fmt.Errorf("lookup coupon: %w", err))
	}

	quote := domain.ApplyCoupon(coupon, baseAmount)
	quote.Code = normalized
	s.log.Debug().
		Str("code", normalized).
		Bool("valid", quote.Valid).
		Int64("base", baseAmount).
		Int64("final", quote.FinalAmount).
		Msg("coupon applied")
	return quote, nil
}
