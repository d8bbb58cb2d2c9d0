package postgres

import (
	"context"
	"errors"
	"fmt"

	"coursepay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CouponRepo implements ports.CouponRepository.
type CouponRepo struct {
	pool Pool
}

// NewCouponRepo creates a new CouponRepo.
func NewCouponRepo(pool Pool) *CouponRepo {
	return &CouponRepo{pool: pool}
}

// GetByCode fetches a coupon from the catalog. Unknown codes return
// nil, nil.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT code, kind, value, active, created_at FROM coupons WHERE code = $1`

	c := &domain.Coupon{}
	err := r.pool.QueryRow(ctx, query, code).Scan(&c.Code, &c.Kind, &c.Value, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}
	return c, nil
}
