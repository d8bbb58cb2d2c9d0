package postgres

import (
	"context"
	"errors"
	"fmt"

	"coursepay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, item_type, item_id, amount, currency, status, gateway, gateway_tx_id, coupon_code, discount_amount, created_at, updated_at`

// Create inserts a new payment.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.ItemType, p.ItemID, p.Amount, p.Currency, p.Status,
		p.Gateway, p.GatewayTxID, p.CouponCode, p.DiscountAmount,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get payment by id")
}

// GetByGatewayTxID fetches a payment by the gateway's transaction id.
func (r *PaymentRepo) GetByGatewayTxID(ctx context.Context, gatewayTxID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_tx_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, gatewayTxID), "get payment by gateway tx id")
}

// TransitionStatus performs a compare-and-swap on the payment status.
// Returns false when the payment was not in the expected state.
func (r *PaymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, gatewayTxID *string) (bool, error) {
	query := `UPDATE payments
		SET status = $1, gateway_tx_id = COALESCE($2, gateway_tx_id), updated_at = NOW()
		WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, to, gatewayTxID, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepo) scanOne(row pgx.Row, op string) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.ItemType, &p.ItemID, &p.Amount, &p.Currency, &p.Status,
		&p.Gateway, &p.GatewayTxID, &p.CouponCode, &p.DiscountAmount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
