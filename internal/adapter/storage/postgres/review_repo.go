package postgres

import (
	"context"
	"fmt"

	"coursepay/internal/core/domain"
)

// ReviewRepo implements ports.ReviewRepository.
type ReviewRepo struct {
	pool Pool
}

// NewReviewRepo creates a new ReviewRepo.
func NewReviewRepo(pool Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

// Create appends a settlement review record.
func (r *ReviewRepo) Create(ctx context.Context, review *domain.SettlementReview) error {
	query := `INSERT INTO settlement_reviews (id, gateway_tx_id, payment_ref, reason, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		review.ID, review.GatewayTxID, review.PaymentRef, review.Reason, review.Detail, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement review: %w", err)
	}
	return nil
}

// List returns a page of review records, newest first.
func (r *ReviewRepo) List(ctx context.Context, page, pageSize int) ([]domain.SettlementReview, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM settlement_reviews`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	query := `SELECT id, gateway_tx_id, payment_ref, reason, detail, created_at
		FROM settlement_reviews ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.SettlementReview
	for rows.Next() {
		var rec domain.SettlementReview
		if err := rows.Scan(&rec.ID, &rec.GatewayTxID, &rec.PaymentRef, &rec.Reason, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, total, nil
}
