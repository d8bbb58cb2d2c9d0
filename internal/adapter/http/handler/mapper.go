package handler

import (
	"time"

	"coursepay/internal/adapter/http/dto"
	"coursepay/internal/core/domain"
)

func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:        e.ID.String(),
		Direction: string(e.Direction),
		Amount:    e.Amount,
		Status:    string(e.Status),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.CompletedAt != nil {
		s := e.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:             p.ID.String(),
		ItemType:       string(p.ItemType),
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         string(p.Status),
		Gateway:        p.Gateway,
		CouponCode:     p.CouponCode,
		DiscountAmount: p.DiscountAmount,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.ItemID != nil {
		s := p.ItemID.String()
		resp.ItemID = &s
	}
	return resp
}

func toQuoteResponse(q domain.CouponQuote, baseAmount int64) dto.CouponQuoteResponse {
	return dto.CouponQuoteResponse{
		Code:        q.Code,
		Valid:       q.Valid,
		BaseAmount:  baseAmount,
		Discount:    q.DiscountAmount,
		FinalAmount: q.FinalAmount,
	}
}

func toReviewResponse(r *domain.SettlementReview) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:          r.ID.String(),
		GatewayTxID: r.GatewayTxID,
		PaymentRef:  r.PaymentRef,
		Reason:      r.Reason,
		Detail:      r.Detail,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}
