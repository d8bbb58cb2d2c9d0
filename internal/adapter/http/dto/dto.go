package dto

// TransferRequest is the request body for wallet-to-wallet transfers.
type TransferRequest struct {
	ToUserID  string `json:"to_user_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference" binding:"max=200"`
}

// WithdrawRequest is the request body for wallet withdrawals.
type WithdrawRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Destination string `json:"destination" binding:"required,max=200"`
}

// CheckoutRequest is the request body for course, ebook, and topup
// checkout.
type CheckoutRequest struct {
	ItemType   string  `json:"item_type" binding:"required,oneof=COURSE EBOOK TOPUP"`
	ItemID     *string `json:"item_id,omitempty" binding:"omitempty,uuid"`
	Amount     int64   `json:"amount" binding:"required,gt=0"`
	Gateway    string  `json:"gateway" binding:"required,safe_id"`
	CouponCode *string `json:"coupon_code,omitempty" binding:"omitempty,max=50"`
}

// CouponPreviewRequest is the request body for a coupon quote.
type CouponPreviewRequest struct {
	Code   string `json:"code" binding:"required,max=50"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// GatewayEventRequest is the signed callback body posted by payment
// gateways.
type GatewayEventRequest struct {
	GatewayTxID      string `json:"gateway_transaction_id" binding:"required,max=100"`
	PaymentReference string `json:"payment_reference" binding:"required,uuid"`
	Outcome          string `json:"outcome" binding:"required,oneof=success failure refund"`
	Amount           int64  `json:"amount" binding:"required,gt=0"`
	Currency         string `json:"currency" binding:"required,len=3"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance  int64  `json:"balance"`
	Display  string `json:"display"`
	Currency string `json:"currency"`
}

// EntryResponse is a single ledger entry in API responses.
type EntryResponse struct {
	ID          string  `json:"id"`
	Direction   string  `json:"direction"`
	Amount      int64   `json:"amount"`
	Status      string  `json:"status"`
	Reference   string  `json:"reference"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// EntryListResponse wraps a paginated ledger entry list.
type EntryListResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// TransferResponse is the response for a completed transfer.
type TransferResponse struct {
	TransferGroupID string        `json:"transfer_group_id"`
	Debit           EntryResponse `json:"debit"`
	Credit          EntryResponse `json:"credit"`
}

// PaymentResponse is a payment in API responses.
type PaymentResponse struct {
	ID             string  `json:"id"`
	ItemType       string  `json:"item_type"`
	ItemID         *string `json:"item_id,omitempty"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	Gateway        string  `json:"gateway"`
	CouponCode     *string `json:"coupon_code,omitempty"`
	DiscountAmount int64   `json:"discount_amount"`
	CreatedAt      string  `json:"created_at"`
}

// CheckoutResponse is the response for a checkout request.
type CheckoutResponse struct {
	Payment PaymentResponse      `json:"payment"`
	Quote   *CouponQuoteResponse `json:"quote,omitempty"`
	Entry   *EntryResponse       `json:"entry,omitempty"`
}

// CouponQuoteResponse is the response for a coupon preview.
type CouponQuoteResponse struct {
	Code        string `json:"code"`
	Valid       bool   `json:"valid"`
	BaseAmount  int64  `json:"base_amount"`
	Discount    int64  `json:"discount"`
	FinalAmount int64  `json:"final_amount"`
}

// ReviewResponse is a settlement review record in API responses.
type ReviewResponse struct {
	ID          string `json:"id"`
	GatewayTxID string `json:"gateway_tx_id"`
	PaymentRef  string `json:"payment_ref"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail"`
	CreatedAt   string `json:"created_at"`
}

// ReviewListResponse wraps a paginated settlement review list.
type ReviewListResponse struct {
	Items    []ReviewResponse `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}
