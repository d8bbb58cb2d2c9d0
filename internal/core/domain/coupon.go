package domain

import "time"

// CouponKind distinguishes percentage discounts from fixed-amount ones.
type CouponKind string

const (
	CouponKindPercent CouponKind = "PERCENT"
	CouponKindFixed   CouponKind = "FIXED"
)

// Coupon is a catalog discount. Value is a percentage (0-100) for PERCENT
// coupons and a minor-unit amount for FIXED coupons.
type Coupon struct {
	Code      string     `json:"code"`
	Kind      CouponKind `json:"kind"`
	Value     int64      `json:"value"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// CouponQuote is the result of applying a coupon to a base amount.
// An unknown or inactive code yields Valid=false with FinalAmount equal
// to the base amount; whether that blocks checkout is the caller's call.
type CouponQuote struct {
	Valid          bool   `json:"valid"`
	FinalAmount    int64  `json:"final_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	Code           string `json:"code"`
}

// ApplyCoupon computes the discounted charge for a base amount. Pure:
// no side effects, no clock, no I/O. Percentage discounts floor to the
// minor unit; fixed discounts never drive the final amount below zero.
func ApplyCoupon(c *Coupon, baseAmount int64) CouponQuote {
	if c == nil || !c.Active {
		code := ""
		if c != nil {
			code = c.Code
		}
		return CouponQuote{Valid: false, FinalAmount: baseAmount, DiscountAmount: 0, Code: code}
	}

	var discount int64
	switch c.Kind {
	case CouponKindPercent:
		switch {
		case c.Value >= 100:
			discount = baseAmount
		case c.Value > 0:
			// Split the multiplication so extreme base amounts cannot
			// overflow before the division. floor(base*pct/100) ==
			// base/100*pct + base%100*pct/100 exactly.
			discount = baseAmount/100*c.Value + baseAmount%100*c.Value/100
		}
	case CouponKindFixed:
		discount = c.Value
	}

	if discount > baseAmount {
		discount = baseAmount
	}
	if discount < 0 {
		discount = 0
	}

	return CouponQuote{
		Valid:          true,
		FinalAmount:    baseAmount - discount,
		DiscountAmount: discount,
		Code:           c.Code,
	}
}
