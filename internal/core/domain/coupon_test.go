package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyCoupon_Percent(t *testing.T) {
	save10 := &Coupon{Code: "SAVE10", Kind: CouponKindPercent, Value: 10, Active: true}

	quote := ApplyCoupon(save10, 10000)

	assert.True(t, quote.Valid)
	assert.Equal(t, int64(9000), quote.FinalAmount)
	assert.Equal(t, int64(1000), quote.DiscountAmount)
}

func TestApplyCoupon_PercentFloorsToMinorUnit(t *testing.T) {
	// 15% of 999 is 149.85; the discount floors to 149.
	off15 := &Coupon{Code: "OFF15", Kind: CouponKindPercent, Value: 15, Active: true}

	quote := ApplyCoupon(off15, 999)

	assert.Equal(t, int64(149), quote.DiscountAmount)
	assert.Equal(t, int64(850), quote.FinalAmount)
}

func TestApplyCoupon_FixedClampsAtZero(t *testing.T) {
	flat50 := &Coupon{Code: "FLAT50", Kind: CouponKindFixed, Value: 50, Active: true}

	quote := ApplyCoupon(flat50, 30)

	assert.True(t, quote.Valid)
	assert.Equal(t, int64(0), quote.FinalAmount)
	assert.Equal(t, int64(30), quote.DiscountAmount)
}

func TestApplyCoupon_Fixed(t *testing.T) {
	flat50 := &Coupon{Code: "FLAT50", Kind: CouponKindFixed, Value: 50, Active: true}

	quote := ApplyCoupon(flat50, 5000)

	assert.Equal(t, int64(4950), quote.FinalAmount)
	assert.Equal(t, int64(50), quote.DiscountAmount)
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	quote := ApplyCoupon(nil, 5000)

	assert.False(t, quote.Valid)
	assert.Equal(t, int64(5000), quote.FinalAmount)
	assert.Equal(t, int64(0), quote.DiscountAmount)
}

func TestApplyCoupon_InactiveCode(t *testing.T) {
	expired := &Coupon{Code: "EXPIRED", Kind: CouponKindPercent, Value: 50, Active: false}

	quote := ApplyCoupon(expired, 2000)

	assert.False(t, quote.Valid)
	assert.Equal(t, int64(2000), quote.FinalAmount)
	assert.Equal(t, "EXPIRED", quote.Code)
}

func TestApplyCoupon_PercentHugeBase(t *testing.T) {
	// base*pct would overflow int64; the split computation must not.
	save10 := &Coupon{Code: "SAVE10", Kind: CouponKindPercent, Value: 10, Active: true}
	base := int64(9_000_000_000_000_000_000)

	quote := ApplyCoupon(save10, base)

	assert.Equal(t, int64(900_000_000_000_000_000), quote.DiscountAmount)
	assert.Equal(t, int64(8_100_000_000_000_000_000), quote.FinalAmount)
}

func TestApplyCoupon_PercentHugeBaseFloors(t *testing.T) {
	off15 := &Coupon{Code: "OFF15", Kind: CouponKindPercent, Value: 15, Active: true}
	base := int64(9_000_000_000_000_000_007)

	quote := ApplyCoupon(off15, base)

	// 15% of ...007 carries a .05 fraction that must floor away.
	assert.Equal(t, int64(1_350_000_000_000_000_001), quote.DiscountAmount)
	assert.Equal(t, base-1_350_000_000_000_000_001, quote.FinalAmount)
}

func TestApplyCoupon_FullPercentDiscount(t *testing.T) {
	free := &Coupon{Code: "FREE100", Kind: CouponKindPercent, Value: 100, Active: true}

	quote := ApplyCoupon(free, 750)

	assert.Equal(t, int64(0), quote.FinalAmount)
	assert.Equal(t, int64(750), quote.DiscountAmount)
}
