// Package pricing computes booking totals with stacked discounts. The
// discount order is fixed (promotional, then member, then coupon) so a
// quote is reproducible from its inputs.
package pricing

import (
	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
)

const (
	DiscountPromo  = "promo"
	DiscountMember = "member"
	DiscountCoupon = "coupon"
)

// Params are the quote inputs beyond the base nightly rate. Discount and
// MemberDiscount are multipliers and count only when inside (0,1);
// CouponAmount is a flat deduction applied last.
type Params struct {
	Nights         int
	Rooms          int
	Discount       *decimal.Decimal
	MemberDiscount *decimal.Decimal
	CouponAmount   decimal.Decimal
}

// AppliedDiscount records one step of the stack. Amount is the money the
// step saved relative to the running total before it.
type AppliedDiscount struct {
	Type   string           `json:"type"`
	Rate   *decimal.Decimal `json:"rate,omitempty"`
	Amount decimal.Decimal  `json:"amount"`
}

type Quote struct {
	OriginalTotal   decimal.Decimal   `json:"original_total"`
	FinalTotal      decimal.Decimal   `json:"final_total"`
	TotalDiscount   decimal.Decimal   `json:"total_discount"`
	Applied         []AppliedDiscount `json:"applied_discounts"`
	Nights          int               `json:"nights"`
	Rooms           int               `json:"rooms"`
	AveragePerNight decimal.Decimal   `json:"average_per_night"`
}

var one = decimal.NewFromInt(1)

// multiplierValid reports whether d is a usable discount rate, i.e. in (0,1).
func multiplierValid(d *decimal.Decimal) bool {
	return d != nil && d.IsPositive() && d.LessThan(one)
}

// CalculateTotal builds a quote for basePrice x nights x rooms with the
// discount stack applied in order. All currency outputs are rounded
// half-up to cents.
func CalculateTotal(basePrice decimal.Decimal, p Params) Quote {
	if p.Nights < 1 {
		p.Nights = 1
	}
	if p.Rooms < 1 {
		p.Rooms = 1
	}

	original := basePrice.Mul(decimal.NewFromInt(int64(p.Nights))).Mul(decimal.NewFromInt(int64(p.Rooms)))
	running := original
	var applied []AppliedDiscount

	if multiplierValid(p.Discount) {
		next := running.Mul(*p.Discount)
		applied = append(applied, AppliedDiscount{
			Type:   DiscountPromo,
			Rate:   p.Discount,
			Amount: running.Sub(next).Round(2),
		})
		running = next
	}

	if multiplierValid(p.MemberDiscount) {
		next := running.Mul(*p.MemberDiscount)
		applied = append(applied, AppliedDiscount{
			Type:   DiscountMember,
			Rate:   p.MemberDiscount,
			Amount: running.Sub(next).Round(2),
		})
		running = next
	}

	if p.CouponAmount.IsPositive() {
		next := running.Sub(p.CouponAmount)
		if next.IsNegative() {
			next = decimal.Zero
		}
		applied = append(applied, AppliedDiscount{
			Type:   DiscountCoupon,
			Amount: running.Sub(next).Round(2),
		})
		running = next
	}

	final := running.Round(2)
	original = original.Round(2)
	return Quote{
		OriginalTotal:   original,
		FinalTotal:      final,
		TotalDiscount:   original.Sub(final),
		Applied:         applied,
		Nights:          p.Nights,
		Rooms:           p.Rooms,
		AveragePerNight: final.Div(decimal.NewFromInt(int64(p.Nights))).Round(2),
	}
}

var memberDiscounts = map[domain.MemberLevel]decimal.Decimal{
	domain.LevelOrdinary: decimal.NewFromInt(1),
	domain.LevelSilver:   decimal.NewFromFloat(0.98),
	domain.LevelGold:     decimal.NewFromFloat(0.95),
	domain.LevelPlatinum: decimal.NewFromFloat(0.92),
	domain.LevelDiamond:  decimal.NewFromFloat(0.88),
}

// MemberDiscount returns the fixed multiplier for a loyalty tier. Unknown
// tiers get no discount.
func MemberDiscount(level domain.MemberLevel) decimal.Decimal {
	if d, ok := memberDiscounts[level]; ok {
		return d
	}
	return one
}

// PointsDiscount describes how much of an order's total the user's points
// can cover: 100 points equal one currency unit, capped at 30% of the total.
type PointsDiscount struct {
	Usable           bool            `json:"usable"`
	MaxDeductible    decimal.Decimal `json:"max_deductible"`
	ActualDeductible decimal.Decimal `json:"actual_deductible"`
	UsedPoints       int64           `json:"used_points"`
	RemainingPoints  int64           `json:"remaining_points"`
}

var pointsPerUnit = decimal.NewFromInt(100)

// CalculatePointsDiscount resolves the redeemable amount for the given
// balance against an order total.
func CalculatePointsDiscount(points int64, total decimal.Decimal) PointsDiscount {
	maxByPoints := decimal.NewFromInt(points / 100)
	cap30 := total.Mul(decimal.NewFromFloat(0.3))

	actual := maxByPoints
	if cap30.LessThan(actual) {
		actual = cap30
	}
	actual = actual.Round(2)
	used := actual.Mul(pointsPerUnit).IntPart()

	return PointsDiscount{
		Usable:           points >= 100,
		MaxDeductible:    maxByPoints,
		ActualDeductible: actual,
		UsedPoints:       used,
		RemainingPoints:  points - used,
	}
}
