package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
	"stayhub/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func pdec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func eq(t *testing.T, got decimal.Decimal, want string, what string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: got %s, want %s", what, got, want)
	}
}

func TestCalculateTotal_NoDiscounts(t *testing.T) {
	q := pricing.CalculateTotal(dec("200"), pricing.Params{Nights: 4, Rooms: 2})
	eq(t, q.OriginalTotal, "1600", "original")
	eq(t, q.FinalTotal, "1600", "final")
	eq(t, q.TotalDiscount, "0", "discount")
	if len(q.Applied) != 0 {
		t.Fatalf("expected no applied discounts, got %+v", q.Applied)
	}
	eq(t, q.AveragePerNight, "400", "avg per night")
}

func TestCalculateTotal_PromoThenMember(t *testing.T) {
	// basePrice=500, nights=3, discount=0.9, member=0.95:
	// 1500 -> 1350 -> 1282.50
	q := pricing.CalculateTotal(dec("500"), pricing.Params{
		Nights:         3,
		Rooms:          1,
		Discount:       pdec("0.9"),
		MemberDiscount: pdec("0.95"),
	})
	eq(t, q.OriginalTotal, "1500.00", "original")
	eq(t, q.FinalTotal, "1282.50", "final")
	eq(t, q.TotalDiscount, "217.50", "discount")
	eq(t, q.AveragePerNight, "427.50", "avg per night")

	if len(q.Applied) != 2 {
		t.Fatalf("expected 2 applied discounts, got %d", len(q.Applied))
	}
	if q.Applied[0].Type != pricing.DiscountPromo || q.Applied[1].Type != pricing.DiscountMember {
		t.Fatalf("discount order wrong: %+v", q.Applied)
	}
	eq(t, q.Applied[0].Amount, "150.00", "promo saved")
	eq(t, q.Applied[1].Amount, "67.50", "member saved")
}

func TestCalculateTotal_FullStackOrderMatters(t *testing.T) {
	// 100 -> promo 0.8 -> 80 -> member 0.9 -> 72 -> coupon 10 -> 62.
	// Any other ordering of these three steps gives a different final total.
	q := pricing.CalculateTotal(dec("100"), pricing.Params{
		Nights:         1,
		Rooms:          1,
		Discount:       pdec("0.8"),
		MemberDiscount: pdec("0.9"),
		CouponAmount:   dec("10"),
	})
	eq(t, q.FinalTotal, "62.00", "final")
	eq(t, q.TotalDiscount, "38.00", "discount")
	eq(t, q.Applied[0].Amount, "20.00", "promo saved")
	eq(t, q.Applied[1].Amount, "8.00", "member saved")
	eq(t, q.Applied[2].Amount, "10.00", "coupon saved")
}

func TestCalculateTotal_CouponFloorsAtZero(t *testing.T) {
	q := pricing.CalculateTotal(dec("10"), pricing.Params{
		Nights:       1,
		Rooms:        1,
		CouponAmount: dec("50"),
	})
	eq(t, q.FinalTotal, "0", "final")
	eq(t, q.Applied[0].Amount, "10.00", "coupon saved caps at remaining balance")
	if q.FinalTotal.IsNegative() {
		t.Fatal("final total went negative")
	}
}

func TestCalculateTotal_IgnoresInvalidMultipliers(t *testing.T) {
	for _, bad := range []string{"0", "1", "1.2", "-0.5"} {
		q := pricing.CalculateTotal(dec("100"), pricing.Params{
			Nights:   2,
			Rooms:    1,
			Discount: pdec(bad),
		})
		if len(q.Applied) != 0 {
			t.Fatalf("discount %s should be ignored, applied %+v", bad, q.Applied)
		}
		eq(t, q.FinalTotal, "200", "final with discount "+bad)
	}
}

func TestCalculateTotal_DefaultsNightsAndRooms(t *testing.T) {
	q := pricing.CalculateTotal(dec("88"), pricing.Params{})
	eq(t, q.OriginalTotal, "88", "original")
	if q.Nights != 1 || q.Rooms != 1 {
		t.Fatalf("defaults: nights=%d rooms=%d", q.Nights, q.Rooms)
	}
}

func TestMemberDiscount_Table(t *testing.T) {
	cases := map[domain.MemberLevel]string{
		domain.LevelOrdinary: "1",
		domain.LevelSilver:   "0.98",
		domain.LevelGold:     "0.95",
		domain.LevelPlatinum: "0.92",
		domain.LevelDiamond:  "0.88",
	}
	for level, want := range cases {
		eq(t, pricing.MemberDiscount(level), want, string(level))
	}
	eq(t, pricing.MemberDiscount("vip999"), "1", "unknown level falls back to no discount")
}

func TestCalculatePointsDiscount(t *testing.T) {
	// Plenty of headroom: points bound.
	pd := pricing.CalculatePointsDiscount(500, dec("100"))
	if !pd.Usable {
		t.Fatal("500 points should be usable")
	}
	eq(t, pd.ActualDeductible, "5", "actual")
	if pd.UsedPoints != 500 || pd.RemainingPoints != 0 {
		t.Fatalf("used=%d remaining=%d", pd.UsedPoints, pd.RemainingPoints)
	}

	// 30% cap binds.
	pd = pricing.CalculatePointsDiscount(10000, dec("50"))
	eq(t, pd.MaxDeductible, "100", "max by points")
	eq(t, pd.ActualDeductible, "15", "capped at 30% of total")
	if pd.UsedPoints != 1500 || pd.RemainingPoints != 8500 {
		t.Fatalf("used=%d remaining=%d", pd.UsedPoints, pd.RemainingPoints)
	}

	// Below the 100-point threshold.
	pd = pricing.CalculatePointsDiscount(99, dec("100"))
	if pd.Usable {
		t.Fatal("99 points should not be usable")
	}
	eq(t, pd.ActualDeductible, "0", "nothing deductible under 100 points")
}
