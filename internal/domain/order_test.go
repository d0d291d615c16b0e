package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
)

func newOrder(status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:            1,
		OrderNo:       "E202608310001",
		UserID:        3,
		HotelID:       9,
		Nights:        2,
		RoomsCount:    1,
		TotalPrice:    decimal.NewFromInt(1000),
		ActualPayment: decimal.NewFromInt(900),
		Status:        status,
	}
}

func TestOrder_PayOnlyFromPendingPayment(t *testing.T) {
	o := newOrder(domain.OrderPendingPayment)
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	if err := o.Pay("alipay", at); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if o.Status != domain.OrderPaid || o.PaymentMethod == nil || *o.PaymentMethod != "alipay" {
		t.Fatalf("unexpected order: %+v", o)
	}
	if o.PaymentTime == nil || !o.PaymentTime.Equal(at) {
		t.Fatal("payment time not recorded")
	}

	var sc *domain.StateConflictError
	if err := o.Pay("alipay", at); !errors.As(err, &sc) {
		t.Fatalf("double pay should conflict, got %v", err)
	}
}

func TestOrder_CancelFromPendingPayment(t *testing.T) {
	o := newOrder(domain.OrderPendingPayment)
	refundDue, err := o.Cancel("", time.Now())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if refundDue {
		t.Fatal("unpaid order must not owe a refund")
	}
	if o.Status != domain.OrderCancelled {
		t.Fatalf("status %s", o.Status)
	}
	if o.CancelReason == nil || *o.CancelReason != domain.DefaultCancelReason {
		t.Fatalf("expected default cancel reason, got %v", o.CancelReason)
	}
}

func TestOrder_CancelPaidOwesRefund(t *testing.T) {
	o := newOrder(domain.OrderPaid)
	refundDue, err := o.Cancel("plans changed", time.Now())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !refundDue {
		t.Fatal("cancelling a paid order must owe a refund")
	}
	if *o.CancelReason != "plans changed" {
		t.Fatalf("reason %q", *o.CancelReason)
	}
}

func TestOrder_CancelTerminalStatesConflict(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderConfirmed,
		domain.OrderCheckedIn,
		domain.OrderCompleted,
		domain.OrderCancelled,
		domain.OrderRefunded,
	} {
		o := newOrder(status)
		_, err := o.Cancel("late", time.Now())
		var sc *domain.StateConflictError
		if !errors.As(err, &sc) {
			t.Fatalf("cancel from %s: want StateConflictError, got %v", status, err)
		}
		if o.Status != status || o.CancelReason != nil {
			t.Fatalf("order mutated on failed cancel from %s: %+v", status, o)
		}
	}
}

func TestOrder_AdvanceFollowsStayMarkers(t *testing.T) {
	o := newOrder(domain.OrderPaid)
	for _, to := range []domain.OrderStatus{
		domain.OrderConfirmed,
		domain.OrderCheckedIn,
		domain.OrderCompleted,
	} {
		if err := o.Advance(to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}

	// Skipping a marker is rejected.
	o = newOrder(domain.OrderPaid)
	var sc *domain.StateConflictError
	if err := o.Advance(domain.OrderCheckedIn); !errors.As(err, &sc) {
		t.Fatalf("paid -> checked_in should conflict, got %v", err)
	}

	// Advancing to a non-marker status is invalid input, not a conflict.
	var ve *domain.ValidationError
	if err := o.Advance(domain.OrderCancelled); !errors.As(err, &ve) {
		t.Fatalf("advance to cancelled: want ValidationError, got %v", err)
	}
}

func TestValidateStay(t *testing.T) {
	today := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	day := func(offset int) time.Time { return today.AddDate(0, 0, offset) }

	nights, err := domain.ValidateStay(day(1), day(4), today)
	if err != nil || nights != 3 {
		t.Fatalf("nights=%d err=%v", nights, err)
	}

	// Same-day check-in is allowed.
	if _, err := domain.ValidateStay(day(0), day(1), today); err != nil {
		t.Fatalf("same-day check-in: %v", err)
	}

	var ve *domain.ValidationError
	if _, err := domain.ValidateStay(day(-1), day(2), today); !errors.As(err, &ve) {
		t.Fatalf("past check-in: want ValidationError, got %v", err)
	}
	if _, err := domain.ValidateStay(day(2), day(2), today); !errors.As(err, &ve) {
		t.Fatalf("zero nights: want ValidationError, got %v", err)
	}

	var pv *domain.PolicyViolationError
	if _, err := domain.ValidateStay(day(1), day(32), today); !errors.As(err, &pv) {
		t.Fatalf("31 nights: want PolicyViolationError, got %v", err)
	}
	if nights, err := domain.ValidateStay(day(1), day(31), today); err != nil || nights != 30 {
		t.Fatalf("30 nights should pass: nights=%d err=%v", nights, err)
	}
}

func TestNewOrderNo_Format(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	no := domain.NewOrderNo(now)
	if len(no) != 13 || !strings.HasPrefix(no, "E20260831") {
		t.Fatalf("unexpected order no %q", no)
	}
	for _, c := range no[1:] {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit in order no %q", no)
		}
	}
}
