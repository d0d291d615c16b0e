package domain

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderCheckedIn      OrderStatus = "checked_in"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

// orderTransitions is the full from-state table. Cancelled and refunded
// are terminal; cancel is reachable only from pending_payment and paid.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendingPayment: {OrderPaid, OrderCancelled},
	OrderPaid:           {OrderConfirmed, OrderCancelled, OrderRefunded},
	OrderConfirmed:      {OrderCheckedIn},
	OrderCheckedIn:      {OrderCompleted},
	OrderCompleted:      {},
	OrderCancelled:      {},
	OrderRefunded:       {},
}

// CanTransition reports whether from -> to is a permitted order move.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MaxStayNights caps a single booking's length.
const MaxStayNights = 30

// RoomSnapshot is frozen at booking time so later hotel or room edits never
// alter historical orders.
type RoomSnapshot struct {
	Name        string          `json:"name"`
	BookedPrice decimal.Decimal `json:"booked_price"`
}

type Order struct {
	ID              int64
	OrderNo         string
	UserID          int64
	HotelID         int64
	Room            RoomSnapshot
	CheckIn         time.Time // date only
	CheckOut        time.Time // date only
	Nights          int
	RoomsCount      int
	Adults          int
	Children        int
	ContactName     string
	ContactPhone    string
	SpecialRequests *string
	RoomPrice       decimal.Decimal
	TotalPrice      decimal.Decimal // pre-discount
	DiscountAmount  decimal.Decimal
	ActualPayment   decimal.Decimal // TotalPrice - DiscountAmount, never negative
	Status          OrderStatus
	PaymentMethod   *string
	PaymentTime     *time.Time
	CancelReason    *string
	CancelTime      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func orderConflict(from OrderStatus, action string) error {
	return &StateConflictError{Entity: "order", From: string(from), Action: action}
}

// Cancellable reports whether the order may still be cancelled by its user.
func (o *Order) Cancellable() bool {
	return o.Status == OrderPendingPayment || o.Status == OrderPaid
}

// Payable reports whether the order is awaiting payment.
func (o *Order) Payable() bool { return o.Status == OrderPendingPayment }

// Reviewable reports whether the stay finished, i.e. the user may review it.
func (o *Order) Reviewable() bool { return o.Status == OrderCompleted }

// Pay marks the order paid and records method and time.
func (o *Order) Pay(method string, at time.Time) error {
	if !CanTransition(o.Status, OrderPaid) {
		return orderConflict(o.Status, "pay")
	}
	if strings.TrimSpace(method) == "" {
		method = "wechat"
	}
	o.Status = OrderPaid
	o.PaymentMethod = &method
	o.PaymentTime = &at
	return nil
}

// DefaultCancelReason is recorded when the user gives none.
const DefaultCancelReason = "user-initiated"

// Cancel marks the order cancelled. The returned flag tells the caller a
// refund of ActualPayment is owed (the prior state was paid).
func (o *Order) Cancel(reason string, at time.Time) (refundDue bool, err error) {
	if !o.Cancellable() {
		return false, orderConflict(o.Status, "cancel")
	}
	refundDue = o.Status == OrderPaid
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancelReason
	}
	o.Status = OrderCancelled
	o.CancelReason = &reason
	o.CancelTime = &at
	return refundDue, nil
}

// Advance moves the order along the stay markers
// (paid -> confirmed -> checked_in -> completed). No business logic beyond
// the transition table.
func (o *Order) Advance(to OrderStatus) error {
	switch to {
	case OrderConfirmed, OrderCheckedIn, OrderCompleted:
	default:
		return Invalid("status", fmt.Sprintf("%q is not a stay marker", to))
	}
	if !CanTransition(o.Status, to) {
		return orderConflict(o.Status, string(to))
	}
	o.Status = to
	return nil
}

// NewOrderNo builds an order number from the date plus four random digits,
// e.g. E202608310042. Uniqueness is enforced by the store; callers retry on
// a duplicate.
func NewOrderNo(now time.Time) string {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// fall back to the clock's sub-second digits
		return fmt.Sprintf("E%s%04d", now.Format("20060102"), now.Nanosecond()%10000)
	}
	n := binary.BigEndian.Uint64(b[:]) % 10000
	return fmt.Sprintf("E%s%04d", now.Format("20060102"), n)
}

// ValidateStay checks the requested date range: check-in not in the past,
// check-out after check-in, stay within the night cap. Returns the derived
// number of nights.
func ValidateStay(checkIn, checkOut, today time.Time) (int, error) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	in, out, td := day(checkIn), day(checkOut), day(today)
	if in.Before(td) {
		return 0, Invalid("check_in_date", "check-in date cannot be in the past")
	}
	if !out.After(in) {
		return 0, Invalid("check_out_date", "check-out date must be after check-in")
	}
	nights := int(out.Sub(in).Hours() / 24)
	if nights > MaxStayNights {
		return 0, Policy(fmt.Sprintf("stays are limited to %d nights", MaxStayNights))
	}
	return nights, nil
}
