package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller as resolved by the AuthProvider.
type Identity struct {
	UserID int64
	Role   Role
}

// AuthProvider turns a bearer credential into an identity, or fails with
// the adapter's unauthenticated/expired errors.
type AuthProvider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type HotelStore interface {
	Create(ctx context.Context, h *Hotel) error
	Get(ctx context.Context, id int64) (Hotel, error)

	// Save persists the full row only when the stored status pair still
	// matches the expected one; reports false when a concurrent transition
	// won the race.
	Save(ctx context.Context, h Hotel, expectReview ReviewStatus, expectPublish PublishStatus) (bool, error)

	Delete(ctx context.Context, id int64) error
	ListByMerchant(ctx context.Context, merchantID int64, q HotelsQuery) ([]Hotel, int64, error)
	ListPendingReview(ctx context.Context, q HotelsQuery) ([]Hotel, int64, error)
	CountByReview(ctx context.Context) (map[ReviewStatus]int64, error)
}

type OrderStore interface {
	// Create persists a new order and fills in o.ID. An order_no collision
	// surfaces as ErrDuplicateOrderNo for the caller to retry.
	Create(ctx context.Context, o *Order) error

	Get(ctx context.Context, id int64) (Order, error)

	// SetStatus writes the order's status block (status, payment fields,
	// cancel fields) guarded by `WHERE order_status = expect`; reports
	// false when zero rows matched.
	SetStatus(ctx context.Context, o Order, expect OrderStatus) (bool, error)

	ListByUser(ctx context.Context, userID int64, q OrdersQuery) ([]Order, int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[OrderStatus]int64, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (MemberProfile, error)
	AddPoints(ctx context.Context, userID int64, points int64) error
}

// RefundRequest is handed to the settlement side when a paid order is
// cancelled. Fire-and-forget: delivery is best effort and asynchronous.
type RefundRequest struct {
	OrderNo string
	Amount  decimal.Decimal
}

type NotificationSink interface {
	Refund(ctx context.Context, req RefundRequest)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// OrderGroup is the mobile client's order-list bucketing.
type OrderGroup string

const (
	GroupAll       OrderGroup = "all"
	GroupToPay     OrderGroup = "to_pay"
	GroupToStay    OrderGroup = "to_stay"
	GroupStayed    OrderGroup = "stayed"
	GroupCancelled OrderGroup = "cancelled"
)

// GroupStatuses maps a group to the statuses it covers. GroupAll maps to
// nil, meaning no status filter.
func GroupStatuses(g OrderGroup) []OrderStatus {
	switch g {
	case GroupToPay:
		return []OrderStatus{OrderPendingPayment}
	case GroupToStay:
		return []OrderStatus{OrderPendingPayment, OrderPaid, OrderConfirmed}
	case GroupStayed:
		return []OrderStatus{OrderCheckedIn, OrderCompleted}
	case GroupCancelled:
		return []OrderStatus{OrderCancelled, OrderRefunded}
	default:
		return nil
	}
}

type OrdersQuery struct {
	Group OrderGroup
	Page  int
	Limit int
}

// HotelView is the public read model served to the mobile app. Only
// approved+published hotels are ever visible through it.
type HotelView struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	NameEN       *string          `json:"name_en,omitempty"`
	Address      string           `json:"address"`
	Star         int              `json:"star"`
	Price        decimal.Decimal  `json:"price"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	DiscountDesc *string          `json:"discount_description,omitempty"`
	Images       []string         `json:"images"`
	Tags         []string         `json:"tags"`
	Facilities   []string         `json:"facilities"`
}

type HotelsQuery struct {
	ReviewStatus  *ReviewStatus
	PublishStatus *PublishStatus
	Page          int
	Limit         int
}
