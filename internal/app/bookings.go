package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
	"stayhub/internal/pricing"
)

// ErrHotelNotAvailable covers both a missing hotel and one that is not
// approved+published: unbookable listings are invisible to end users.
var ErrHotelNotAvailable = errors.New("hotel not available for booking")

// orderNoAttempts bounds retries when a generated order number collides.
const orderNoAttempts = 3

// BookingService orchestrates order creation, payment, cancellation and
// rebooking on top of the price calculator and the order state machine.
// It never mutates hotel state.
type BookingService struct {
	hotels   domain.HotelStore
	orders   domain.OrderStore
	profiles domain.ProfileStore
	notify   domain.NotificationSink
	now      func() time.Time
}

func NewBookingService(hotels domain.HotelStore, orders domain.OrderStore, profiles domain.ProfileStore, notify domain.NotificationSink) *BookingService {
	return &BookingService{
		hotels:   hotels,
		orders:   orders,
		profiles: profiles,
		notify:   notify,
		now:      time.Now,
	}
}

type CreateOrderInput struct {
	HotelID         int64
	RoomName        string
	RoomPrice       *decimal.Decimal // overrides the hotel base rate when set
	CheckIn         time.Time
	CheckOut        time.Time
	RoomsCount      int
	Adults          int
	Children        int
	ContactName     string
	ContactPhone    string
	SpecialRequests *string
}

// CreateOrder validates the stay, asserts the hotel is bookable, resolves
// the member discount, prices the stay and persists the order with a
// frozen room snapshot.
func (s *BookingService) CreateOrder(ctx context.Context, actor domain.Identity, in CreateOrderInput) (domain.Order, pricing.Quote, error) {
	if strings.TrimSpace(in.ContactName) == "" {
		return domain.Order{}, pricing.Quote{}, domain.Invalid("contact_name", "contact name is required")
	}
	if !validPhone(in.ContactPhone) {
		return domain.Order{}, pricing.Quote{}, domain.Invalid("contact_phone", "invalid mobile number")
	}
	now := s.now()
	nights, err := domain.ValidateStay(in.CheckIn, in.CheckOut, now)
	if err != nil {
		return domain.Order{}, pricing.Quote{}, err
	}
	if in.RoomsCount < 1 {
		in.RoomsCount = 1
	}
	if in.Adults < 1 {
		in.Adults = 2
	}

	hotel, err := s.hotels.Get(ctx, in.HotelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, pricing.Quote{}, ErrHotelNotAvailable
		}
		return domain.Order{}, pricing.Quote{}, err
	}
	if !hotel.Bookable() {
		return domain.Order{}, pricing.Quote{}, ErrHotelNotAvailable
	}

	basePrice := hotel.Price
	if in.RoomPrice != nil && in.RoomPrice.IsPositive() {
		basePrice = *in.RoomPrice
	}

	quote := pricing.CalculateTotal(basePrice, pricing.Params{
		Nights:         nights,
		Rooms:          in.RoomsCount,
		Discount:       hotel.Discount,
		MemberDiscount: s.memberDiscount(ctx, actor.UserID),
	})

	roomName := in.RoomName
	if roomName == "" {
		roomName = "standard"
	}
	order := domain.Order{
		UserID:          actor.UserID,
		HotelID:         hotel.ID,
		Room:            domain.RoomSnapshot{Name: roomName, BookedPrice: basePrice},
		CheckIn:         in.CheckIn,
		CheckOut:        in.CheckOut,
		Nights:          nights,
		RoomsCount:      in.RoomsCount,
		Adults:          in.Adults,
		Children:        in.Children,
		ContactName:     in.ContactName,
		ContactPhone:    in.ContactPhone,
		SpecialRequests: in.SpecialRequests,
		RoomPrice:       basePrice,
		TotalPrice:      quote.OriginalTotal,
		DiscountAmount:  quote.TotalDiscount,
		ActualPayment:   quote.FinalTotal,
		Status:          domain.OrderPendingPayment,
	}
	if err := s.insertWithFreshNo(ctx, &order); err != nil {
		return domain.Order{}, pricing.Quote{}, err
	}
	return order, quote, nil
}

// memberDiscount resolves the requester's tier multiplier; a missing
// profile or a no-op multiplier yields nil so the calculator skips the step.
func (s *BookingService) memberDiscount(ctx context.Context, userID int64) *decimal.Decimal {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil
	}
	rate := pricing.MemberDiscount(profile.Level)
	if !rate.LessThan(decimal.NewFromInt(1)) {
		return nil
	}
	return &rate
}

func (s *BookingService) insertWithFreshNo(ctx context.Context, o *domain.Order) error {
	var err error
	for i := 0; i < orderNoAttempts; i++ {
		o.OrderNo = domain.NewOrderNo(s.now())
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, domain.ErrDuplicateOrderNo) {
			return err
		}
	}
	return err
}

// PayOrder marks a pending order paid and accrues floor(actual_payment)
// points to the payer's member profile.
func (s *BookingService) PayOrder(ctx context.Context, actor domain.Identity, orderID int64, method string) (domain.Order, int64, error) {
	o, err := s.loadOwnedOrder(ctx, actor, orderID)
	if err != nil {
		return domain.Order{}, 0, err
	}

	prev := o.Status
	if err := o.Pay(method, s.now()); err != nil {
		return domain.Order{}, 0, err
	}
	if err := s.setStatus(ctx, o, prev, "pay"); err != nil {
		return domain.Order{}, 0, err
	}

	points := o.ActualPayment.Floor().IntPart()
	if points > 0 {
		if err := s.profiles.AddPoints(ctx, o.UserID, points); err != nil {
			// Payment already landed; points accrual is repairable offline.
			log.Warn().
				Str("order_no", o.OrderNo).
				Int64("user_id", o.UserID).
				Int64("points", points).
				Err(err).
				Msg("points accrual failed after payment")
			return o, 0, nil
		}
	}
	return o, points, nil
}

// CancelOrder cancels a pending or paid order. When the order was paid the
// refund of ActualPayment is handed to the notification sink, fire and
// forget.
func (s *BookingService) CancelOrder(ctx context.Context, actor domain.Identity, orderID int64, reason string) (domain.Order, error) {
	o, err := s.loadOwnedOrder(ctx, actor, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	prev := o.Status
	refundDue, err := o.Cancel(reason, s.now())
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.setStatus(ctx, o, prev, "cancel"); err != nil {
		return domain.Order{}, err
	}

	if refundDue && s.notify != nil {
		s.notify.Refund(ctx, domain.RefundRequest{OrderNo: o.OrderNo, Amount: o.ActualPayment})
	}
	return o, nil
}

// RebookOrder creates a brand-new pending order copying hotel, room and
// contact details from the source order. The source order is untouched.
// Dates default to a one-night stay starting tomorrow.
func (s *BookingService) RebookOrder(ctx context.Context, actor domain.Identity, orderID int64, checkIn, checkOut *time.Time) (domain.Order, error) {
	src, err := s.loadOwnedOrder(ctx, actor, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	in := now.AddDate(0, 0, 1)
	out := now.AddDate(0, 0, 2)
	if checkIn != nil && checkOut != nil {
		in, out = *checkIn, *checkOut
	}
	nights, err := domain.ValidateStay(in, out, now)
	if err != nil {
		return domain.Order{}, err
	}

	// Rebooking reuses the frozen room price with no discounts; the user
	// sees the final amount before paying.
	quote := pricing.CalculateTotal(src.RoomPrice, pricing.Params{Nights: nights, Rooms: src.RoomsCount})

	order := domain.Order{
		UserID:         src.UserID,
		HotelID:        src.HotelID,
		Room:           src.Room,
		CheckIn:        in,
		CheckOut:       out,
		Nights:         nights,
		RoomsCount:     src.RoomsCount,
		Adults:         src.Adults,
		Children:       src.Children,
		ContactName:    src.ContactName,
		ContactPhone:   src.ContactPhone,
		RoomPrice:      src.RoomPrice,
		TotalPrice:     quote.OriginalTotal,
		DiscountAmount: quote.TotalDiscount,
		ActualPayment:  quote.FinalTotal,
		Status:         domain.OrderPendingPayment,
	}
	if err := s.insertWithFreshNo(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// AdvanceOrder moves an order along the stay markers
// (confirmed/checked_in/completed). Admin only; pure status bookkeeping.
func (s *BookingService) AdvanceOrder(ctx context.Context, actor domain.Identity, orderID int64, to domain.OrderStatus) (domain.Order, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.Order{}, domain.Forbidden("only admins advance orders")
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	prev := o.Status
	if err := o.Advance(to); err != nil {
		return domain.Order{}, err
	}
	if err := s.setStatus(ctx, o, prev, string(to)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *BookingService) GetOrder(ctx context.Context, actor domain.Identity, orderID int64) (domain.Order, error) {
	return s.loadOwnedOrder(ctx, actor, orderID)
}

func (s *BookingService) ListOrders(ctx context.Context, actor domain.Identity, q domain.OrdersQuery) ([]domain.Order, int64, error) {
	return s.orders.ListByUser(ctx, actor.UserID, q)
}

// OrderStats counts the requester's orders per mobile-app bucket.
type OrderStats struct {
	All       int64 `json:"all"`
	ToPay     int64 `json:"to_pay"`
	ToStay    int64 `json:"to_stay"`
	Stayed    int64 `json:"stayed"`
	Cancelled int64 `json:"cancelled"`
}

func (s *BookingService) OrderStatistics(ctx context.Context, actor domain.Identity) (OrderStats, error) {
	counts, err := s.orders.CountByStatus(ctx, actor.UserID)
	if err != nil {
		return OrderStats{}, err
	}
	sum := func(statuses []domain.OrderStatus) int64 {
		var n int64
		for _, st := range statuses {
			n += counts[st]
		}
		return n
	}
	stats := OrderStats{
		ToPay:     sum(domain.GroupStatuses(domain.GroupToPay)),
		ToStay:    sum(domain.GroupStatuses(domain.GroupToStay)),
		Stayed:    sum(domain.GroupStatuses(domain.GroupStayed)),
		Cancelled: sum(domain.GroupStatuses(domain.GroupCancelled)),
	}
	for _, n := range counts {
		stats.All += n
	}
	return stats, nil
}

func (s *BookingService) loadOwnedOrder(ctx context.Context, actor domain.Identity, orderID int64) (domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.Role != domain.RoleAdmin && o.UserID != actor.UserID {
		// Hide other users' orders entirely.
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

// setStatus persists the transition guarded by the pre-transition status.
func (s *BookingService) setStatus(ctx context.Context, o domain.Order, expect domain.OrderStatus, action string) error {
	applied, err := s.orders.SetStatus(ctx, o, expect)
	if err != nil {
		return err
	}
	if !applied {
		return &domain.StateConflictError{Entity: "order", From: string(expect), Action: action}
	}
	return nil
}
