package httpserver

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	"stayhub/internal/pricing"
)

const stayDateLayout = "2006-01-02"

// ---- order payloads ----

type createOrderReq struct {
	HotelID         int64            `json:"hotel_id"`
	RoomName        string           `json:"room_name"`
	RoomPrice       *decimal.Decimal `json:"room_price"`
	CheckIn         string           `json:"check_in"`
	CheckOut        string           `json:"check_out"`
	RoomsCount      int              `json:"rooms_count"`
	Adults          int              `json:"adults"`
	Children        int              `json:"children"`
	ContactName     string           `json:"contact_name"`
	ContactPhone    string           `json:"contact_phone"`
	SpecialRequests *string          `json:"special_requests"`
}

type orderResp struct {
	ID              int64           `json:"id"`
	OrderNo         string          `json:"order_no"`
	UserID          int64           `json:"user_id"`
	HotelID         int64           `json:"hotel_id"`
	RoomName        string          `json:"room_name"`
	BookedPrice     decimal.Decimal `json:"booked_price"`
	CheckIn         string          `json:"check_in"`
	CheckOut        string          `json:"check_out"`
	Nights          int             `json:"nights"`
	RoomsCount      int             `json:"rooms_count"`
	Adults          int             `json:"adults"`
	Children        int             `json:"children"`
	ContactName     string          `json:"contact_name"`
	ContactPhone    string          `json:"contact_phone"`
	SpecialRequests *string         `json:"special_requests,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	ActualPayment   decimal.Decimal `json:"actual_payment"`
	Status          string          `json:"status"`
	PaymentMethod   *string         `json:"payment_method,omitempty"`
	PaymentTime     *time.Time      `json:"payment_time,omitempty"`
	CancelReason    *string         `json:"cancel_reason,omitempty"`
	CancelTime      *time.Time      `json:"cancel_time,omitempty"`

	// capability flags the mobile client renders buttons from
	CanPay    bool `json:"can_pay"`
	CanCancel bool `json:"can_cancel"`
	CanReview bool `json:"can_review"`
}

func toOrderResp(o domain.Order) orderResp {
	return orderResp{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		HotelID:         o.HotelID,
		RoomName:        o.Room.Name,
		BookedPrice:     o.Room.BookedPrice,
		CheckIn:         o.CheckIn.Format(stayDateLayout),
		CheckOut:        o.CheckOut.Format(stayDateLayout),
		Nights:          o.Nights,
		RoomsCount:      o.RoomsCount,
		Adults:          o.Adults,
		Children:        o.Children,
		ContactName:     o.ContactName,
		ContactPhone:    o.ContactPhone,
		SpecialRequests: o.SpecialRequests,
		TotalPrice:      o.TotalPrice,
		DiscountAmount:  o.DiscountAmount,
		ActualPayment:   o.ActualPayment,
		Status:          string(o.Status),
		PaymentMethod:   o.PaymentMethod,
		PaymentTime:     o.PaymentTime,
		CancelReason:    o.CancelReason,
		CancelTime:      o.CancelTime,
		CanPay:          o.Payable(),
		CanCancel:       o.Cancellable(),
		CanReview:       o.Reviewable(),
	}
}

func parseStayDate(w http.ResponseWriter, field, v string) (time.Time, bool) {
	t, err := time.Parse(stayDateLayout, v)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", field+" must be a date like 2026-09-10")
		return time.Time{}, false
	}
	return t, true
}

// ---- order handlers ----

func (h *Handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderReq
	if !decodeBody(w, r, &body) {
		return
	}
	checkIn, ok := parseStayDate(w, "check_in", body.CheckIn)
	if !ok {
		return
	}
	checkOut, ok := parseStayDate(w, "check_out", body.CheckOut)
	if !ok {
		return
	}

	order, quote, err := h.Bookings.CreateOrder(r.Context(), identityFrom(r.Context()), app.CreateOrderInput{
		HotelID:         body.HotelID,
		RoomName:        body.RoomName,
		RoomPrice:       body.RoomPrice,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		RoomsCount:      body.RoomsCount,
		Adults:          body.Adults,
		Children:        body.Children,
		ContactName:     body.ContactName,
		ContactPhone:    body.ContactPhone,
		SpecialRequests: body.SpecialRequests,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	observability.OrdersCreated.Inc()
	writeJSON(w, http.StatusCreated, struct {
		Order orderResp     `json:"order"`
		Quote pricing.Quote `json:"quote"`
	}{toOrderResp(order), quote})
}

func (h *Handlers) payOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Method string `json:"method"`
	}
	if !decodeOptionalBody(w, r, &body) {
		return
	}
	order, points, err := h.Bookings.PayOrder(r.Context(), identityFrom(r.Context()), id, body.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.ObserveOrderTransition(string(order.Status))
	writeJSON(w, http.StatusOK, struct {
		Order         orderResp `json:"order"`
		PointsAwarded int64     `json:"points_awarded"`
	}{toOrderResp(order), points})
}

func (h *Handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeOptionalBody(w, r, &body) {
		return
	}
	order, err := h.Bookings.CancelOrder(r.Context(), identityFrom(r.Context()), id, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.ObserveOrderTransition(string(order.Status))
	writeJSON(w, http.StatusOK, toOrderResp(order))
}

func (h *Handlers) rebookOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	}
	if !decodeOptionalBody(w, r, &body) {
		return
	}
	var checkIn, checkOut *time.Time
	if body.CheckIn != "" {
		t, ok := parseStayDate(w, "check_in", body.CheckIn)
		if !ok {
			return
		}
		checkIn = &t
	}
	if body.CheckOut != "" {
		t, ok := parseStayDate(w, "check_out", body.CheckOut)
		if !ok {
			return
		}
		checkOut = &t
	}
	order, err := h.Bookings.RebookOrder(r.Context(), identityFrom(r.Context()), id, checkIn, checkOut)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.OrdersCreated.Inc()
	writeJSON(w, http.StatusCreated, toOrderResp(order))
}

func (h *Handlers) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		To string `json:"to"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	order, err := h.Bookings.AdvanceOrder(r.Context(), identityFrom(r.Context()), id, domain.OrderStatus(body.To))
	if err != nil {
		writeError(w, err)
		return
	}
	observability.ObserveOrderTransition(string(order.Status))
	writeJSON(w, http.StatusOK, toOrderResp(order))
}

func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.Bookings.GetOrder(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(order))
}

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	q := domain.OrdersQuery{Group: domain.OrderGroup(r.URL.Query().Get("group"))}
	if q.Group == "" {
		q.Group = domain.GroupAll
	}
	q.Page, q.Limit = pageQuery(r)

	orders, total, err := h.Bookings.ListOrders(r.Context(), identityFrom(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	out := struct {
		Orders []orderResp `json:"orders"`
		Total  int64       `json:"total"`
	}{Orders: make([]orderResp, 0, len(orders)), Total: total}
	for _, o := range orders {
		out.Orders = append(out.Orders, toOrderResp(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) orderStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Bookings.OrderStatistics(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
