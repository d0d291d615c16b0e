// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stayhub/internal/app"
	"stayhub/internal/domain"
	"stayhub/internal/pricing"
)

type Handlers struct {
	Auth     domain.AuthProvider
	Hotels   *app.HotelService
	Bookings *app.BookingService
	Q        *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// public read model
	s.mux.Get("/v1/hotels/{id}", h.getHotelView)
	s.mux.Post("/v1/price/quote", h.priceQuote)

	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Auth))

		r.Post("/v1/hotels", h.createHotel)
		r.Get("/v1/hotels", h.listMerchantHotels)
		r.Get("/v1/hotels/pending", h.listPendingReview)
		r.Get("/v1/hotels/statistics", h.hotelStatistics)
		r.Put("/v1/hotels/{id}", h.editHotel)
		r.Delete("/v1/hotels/{id}", h.deleteHotel)
		r.Post("/v1/hotels/{id}/review", h.reviewHotel)
		r.Post("/v1/hotels/{id}/publish", h.togglePublish)

		r.Post("/v1/orders", h.createOrder)
		r.Get("/v1/orders", h.listOrders)
		r.Get("/v1/orders/statistics", h.orderStatistics)
		r.Get("/v1/orders/{id}", h.getOrder)
		r.Post("/v1/orders/{id}/pay", h.payOrder)
		r.Post("/v1/orders/{id}/cancel", h.cancelOrder)
		r.Post("/v1/orders/{id}/rebook", h.rebookOrder)
		r.Post("/v1/orders/{id}/advance", h.advanceOrder)
	})
}

// ---- response plumbing ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var ae *domain.AuthorizationError
	var sc *domain.StateConflictError
	var pv *domain.PolicyViolationError

	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", ve.Error())
	case errors.As(err, &ae):
		writeProblem(w, http.StatusForbidden, "Forbidden", ae.Error())
	case app.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &sc):
		writeProblem(w, http.StatusConflict, "Conflict", sc.Error())
	case errors.As(err, &pv):
		writeProblem(w, http.StatusUnprocessableEntity, "Policy Violation", pv.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints where every field has a
// default and an empty body is fine.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func pageQuery(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- hotel payloads ----

type hotelReq struct {
	Name         string           `json:"name"`
	NameEN       *string          `json:"name_en"`
	Address      string           `json:"address"`
	Star         int              `json:"star"`
	Price        decimal.Decimal  `json:"price"`
	Discount     *decimal.Decimal `json:"discount"`
	DiscountDesc *string          `json:"discount_description"`
	Images       []string         `json:"images"`
	Tags         []string         `json:"tags"`
	Facilities   []string         `json:"facilities"`
}

type hotelUpdateReq struct {
	Name         *string          `json:"name"`
	NameEN       *string          `json:"name_en"`
	Address      *string          `json:"address"`
	Star         *int             `json:"star"`
	Price        *decimal.Decimal `json:"price"`
	Discount     *decimal.Decimal `json:"discount"`
	DiscountDesc *string          `json:"discount_description"`
	Images       []string         `json:"images"`
	Tags         []string         `json:"tags"`
	Facilities   []string         `json:"facilities"`
}

type hotelResp struct {
	ID            int64            `json:"id"`
	MerchantID    int64            `json:"merchant_id"`
	Name          string           `json:"name"`
	NameEN        *string          `json:"name_en,omitempty"`
	Address       string           `json:"address"`
	Star          int              `json:"star"`
	Price         decimal.Decimal  `json:"price"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	DiscountDesc  *string          `json:"discount_description,omitempty"`
	Images        []string         `json:"images"`
	Tags          []string         `json:"tags"`
	Facilities    []string         `json:"facilities"`
	ReviewStatus  string           `json:"review_status"`
	PublishStatus string           `json:"publish_status"`
	RejectReason  *string          `json:"reject_reason,omitempty"`
}

func toHotelResp(h domain.Hotel) hotelResp {
	return hotelResp{
		ID:            h.ID,
		MerchantID:    h.MerchantID,
		Name:          h.Name,
		NameEN:        h.NameEN,
		Address:       h.Address,
		Star:          h.Star,
		Price:         h.Price,
		Discount:      h.Discount,
		DiscountDesc:  h.DiscountDesc,
		Images:        h.Images,
		Tags:          h.Tags,
		Facilities:    h.Facilities,
		ReviewStatus:  string(h.ReviewStatus),
		PublishStatus: string(h.PublishStatus),
		RejectReason:  h.RejectReason,
	}
}

type hotelListResp struct {
	Hotels []hotelResp `json:"hotels"`
	Total  int64       `json:"total"`
}

func toHotelListResp(hs []domain.Hotel, total int64) hotelListResp {
	out := hotelListResp{Hotels: make([]hotelResp, 0, len(hs)), Total: total}
	for _, h := range hs {
		out.Hotels = append(out.Hotels, toHotelResp(h))
	}
	return out
}

// ---- hotel handlers ----

func (h *Handlers) getHotelView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.Q.GetHotelView(r.Context(), id)
	if err != nil {
		if app.IsNotFound(err) {
			writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
			return
		}
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(view)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write hotel view body")
	}
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var body hotelReq
	if !decodeBody(w, r, &body) {
		return
	}
	in := app.NewHotel{
		Name:         body.Name,
		NameEN:       body.NameEN,
		Address:      body.Address,
		Star:         body.Star,
		Price:        body.Price,
		Discount:     body.Discount,
		DiscountDesc: body.DiscountDesc,
		Images:       body.Images,
		Tags:         body.Tags,
		Facilities:   body.Facilities,
	}
	created, err := h.Hotels.CreateHotel(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHotelResp(created))
}

func (h *Handlers) editHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body hotelUpdateReq
	if !decodeBody(w, r, &body) {
		return
	}
	u := domain.HotelUpdate{
		Name:         body.Name,
		NameEN:       body.NameEN,
		Address:      body.Address,
		Star:         body.Star,
		Price:        body.Price,
		Discount:     body.Discount,
		DiscountDesc: body.DiscountDesc,
		Images:       body.Images,
		Tags:         body.Tags,
		Facilities:   body.Facilities,
	}
	updated, resubmitted, err := h.Hotels.EditHotel(r.Context(), identityFrom(r.Context()), id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		hotelResp
		Resubmitted bool `json:"resubmitted"`
	}{toHotelResp(updated), resubmitted})
}

func (h *Handlers) reviewHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	reviewed, err := h.Hotels.ReviewHotel(r.Context(), identityFrom(r.Context()), id, app.ReviewAction(body.Action), body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHotelResp(reviewed))
}

func (h *Handlers) togglePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	toggled, err := h.Hotels.TogglePublish(r.Context(), identityFrom(r.Context()), id, app.PublishAction(body.Action))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHotelResp(toggled))
}

func (h *Handlers) deleteHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Hotels.DeleteHotel(r.Context(), identityFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listMerchantHotels(w http.ResponseWriter, r *http.Request) {
	q := domain.HotelsQuery{}
	q.Page, q.Limit = pageQuery(r)
	if v := r.URL.Query().Get("review_status"); v != "" {
		rs := domain.ReviewStatus(v)
		q.ReviewStatus = &rs
	}
	if v := r.URL.Query().Get("publish_status"); v != "" {
		ps := domain.PublishStatus(v)
		q.PublishStatus = &ps
	}
	hs, total, err := h.Hotels.ListMerchantHotels(r.Context(), identityFrom(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHotelListResp(hs, total))
}

func (h *Handlers) listPendingReview(w http.ResponseWriter, r *http.Request) {
	q := domain.HotelsQuery{}
	q.Page, q.Limit = pageQuery(r)
	hs, total, err := h.Hotels.ListPendingReview(r.Context(), identityFrom(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHotelListResp(hs, total))
}

func (h *Handlers) hotelStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Hotels.HotelStatistics(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ---- price quote ----

type quoteReq struct {
	BasePrice    decimal.Decimal  `json:"base_price"`
	Nights       int              `json:"nights"`
	Rooms        int              `json:"rooms"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	MemberLevel  string           `json:"member_level,omitempty"`
	CouponAmount decimal.Decimal  `json:"coupon_amount"`
	Points       int64            `json:"points"`
}

type quoteResp struct {
	pricing.Quote
	Points *pricing.PointsDiscount `json:"points,omitempty"`
}

func (h *Handlers) priceQuote(w http.ResponseWriter, r *http.Request) {
	var in quoteReq
	if !decodeBody(w, r, &in) {
		return
	}
	if in.BasePrice.Sign() <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "base_price must be positive")
		return
	}

	params := pricing.Params{
		Nights:       in.Nights,
		Rooms:        in.Rooms,
		Discount:     in.Discount,
		CouponAmount: in.CouponAmount,
	}
	if in.MemberLevel != "" {
		md := pricing.MemberDiscount(domain.MemberLevel(in.MemberLevel))
		params.MemberDiscount = &md
	}
	quote := pricing.CalculateTotal(in.BasePrice, params)

	resp := quoteResp{Quote: quote}
	if in.Points > 0 {
		pd := pricing.CalculatePointsDiscount(in.Points, quote.FinalTotal)
		resp.Points = &pd
	}
	writeJSON(w, http.StatusOK, resp)
}
