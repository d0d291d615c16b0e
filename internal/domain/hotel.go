package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type PublishStatus string

const (
	Unpublished PublishStatus = "unpublished"
	Published   PublishStatus = "published"
)

// Hotel is a merchant listing. The pair (ReviewStatus, PublishStatus) is
// constrained to pending/unpublished, approved/unpublished,
// approved/published and rejected/unpublished; Published requires Approved.
type Hotel struct {
	ID            int64
	MerchantID    int64
	Name          string
	NameEN        *string
	Address       string
	Star          int
	Price         decimal.Decimal
	Discount      *decimal.Decimal // promotional multiplier, valid in (0,1)
	DiscountDesc  *string
	Images        []string
	Tags          []string
	Facilities    []string
	ReviewStatus  ReviewStatus
	PublishStatus PublishStatus
	RejectReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Bookable reports whether end users may book this hotel.
func (h *Hotel) Bookable() bool {
	return h.ReviewStatus == ReviewApproved && h.PublishStatus == Published
}

// HotelUpdate is the allow-listed set of fields a merchant may change.
// Status fields are deliberately absent; they only move through the
// lifecycle actions below.
type HotelUpdate struct {
	Name         *string
	NameEN       *string
	Address      *string
	Star         *int
	Price        *decimal.Decimal
	Discount     *decimal.Decimal
	DiscountDesc *string
	Images       []string
	Tags         []string
	Facilities   []string
}

func hotelConflict(h *Hotel, action string) error {
	return &StateConflictError{
		Entity: "hotel",
		From:   string(h.ReviewStatus) + "/" + string(h.PublishStatus),
		Action: action,
	}
}

// Submit resets a listing to the initial review state. Applied on create
// and on any merchant edit of an approved or rejected hotel: the edit
// forces re-review and takes the listing offline.
func (h *Hotel) Submit() {
	h.ReviewStatus = ReviewPending
	h.PublishStatus = Unpublished
	h.RejectReason = nil
}

// Approve moves pending -> approved. PublishStatus is untouched; the
// listing stays offline until published separately.
func (h *Hotel) Approve() error {
	if h.ReviewStatus != ReviewPending {
		return hotelConflict(h, "approve")
	}
	h.ReviewStatus = ReviewApproved
	return nil
}

// Reject moves pending -> rejected and records the reason. An empty reason
// is a policy violation.
func (h *Hotel) Reject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return Policy("a reject reason is required")
	}
	if h.ReviewStatus != ReviewPending {
		return hotelConflict(h, "reject")
	}
	h.ReviewStatus = ReviewRejected
	h.RejectReason = &reason
	return nil
}

// Publish puts an approved, currently offline listing online.
func (h *Hotel) Publish() error {
	if h.ReviewStatus != ReviewApproved {
		return Policy("only approved hotels can be published")
	}
	if h.PublishStatus == Published {
		return hotelConflict(h, "publish")
	}
	h.PublishStatus = Published
	return nil
}

// Unpublish takes a published listing offline.
func (h *Hotel) Unpublish() error {
	if h.PublishStatus != Published {
		return hotelConflict(h, "unpublish")
	}
	h.PublishStatus = Unpublished
	return nil
}

// ApplyUpdate copies the allow-listed fields onto the hotel and, when the
// listing had already been reviewed, resets it for re-review.
func (h *Hotel) ApplyUpdate(u HotelUpdate) (resubmitted bool) {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.NameEN != nil {
		h.NameEN = u.NameEN
	}
	if u.Address != nil {
		h.Address = *u.Address
	}
	if u.Star != nil {
		h.Star = *u.Star
	}
	if u.Price != nil {
		h.Price = *u.Price
	}
	if u.Discount != nil {
		h.Discount = u.Discount
	}
	if u.DiscountDesc != nil {
		h.DiscountDesc = u.DiscountDesc
	}
	if u.Images != nil {
		h.Images = u.Images
	}
	if u.Tags != nil {
		h.Tags = u.Tags
	}
	if u.Facilities != nil {
		h.Facilities = u.Facilities
	}
	if h.ReviewStatus == ReviewApproved || h.ReviewStatus == ReviewRejected {
		h.Submit()
		return true
	}
	return false
}
