package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
)

// HotelService drives the listing lifecycle: merchant submissions, admin
// review, publishing and removal. Every transition is persisted with a
// conditional save so two concurrent transitions cannot both succeed from
// the same precondition.
type HotelService struct {
	hotels domain.HotelStore
	cache  domain.Cache
}

func NewHotelService(hotels domain.HotelStore, cache domain.Cache) *HotelService {
	return &HotelService{hotels: hotels, cache: cache}
}

// NewHotel is the merchant's creation payload.
type NewHotel struct {
	Name         string
	NameEN       *string
	Address      string
	Star         int
	Price        decimal.Decimal
	Discount     *decimal.Decimal
	DiscountDesc *string
	Images       []string
	Tags         []string
	Facilities   []string
}

func (s *HotelService) CreateHotel(ctx context.Context, actor domain.Identity, in NewHotel) (domain.Hotel, error) {
	if actor.Role != domain.RoleMerchant {
		return domain.Hotel{}, domain.Forbidden("only merchants can create hotels")
	}
	if err := validateListing(in.Name, in.Address, in.Star, in.Price, in.Discount, in.Images); err != nil {
		return domain.Hotel{}, err
	}

	h := domain.Hotel{
		MerchantID:   actor.UserID,
		Name:         in.Name,
		NameEN:       in.NameEN,
		Address:      in.Address,
		Star:         in.Star,
		Price:        in.Price,
		Discount:     in.Discount,
		DiscountDesc: in.DiscountDesc,
		Images:       in.Images,
		Tags:         in.Tags,
		Facilities:   in.Facilities,
	}
	h.Submit()

	if err := s.hotels.Create(ctx, &h); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

// EditHotel applies an allow-listed update. A merchant edit of an already
// reviewed listing resets it to pending/unpublished and clears any reject
// reason; admin edits never touch status.
func (s *HotelService) EditHotel(ctx context.Context, actor domain.Identity, id int64, u domain.HotelUpdate) (domain.Hotel, bool, error) {
	h, err := s.loadOwned(ctx, actor, id, "edit")
	if err != nil {
		return domain.Hotel{}, false, err
	}
	if err := validateUpdate(u); err != nil {
		return domain.Hotel{}, false, err
	}

	expectReview, expectPublish := h.ReviewStatus, h.PublishStatus
	resubmitted := false
	if actor.Role == domain.RoleMerchant {
		resubmitted = h.ApplyUpdate(u)
	} else {
		// Admin edits fix content in place without forcing re-review.
		status, publish, reason := h.ReviewStatus, h.PublishStatus, h.RejectReason
		h.ApplyUpdate(u)
		h.ReviewStatus, h.PublishStatus, h.RejectReason = status, publish, reason
	}

	if err := s.save(ctx, h, expectReview, expectPublish, "edit"); err != nil {
		return domain.Hotel{}, false, err
	}
	return h, resubmitted, nil
}

// ReviewAction is an admin verdict on a pending listing.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

func (s *HotelService) ReviewHotel(ctx context.Context, actor domain.Identity, id int64, action ReviewAction, reason string) (domain.Hotel, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.Hotel{}, domain.Forbidden("only admins review hotels")
	}
	h, err := s.hotels.Get(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	expectReview, expectPublish := h.ReviewStatus, h.PublishStatus

	switch action {
	case ReviewActionApprove:
		err = h.Approve()
	case ReviewActionReject:
		err = h.Reject(reason)
	default:
		return domain.Hotel{}, domain.Invalid("action", fmt.Sprintf("unknown review action %q", action))
	}
	if err != nil {
		return domain.Hotel{}, err
	}

	if err := s.save(ctx, h, expectReview, expectPublish, string(action)); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

// PublishAction toggles listing visibility.
type PublishAction string

const (
	PublishActionPublish   PublishAction = "publish"
	PublishActionUnpublish PublishAction = "unpublish"
)

func (s *HotelService) TogglePublish(ctx context.Context, actor domain.Identity, id int64, action PublishAction) (domain.Hotel, error) {
	h, err := s.loadOwned(ctx, actor, id, "publish")
	if err != nil {
		return domain.Hotel{}, err
	}
	expectReview, expectPublish := h.ReviewStatus, h.PublishStatus

	switch action {
	case PublishActionPublish:
		err = h.Publish()
	case PublishActionUnpublish:
		err = h.Unpublish()
	default:
		return domain.Hotel{}, domain.Invalid("action", fmt.Sprintf("unknown publish action %q", action))
	}
	if err != nil {
		return domain.Hotel{}, err
	}

	if err := s.save(ctx, h, expectReview, expectPublish, string(action)); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

// DeleteHotel removes a listing. Admins delete the record; merchants only
// force the listing offline, the record stays.
func (s *HotelService) DeleteHotel(ctx context.Context, actor domain.Identity, id int64) error {
	h, err := s.loadOwned(ctx, actor, id, "delete")
	if err != nil {
		return err
	}

	if actor.Role == domain.RoleAdmin {
		if err := s.hotels.Delete(ctx, id); err != nil {
			return err
		}
		s.invalidateView(ctx, id)
		return nil
	}

	// Merchant soft delete: forced unpublish, idempotent.
	if h.PublishStatus != domain.Published {
		return nil
	}
	expectReview, expectPublish := h.ReviewStatus, h.PublishStatus
	if err := h.Unpublish(); err != nil {
		return err
	}
	return s.save(ctx, h, expectReview, expectPublish, "delete")
}

func (s *HotelService) GetHotel(ctx context.Context, actor domain.Identity, id int64) (domain.Hotel, error) {
	return s.loadOwned(ctx, actor, id, "view")
}

func (s *HotelService) ListMerchantHotels(ctx context.Context, actor domain.Identity, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	if actor.Role != domain.RoleMerchant {
		return nil, 0, domain.Forbidden("merchant listing only")
	}
	return s.hotels.ListByMerchant(ctx, actor.UserID, q)
}

func (s *HotelService) ListPendingReview(ctx context.Context, actor domain.Identity, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, 0, domain.Forbidden("admin listing only")
	}
	return s.hotels.ListPendingReview(ctx, q)
}

// ReviewStats are the admin dashboard counters.
type ReviewStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

func (s *HotelService) HotelStatistics(ctx context.Context, actor domain.Identity) (ReviewStats, error) {
	if actor.Role != domain.RoleAdmin {
		return ReviewStats{}, domain.Forbidden("admin statistics only")
	}
	counts, err := s.hotels.CountByReview(ctx)
	if err != nil {
		return ReviewStats{}, err
	}
	return ReviewStats{
		Pending:  counts[domain.ReviewPending],
		Approved: counts[domain.ReviewApproved],
		Rejected: counts[domain.ReviewRejected],
	}, nil
}

// loadOwned fetches the hotel and enforces ownership: merchants may only
// touch their own listings, admins may touch any.
func (s *HotelService) loadOwned(ctx context.Context, actor domain.Identity, id int64, action string) (domain.Hotel, error) {
	h, err := s.hotels.Get(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return h, nil
	case domain.RoleMerchant:
		if h.MerchantID != actor.UserID {
			return domain.Hotel{}, domain.Forbidden(fmt.Sprintf("not allowed to %s this hotel", action))
		}
		return h, nil
	default:
		return domain.Hotel{}, domain.Forbidden(fmt.Sprintf("not allowed to %s hotels", action))
	}
}

// save writes the transition conditionally and evicts the cached public
// view. Zero rows matched means another transition won the race.
func (s *HotelService) save(ctx context.Context, h domain.Hotel, expectReview domain.ReviewStatus, expectPublish domain.PublishStatus, action string) error {
	applied, err := s.hotels.Save(ctx, h, expectReview, expectPublish)
	if err != nil {
		return err
	}
	if !applied {
		return &domain.StateConflictError{
			Entity: "hotel",
			From:   string(expectReview) + "/" + string(expectPublish),
			Action: action,
		}
	}
	s.invalidateView(ctx, h.ID)
	return nil
}

func (s *HotelService) invalidateView(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, hotelViewKey(id))
}
