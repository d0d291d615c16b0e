package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayhub/internal/domain"
)

// QueryService serves the public, cacheable read side: hotel views for the
// mobile app. Unbookable hotels are reported as not found so pending or
// offline listings never leak.
type QueryService struct {
	hotels   domain.HotelStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(hotels domain.HotelStore, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{hotels: hotels, cache: cache, cacheTTL: ttl}
}

func hotelViewKey(id int64) string { return fmt.Sprintf("hotel:%d", id) }

func (s *QueryService) GetHotelView(ctx context.Context, id int64) (domain.HotelView, error) {
	key := hotelViewKey(id)
	var hv domain.HotelView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &hv); ok {
			return hv, nil
		}
	}

	h, err := s.hotels.Get(ctx, id)
	if err != nil {
		return domain.HotelView{}, err
	}
	if !h.Bookable() {
		return domain.HotelView{}, domain.ErrNotFound
	}

	hv = toHotelView(h)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, hv, int(s.cacheTTL.Seconds()))
	}
	return hv, nil
}

// IsNotFound folds the two "invisible hotel" cases the read side produces.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, ErrHotelNotAvailable)
}

func toHotelView(h domain.Hotel) domain.HotelView {
	return domain.HotelView{
		ID:           h.ID,
		Name:         h.Name,
		NameEN:       h.NameEN,
		Address:      h.Address,
		Star:         h.Star,
		Price:        h.Price,
		Discount:     h.Discount,
		DiscountDesc: h.DiscountDesc,
		Images:       h.Images,
		Tags:         h.Tags,
		Facilities:   h.Facilities,
	}
}
