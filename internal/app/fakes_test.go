package app_test

import (
	"context"
	"sort"

	"stayhub/internal/domain"
)

// ---- fakes ----

type fakeHotelStore struct {
	hotels     map[int64]domain.Hotel
	nextID     int64
	beforeSave func() // lets a test slip a concurrent transition in ahead of Save
}

func newFakeHotelStore() *fakeHotelStore {
	return &fakeHotelStore{hotels: map[int64]domain.Hotel{}}
}

func (f *fakeHotelStore) Create(ctx context.Context, h *domain.Hotel) error {
	f.nextID++
	h.ID = f.nextID
	f.hotels[h.ID] = *h
	return nil
}

func (f *fakeHotelStore) Get(ctx context.Context, id int64) (domain.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

func (f *fakeHotelStore) Save(ctx context.Context, h domain.Hotel, expectReview domain.ReviewStatus, expectPublish domain.PublishStatus) (bool, error) {
	if f.beforeSave != nil {
		f.beforeSave()
	}
	cur, ok := f.hotels[h.ID]
	if !ok {
		return false, nil
	}
	if cur.ReviewStatus != expectReview || cur.PublishStatus != expectPublish {
		return false, nil
	}
	f.hotels[h.ID] = h
	return true, nil
}

func (f *fakeHotelStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.hotels[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.hotels, id)
	return nil
}

func (f *fakeHotelStore) ListByMerchant(ctx context.Context, merchantID int64, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	var out []domain.Hotel
	for _, h := range f.hotels {
		if h.MerchantID == merchantID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeHotelStore) ListPendingReview(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	var out []domain.Hotel
	for _, h := range f.hotels {
		if h.ReviewStatus == domain.ReviewPending {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeHotelStore) CountByReview(ctx context.Context) (map[domain.ReviewStatus]int64, error) {
	counts := map[domain.ReviewStatus]int64{}
	for _, h := range f.hotels {
		counts[h.ReviewStatus]++
	}
	return counts, nil
}

type fakeOrderStore struct {
	orders  map[int64]domain.Order
	nextID  int64
	dupHits int // remaining Creates that fail with a duplicate order_no
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[int64]domain.Order{}}
}

func (f *fakeOrderStore) Create(ctx context.Context, o *domain.Order) error {
	if f.dupHits > 0 {
		f.dupHits--
		return domain.ErrDuplicateOrderNo
	}
	f.nextID++
	o.ID = f.nextID
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeOrderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) SetStatus(ctx context.Context, o domain.Order, expect domain.OrderStatus) (bool, error) {
	cur, ok := f.orders[o.ID]
	if !ok || cur.Status != expect {
		return false, nil
	}
	f.orders[o.ID] = o
	return true, nil
}

func (f *fakeOrderStore) ListByUser(ctx context.Context, userID int64, q domain.OrdersQuery) ([]domain.Order, int64, error) {
	statuses := domain.GroupStatuses(q.Group)
	match := func(st domain.OrderStatus) bool {
		if statuses == nil {
			return true
		}
		for _, s := range statuses {
			if s == st {
				return true
			}
		}
		return false
	}
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID && match(o.Status) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeOrderStore) CountByStatus(ctx context.Context, userID int64) (map[domain.OrderStatus]int64, error) {
	counts := map[domain.OrderStatus]int64{}
	for _, o := range f.orders {
		if o.UserID == userID {
			counts[o.Status]++
		}
	}
	return counts, nil
}

type fakeProfileStore struct {
	profiles map[int64]domain.MemberProfile
	addErr   error // when set, AddPoints fails with it
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[int64]domain.MemberProfile{}}
}

func (f *fakeProfileStore) Get(ctx context.Context, userID int64) (domain.MemberProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.MemberProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) AddPoints(ctx context.Context, userID int64, points int64) error {
	if f.addErr != nil {
		return f.addErr
	}
	p := f.profiles[userID]
	p.UserID = userID
	if p.Level == "" {
		p.Level = domain.LevelOrdinary
	}
	p.Points += points
	f.profiles[userID] = p
	return nil
}

type fakeSink struct {
	refunds []domain.RefundRequest
}

func (f *fakeSink) Refund(ctx context.Context, req domain.RefundRequest) {
	f.refunds = append(f.refunds, req)
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.HotelView); ok {
		*d = v.(domain.HotelView)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}
