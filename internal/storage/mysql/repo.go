package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
)

const dateLayout = "2006-01-02"

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return p.String()
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func scanDec(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func marshalList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// ---- HotelRepo ----

type HotelRepo struct{ db *sql.DB }

func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{db: db} }

func (r *HotelRepo) Create(ctx context.Context, h *domain.Hotel) error {
	res, err := r.db.ExecContext(ctx, insertHotelSQL,
		h.MerchantID,
		h.Name,
		valStr(h.NameEN),
		h.Address,
		h.Star,
		h.Price.String(),
		valDec(h.Discount),
		valStr(h.DiscountDesc),
		marshalList(h.Images),
		marshalList(h.Tags),
		marshalList(h.Facilities),
		string(h.ReviewStatus),
		string(h.PublishStatus),
		valStr(h.RejectReason),
	)
	if err != nil {
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

func (r *HotelRepo) Get(ctx context.Context, id int64) (domain.Hotel, error) {
	return scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
}

func (r *HotelRepo) Save(ctx context.Context, h domain.Hotel, expectReview domain.ReviewStatus, expectPublish domain.PublishStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, saveHotelSQL,
		h.Name,
		valStr(h.NameEN),
		h.Address,
		h.Star,
		h.Price.String(),
		valDec(h.Discount),
		valStr(h.DiscountDesc),
		marshalList(h.Images),
		marshalList(h.Tags),
		marshalList(h.Facilities),
		string(h.ReviewStatus),
		string(h.PublishStatus),
		valStr(h.RejectReason),
		h.ID,
		string(expectReview),
		string(expectPublish),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *HotelRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteHotelSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HotelRepo) ListByMerchant(ctx context.Context, merchantID int64, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	where := []string{"merchant_id = ?"}
	args := []any{merchantID}
	if q.ReviewStatus != nil {
		where = append(where, "review_status = ?")
		args = append(args, string(*q.ReviewStatus))
	}
	if q.PublishStatus != nil {
		where = append(where, "publish_status = ?")
		args = append(args, string(*q.PublishStatus))
	}
	return r.list(ctx, strings.Join(where, " AND "), args, q)
}

func (r *HotelRepo) ListPendingReview(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	return r.list(ctx, "review_status = ?", []any{string(domain.ReviewPending)}, q)
}

func (r *HotelRepo) list(ctx context.Context, where string, args []any, q domain.HotelsQuery) ([]domain.Hotel, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hotels WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(q.Page, q.Limit)
	query := `
SELECT id, merchant_id, name, name_en, address, star, price, discount,
       discount_description, images, tags, facilities,
       review_status, publish_status, reject_reason, created_at, updated_at
FROM hotels
WHERE ` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

func (r *HotelRepo) CountByReview(ctx context.Context) (map[domain.ReviewStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, countHotelsByReviewSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.ReviewStatus]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.ReviewStatus(status)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanHotel(row rowScanner) (domain.Hotel, error) {
	var h domain.Hotel
	var (
		nameEN, discountDesc, rejectReason sql.NullString
		price, discount                    sql.NullString
		imagesJSON, tagsJSON, facsJSON     []byte
		review, publish                    string
	)
	if err := row.Scan(
		&h.ID,
		&h.MerchantID,
		&h.Name,
		&nameEN,
		&h.Address,
		&h.Star,
		&price,
		&discount,
		&discountDesc,
		&imagesJSON,
		&tagsJSON,
		&facsJSON,
		&review,
		&publish,
		&rejectReason,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hotel{}, domain.ErrNotFound
		}
		return domain.Hotel{}, err
	}

	h.NameEN = scanStr(nameEN)
	h.DiscountDesc = scanStr(discountDesc)
	h.RejectReason = scanStr(rejectReason)
	h.ReviewStatus = domain.ReviewStatus(review)
	h.PublishStatus = domain.PublishStatus(publish)

	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return domain.Hotel{}, fmt.Errorf("hotel %d: bad price: %w", h.ID, err)
		}
		h.Price = d
	}
	var err error
	if h.Discount, err = scanDec(discount); err != nil {
		return domain.Hotel{}, fmt.Errorf("hotel %d: bad discount: %w", h.ID, err)
	}
	_ = json.Unmarshal(imagesJSON, &h.Images)
	_ = json.Unmarshal(tagsJSON, &h.Tags)
	_ = json.Unmarshal(facsJSON, &h.Facilities)
	return h, nil
}

// ---- OrderRepo ----

type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	room, err := json.Marshal(o.Room)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, insertOrderSQL,
		o.OrderNo,
		o.UserID,
		o.HotelID,
		string(room),
		o.CheckIn.Format(dateLayout),
		o.CheckOut.Format(dateLayout),
		o.Nights,
		o.RoomsCount,
		o.Adults,
		o.Children,
		o.ContactName,
		o.ContactPhone,
		valStr(o.SpecialRequests),
		o.RoomPrice.String(),
		o.TotalPrice.String(),
		o.DiscountAmount.String(),
		o.ActualPayment.String(),
		string(o.Status),
	)
	if err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateOrderNo
		}
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, getOrderSQL, id))
}

func (r *OrderRepo) SetStatus(ctx context.Context, o domain.Order, expect domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, setOrderStatusSQL,
		string(o.Status),
		valStr(o.PaymentMethod),
		valTime(o.PaymentTime),
		valStr(o.CancelReason),
		valTime(o.CancelTime),
		o.ID,
		string(expect),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID int64, q domain.OrdersQuery) ([]domain.Order, int64, error) {
	where := "user_id = ?"
	args := []any{userID}
	if statuses := domain.GroupStatuses(q.Group); statuses != nil {
		ph := make([]string, len(statuses))
		for i, st := range statuses {
			ph[i] = "?"
			args = append(args, string(st))
		}
		where += " AND order_status IN (" + strings.Join(ph, ",") + ")"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(q.Page, q.Limit)
	query := listOrdersByUserPrefix
	if statuses := domain.GroupStatuses(q.Group); statuses != nil {
		ph := make([]string, len(statuses))
		for i := range statuses {
			ph[i] = "?"
		}
		query += " AND order_status IN (" + strings.Join(ph, ",") + ")"
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *OrderRepo) CountByStatus(ctx context.Context, userID int64) (map[domain.OrderStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, countOrdersByStatusSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.OrderStatus]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var (
		roomJSON               []byte
		specialReq, payMethod  sql.NullString
		cancelReason           sql.NullString
		roomPrice, totalPrice  string
		discountAmt, actualPay string
		status                 string
		payTime, cancelTime    sql.NullTime
	)
	if err := row.Scan(
		&o.ID,
		&o.OrderNo,
		&o.UserID,
		&o.HotelID,
		&roomJSON,
		&o.CheckIn,
		&o.CheckOut,
		&o.Nights,
		&o.RoomsCount,
		&o.Adults,
		&o.Children,
		&o.ContactName,
		&o.ContactPhone,
		&specialReq,
		&roomPrice,
		&totalPrice,
		&discountAmt,
		&actualPay,
		&status,
		&payMethod,
		&payTime,
		&cancelReason,
		&cancelTime,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, err
	}

	if err := json.Unmarshal(roomJSON, &o.Room); err != nil {
		return domain.Order{}, fmt.Errorf("order %d: bad room snapshot: %w", o.ID, err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.RoomPrice, roomPrice},
		{&o.TotalPrice, totalPrice},
		{&o.DiscountAmount, discountAmt},
		{&o.ActualPayment, actualPay},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d: bad amount: %w", o.ID, err)
		}
		*f.dst = d
	}
	o.Status = domain.OrderStatus(status)
	o.SpecialRequests = scanStr(specialReq)
	o.PaymentMethod = scanStr(payMethod)
	o.PaymentTime = scanTime(payTime)
	o.CancelReason = scanStr(cancelReason)
	o.CancelTime = scanTime(cancelTime)
	return o, nil
}

// ---- ProfileRepo ----

type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Get(ctx context.Context, userID int64) (domain.MemberProfile, error) {
	var p domain.MemberProfile
	var level string
	err := r.db.QueryRowContext(ctx, getProfileSQL, userID).Scan(&p.UserID, &level, &p.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MemberProfile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MemberProfile{}, err
	}
	p.Level = domain.MemberLevel(level)
	return p, nil
}

func (r *ProfileRepo) AddPoints(ctx context.Context, userID int64, points int64) error {
	_, err := r.db.ExecContext(ctx, addPointsSQL, userID, points)
	return err
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
