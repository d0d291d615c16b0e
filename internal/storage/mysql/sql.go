package mysql

const insertHotelSQL = `
INSERT INTO hotels
  (merchant_id, name, name_en, address, star, price, discount,
   discount_description, images, tags, facilities,
   review_status, publish_status, reject_reason)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// saveHotelSQL is the conditional full-row write: the WHERE clause pins the
// status pair so a transition only lands if nothing moved in between.
// Requires clientFoundRows=true in the DSN so an identical row still counts
// as matched.
const saveHotelSQL = `
UPDATE hotels SET
  name                 = ?,
  name_en              = ?,
  address              = ?,
  star                 = ?,
  price                = ?,
  discount             = ?,
  discount_description = ?,
  images               = ?,
  tags                 = ?,
  facilities           = ?,
  review_status        = ?,
  publish_status       = ?,
  reject_reason        = ?,
  updated_at           = CURRENT_TIMESTAMP
WHERE id = ? AND review_status = ? AND publish_status = ?
`

const getHotelSQL = `
SELECT id, merchant_id, name, name_en, address, star, price, discount,
       discount_description, images, tags, facilities,
       review_status, publish_status, reject_reason, created_at, updated_at
FROM hotels
WHERE id = ?
`

const deleteHotelSQL = `DELETE FROM hotels WHERE id = ?`

const countHotelsByReviewSQL = `
SELECT review_status, COUNT(*) FROM hotels GROUP BY review_status
`

const insertOrderSQL = `
INSERT INTO orders
  (order_no, user_id, hotel_id, room_info, check_in_date, check_out_date,
   nights, rooms_count, adults, children, contact_name, contact_phone,
   special_requests, room_price, total_price, discount_amount,
   actual_payment, order_status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// setOrderStatusSQL writes the status block guarded by the expected
// current status.
const setOrderStatusSQL = `
UPDATE orders SET
  order_status   = ?,
  payment_method = ?,
  payment_time   = ?,
  cancel_reason  = ?,
  cancel_time    = ?,
  updated_at     = CURRENT_TIMESTAMP
WHERE id = ? AND order_status = ?
`

const getOrderSQL = `
SELECT id, order_no, user_id, hotel_id, room_info, check_in_date,
       check_out_date, nights, rooms_count, adults, children, contact_name,
       contact_phone, special_requests, room_price, total_price,
       discount_amount, actual_payment, order_status, payment_method,
       payment_time, cancel_reason, cancel_time, created_at, updated_at
FROM orders
WHERE id = ?
`

const listOrdersByUserPrefix = `
SELECT id, order_no, user_id, hotel_id, room_info, check_in_date,
       check_out_date, nights, rooms_count, adults, children, contact_name,
       contact_phone, special_requests, room_price, total_price,
       discount_amount, actual_payment, order_status, payment_method,
       payment_time, cancel_reason, cancel_time, created_at, updated_at
FROM orders
WHERE user_id = ?`

const countOrdersByStatusSQL = `
SELECT order_status, COUNT(*) FROM orders WHERE user_id = ? GROUP BY order_status
`

const getProfileSQL = `
SELECT user_id, member_level, points FROM member_profiles WHERE user_id = ?
`

// addPointsSQL creates the profile on first accrual; new users start at the
// ordinary tier.
const addPointsSQL = `
INSERT INTO member_profiles (user_id, member_level, points)
VALUES (?, 'ordinary', ?)
ON DUPLICATE KEY UPDATE points = points + VALUES(points)
`
