//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"stayhub/internal/adapters/auth"
	server "stayhub/internal/adapters/http_server"
	"stayhub/internal/adapters/notify"
	redisad "stayhub/internal/adapters/redis"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	mysqlrepo "stayhub/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=stayhub",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&clientFoundRows=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "stayhub")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

type harness struct {
	ts          *httptest.Server
	jwt         *auth.JWT
	gateway     *notify.RefundGateway
	refundCalls *int32
}

func newHarness(t *testing.T, db *sql.DB) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	var refundCalls int32
	settlement := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refundCalls, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(settlement.Close)

	gateway, err := notify.NewRefundGateway(settlement.URL, "test-key", 100, 4)
	if err != nil {
		t.Fatalf("refund gateway: %v", err)
	}

	hotelRepo := mysqlrepo.NewHotelRepo(db)
	orderRepo := mysqlrepo.NewOrderRepo(db)
	profileRepo := mysqlrepo.NewProfileRepo(db)

	jwt := auth.NewJWT("e2e-secret", time.Hour)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Auth:     jwt,
		Hotels:   app.NewHotelService(hotelRepo, cache),
		Bookings: app.NewBookingService(hotelRepo, orderRepo, profileRepo, gateway),
		Q:        app.NewQueryService(hotelRepo, cache, time.Minute),
	})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &harness{ts: ts, jwt: jwt, gateway: gateway, refundCalls: &refundCalls}
}

func (h *harness) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := h.jwt.Issue(id, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, h.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// ---------- the test ----------
func TestHTTP_EndToEnd_BookingFlow(t *testing.T) {
	db := startMySQL(t)
	h := newHarness(t, db)

	merchant := h.token(t, domain.Identity{UserID: 7, Role: domain.RoleMerchant})
	admin := h.token(t, domain.Identity{UserID: 1, Role: domain.RoleAdmin})
	guest := h.token(t, domain.Identity{UserID: 3, Role: domain.RoleUser})

	// the guest is a gold member
	if _, err := db.Exec(`INSERT INTO member_profiles (user_id, member_level, points) VALUES (3, 'gold', 0)`); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	// merchant lists, admin approves, merchant publishes
	var hotel struct {
		ID int64 `json:"id"`
	}
	status := h.do(t, http.MethodPost, "/v1/hotels", merchant, map[string]any{
		"name":     "海滨花园酒店",
		"address":  "1 Beach Road",
		"star":     5,
		"price":    "500",
		"discount": "0.9",
		"images":   []string{"/uploads/a.jpg"},
	}, &hotel)
	if status != http.StatusCreated {
		t.Fatalf("create hotel: %d", status)
	}

	base := fmt.Sprintf("/v1/hotels/%d", hotel.ID)
	if s := h.do(t, http.MethodPost, base+"/review", admin, map[string]string{"action": "approve"}, nil); s != http.StatusOK {
		t.Fatalf("approve: %d", s)
	}
	if s := h.do(t, http.MethodPost, base+"/publish", merchant, map[string]string{"action": "publish"}, nil); s != http.StatusOK {
		t.Fatalf("publish: %d", s)
	}

	// guest books three nights; promo and gold member discounts stack
	checkIn := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	checkOut := time.Now().AddDate(0, 0, 10).Format("2006-01-02")
	var placed struct {
		Order struct {
			ID            int64           `json:"id"`
			OrderNo       string          `json:"order_no"`
			ActualPayment decimal.Decimal `json:"actual_payment"`
			CanPay        bool            `json:"can_pay"`
			CanCancel     bool            `json:"can_cancel"`
		} `json:"order"`
		Quote struct {
			FinalTotal decimal.Decimal `json:"final_total"`
		} `json:"quote"`
	}
	status = h.do(t, http.MethodPost, "/v1/orders", guest, map[string]any{
		"hotel_id":      hotel.ID,
		"check_in":      checkIn,
		"check_out":     checkOut,
		"contact_name":  "张三",
		"contact_phone": "13812345678",
	}, &placed)
	if status != http.StatusCreated {
		t.Fatalf("create order: %d", status)
	}
	want := decimal.RequireFromString("1282.50")
	if !placed.Order.ActualPayment.Equal(want) {
		t.Fatalf("actual payment: %s", placed.Order.ActualPayment)
	}
	if len(placed.Order.OrderNo) != 13 || placed.Order.OrderNo[0] != 'E' {
		t.Fatalf("order no: %q", placed.Order.OrderNo)
	}
	if !placed.Order.CanPay || !placed.Order.CanCancel {
		t.Fatalf("fresh order capabilities: pay=%v cancel=%v", placed.Order.CanPay, placed.Order.CanCancel)
	}

	orderBase := fmt.Sprintf("/v1/orders/%d", placed.Order.ID)

	// pay accrues whole-unit points
	var paid struct {
		PointsAwarded int64 `json:"points_awarded"`
	}
	if s := h.do(t, http.MethodPost, orderBase+"/pay", guest, map[string]string{"method": "wechat"}, &paid); s != http.StatusOK {
		t.Fatalf("pay: %d", s)
	}
	if paid.PointsAwarded != 1282 {
		t.Fatalf("points awarded: %d", paid.PointsAwarded)
	}

	// double pay conflicts
	if s := h.do(t, http.MethodPost, orderBase+"/pay", guest, map[string]string{"method": "wechat"}, nil); s != http.StatusConflict {
		t.Fatalf("double pay: %d", s)
	}

	// cancelling the paid order fires exactly one refund
	if s := h.do(t, http.MethodPost, orderBase+"/cancel", guest, nil, nil); s != http.StatusOK {
		t.Fatalf("cancel: %d", s)
	}
	h.gateway.Wait()
	if n := atomic.LoadInt32(h.refundCalls); n != 1 {
		t.Fatalf("refund calls: %d", n)
	}

	if s := h.do(t, http.MethodPost, orderBase+"/cancel", guest, nil, nil); s != http.StatusConflict {
		t.Fatalf("second cancel: %d", s)
	}

	// statistics land in the cancelled bucket
	var stats struct {
		All       int64 `json:"all"`
		Cancelled int64 `json:"cancelled"`
	}
	if s := h.do(t, http.MethodGet, "/v1/orders/statistics", guest, nil, &stats); s != http.StatusOK {
		t.Fatalf("stats: %d", s)
	}
	if stats.All != 1 || stats.Cancelled != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}
