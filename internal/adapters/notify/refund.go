package notify

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

const refundEndpoint = "/refunds"

// RefundGateway posts refund requests to the settlement service. Dispatch is
// asynchronous and best effort: a paid order's cancellation never blocks on
// the gateway, and failures are logged, not surfaced to the caller.
type RefundGateway struct {
	base    string
	hc      *http.Client
	key     string
	rl      *rate.Limiter
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRefundGateway(base, key string, rps, maxInFlight int) (*RefundGateway, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	return &RefundGateway{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: 20 * time.Second},
		key:     key,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		timeout: 30 * time.Second,
	}, nil
}

type refundPayload struct {
	RefundID string `json:"refund_id"`
	OrderNo  string `json:"order_no"`
	Amount   string `json:"amount"`
}

// Refund queues one delivery attempt chain for req. The refund_id is minted
// here so retries of the same request stay idempotent on the gateway side.
func (g *RefundGateway) Refund(ctx context.Context, req domain.RefundRequest) {
	payload := refundPayload{
		RefundID: uuid.NewString(),
		OrderNo:  req.OrderNo,
		Amount:   req.Amount.StringFixed(2),
	}
	observability.RefundsRequested.Inc()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		// detached from the request context: the order is already cancelled.
		sctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		if err := g.sem.Acquire(sctx, 1); err != nil {
			log.Error().Str("order_no", payload.OrderNo).Err(err).Msg("refund dispatch queue full")
			return
		}
		defer g.sem.Release(1)

		if err := g.post(sctx, payload); err != nil {
			log.Error().
				Str("order_no", payload.OrderNo).
				Str("refund_id", payload.RefundID).
				Str("amount", payload.Amount).
				Err(err).
				Msg("refund delivery failed")
			return
		}
		log.Info().
			Str("order_no", payload.OrderNo).
			Str("refund_id", payload.RefundID).
			Str("amount", payload.Amount).
			Msg("refund delivered")
	}()
}

// Wait blocks until all queued deliveries finish. Used on shutdown.
func (g *RefundGateway) Wait() { g.wg.Wait() }

// post performs the POST with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (g *RefundGateway) post(ctx context.Context, payload refundPayload) error {
	if err := g.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+refundEndpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", g.key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := g.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("settlement", refundEndpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("settlement", refundEndpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusConflict:
			// gateway already holds this refund_id, treat as delivered
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
