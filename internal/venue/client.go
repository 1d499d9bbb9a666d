// Package venue implements executor.VenueClient against a REST trading
// API: Submit/Cancel place and remove orders, PollUpdates reports fills,
// acks, rejects, and cancellations reported back by the venue. Grounded
// on the teacher's internal/exchange/client.go: a resty.Client with
// retry-on-5xx and per-category rate limiting, generalized from
// Polymarket's CLOB-specific endpoints/signing to the minimal
// Submit/Cancel/PollUpdates contract spec §6 requires of any venue.
package venue

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/executor"
)

// Config addresses the venue; BaseURL is required, Timeout defaults to
// 10s if zero.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a REST-backed executor.VenueClient.
type Client struct {
	http    *resty.Client
	rl      *RateLimiter
	breaker *ResilienceBreaker
	logger  *slog.Logger
}

// NewClient builds a rate-limited, retrying, resilience-breaker-guarded
// REST client for cfg.BaseURL.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		rl:      NewRateLimiter(),
		breaker: NewResilienceBreaker(DefaultResilienceConfig()),
		logger:  logger.With("component", "venue"),
	}
}

// ErrCircuitOpen is returned by Submit/Cancel/PollUpdates while the
// connection-resilience breaker is Open.
var ErrCircuitOpen = fmt.Errorf("venue: circuit breaker open")

type orderRequest struct {
	ID          string `json:"id"`
	Side        string `json:"side"`
	Price       uint64 `json:"price"`
	Size        uint64 `json:"size"`
	TimeInForce string `json:"time_in_force"`
}

// Submit places one order. Blocks on the submit rate limiter before
// issuing the request, per the rate-limiting contract of spec §6.
func (c *Client) Submit(ctx context.Context, order core.Order) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := c.rl.Submit.Wait(ctx); err != nil {
		return fmt.Errorf("venue: submit rate limit: %w", err)
	}

	req := orderRequest{
		ID:          order.ID.String(),
		Side:        order.Side.String(),
		Price:       order.Price,
		Size:        order.Size,
		TimeInForce: timeInForceString(order.TimeInForce),
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post("/orders")
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("venue: submit order %s: %w", order.ID, err)
	}
	if resp.StatusCode() >= 500 {
		c.breaker.RecordFailure()
		return fmt.Errorf("venue: submit order %s: status %d: %s", order.ID, resp.StatusCode(), resp.String())
	}
	if resp.StatusCode() >= 300 {
		c.breaker.RecordSuccess()
		return fmt.Errorf("venue: submit order %s: status %d: %s", order.ID, resp.StatusCode(), resp.String())
	}
	c.breaker.RecordSuccess()
	return nil
}

// Cancel requests cancellation of one order.
func (c *Client) Cancel(ctx context.Context, id core.OrderID) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return fmt.Errorf("venue: cancel rate limit: %w", err)
	}

	resp, err := c.http.R().SetContext(ctx).Delete("/orders/" + id.String())
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("venue: cancel order %s: %w", id, err)
	}
	if resp.StatusCode() >= 500 {
		c.breaker.RecordFailure()
		return fmt.Errorf("venue: cancel order %s: status %d: %s", id, resp.StatusCode(), resp.String())
	}
	c.breaker.RecordSuccess()
	if resp.StatusCode() >= 300 && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("venue: cancel order %s: status %d: %s", id, resp.StatusCode(), resp.String())
	}
	return nil
}

type updateResponse struct {
	Updates []wireUpdate `json:"updates"`
}

type wireUpdate struct {
	OrderID     string `json:"order_id"`
	Kind        string `json:"kind"` // ack | fill | reject | cancelled
	Side        string `json:"side"`
	FillPrice   uint64 `json:"fill_price"`
	FillSize    uint64 `json:"fill_size"`
	TimestampNs int64  `json:"timestamp_ns"`
	FeeNano     int64  `json:"fee_nano"`
	Reason      string `json:"reason"`
}

// PollUpdates fetches any order-lifecycle events the venue has reported
// since the last poll.
func (c *Client) PollUpdates(ctx context.Context) ([]executor.VenueUpdate, error) {
	if !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	if err := c.rl.Poll.Wait(ctx); err != nil {
		return nil, fmt.Errorf("venue: poll rate limit: %w", err)
	}

	var result updateResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&result).Get("/orders/updates")
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("venue: poll updates: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("venue: poll updates: status %d: %s", resp.StatusCode(), resp.String())
	}
	c.breaker.RecordSuccess()

	updates := make([]executor.VenueUpdate, 0, len(result.Updates))
	for _, u := range result.Updates {
		update, err := u.toVenueUpdate()
		if err != nil {
			c.logger.Error("venue: skipping malformed update", "error", err)
			continue
		}
		updates = append(updates, update)
	}
	return updates, nil
}

func (u wireUpdate) toVenueUpdate() (executor.VenueUpdate, error) {
	id, err := parseOrderID(u.OrderID)
	if err != nil {
		return executor.VenueUpdate{}, err
	}
	out := executor.VenueUpdate{OrderID: id, Reason: u.Reason}
	switch u.Kind {
	case "ack":
		out.Kind = executor.VenueAck
	case "fill":
		out.Kind = executor.VenueFill
		side := core.Buy
		if u.Side == "sell" {
			side = core.Sell
		}
		out.Fill = &core.Fill{
			OrderID: id, Side: side, Price: u.FillPrice, Size: u.FillSize,
			TimestampNs: u.TimestampNs, Fee: u.FeeNano,
		}
	case "reject":
		out.Kind = executor.VenueReject
	case "cancelled":
		out.Kind = executor.VenueCancelled
	default:
		return executor.VenueUpdate{}, fmt.Errorf("venue: unknown update kind %q", u.Kind)
	}
	return out, nil
}

func timeInForceString(tif core.TimeInForce) string {
	switch tif {
	case core.IOC:
		return "IOC"
	case core.FOK:
		return "FOK"
	default:
		return "GTC"
	}
}

func parseOrderID(s string) (core.OrderID, error) {
	var ts, counter uint64
	if _, err := fmt.Sscanf(s, "%016x-%016x", &ts, &counter); err != nil {
		return core.OrderID{}, fmt.Errorf("venue: parse order id %q: %w", s, err)
	}
	return core.OrderID{TimestampNanos: ts, Counter: counter}, nil
}
