package restaurant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Gateway is everything the storefront needs from the restaurant API.
type Gateway interface {
	GetMenu(ctx context.Context) ([]MenuItem, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	CreateOrder(ctx context.Context, newOrder *NewOrder) (*Order, error)
}

// Config controls how the client talks to the restaurant API. A zero Timeout means no
// timeout; retries only ever apply to GET requests.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type failure struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client is the resty-backed Gateway. It is safe for concurrent use.
type Client struct {
	http *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("restaurant client: base url is empty")
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		AddRetryCondition(retryable).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			log.Debug().
				Str("method", resp.Request.Method).
				Str("url", resp.Request.URL).
				Int("status", resp.StatusCode()).
				Dur("took", resp.Time()).
				Msg("restaurant api call")
			return nil
		})

	if cfg.RetryWaitTime > 0 {
		rc.SetRetryWaitTime(cfg.RetryWaitTime)
	}
	if cfg.RetryMaxWaitTime > 0 {
		rc.SetRetryMaxWaitTime(cfg.RetryMaxWaitTime)
	}

	return &Client{http: rc}, nil
}

// retryable retries transient failures (transport errors, 429 and 5xx) of GET requests.
// Order creation is never retried so a slow answer cannot place an order twice.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}

	if err != nil {
		return !errors.Is(err, context.Canceled)
	}

	switch resp.StatusCode() {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetError(&failure{}).
		ForceContentType("application/json")
}

func (c *Client) GetMenu(ctx context.Context) ([]MenuItem, error) {
	var out envelope[[]MenuItem]

	resp, err := c.request(ctx).SetResult(&out).Get("/menu")
	if err := check("get menu", resp, err); err != nil {
		return nil, err
	}

	return out.Data, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out envelope[*Order]

	resp, err := c.request(ctx).
		SetResult(&out).
		SetPathParam("orderId", id).
		Get("/order/{orderId}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("get order %q: %w", id, ErrOrderNotFound)
	}
	if err := check("get order", resp, err); err != nil {
		return nil, err
	}

	if out.Data == nil {
		return nil, &APIError{Op: "get order", StatusCode: resp.StatusCode(), Message: "response has no order"}
	}

	return out.Data, nil
}

func (c *Client) CreateOrder(ctx context.Context, newOrder *NewOrder) (*Order, error) {
	if newOrder == nil {
		return nil, errors.New("create order: payload is nil")
	}

	var out envelope[*Order]

	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(newOrder).
		SetResult(&out).
		Post("/order")
	if err := check("create order", resp, err); err != nil {
		return nil, err
	}

	if out.Data == nil || out.Data.ID == "" {
		return nil, &APIError{Op: "create order", StatusCode: resp.StatusCode(), Message: "response has no order id"}
	}

	log.Info().Str("order_id", out.Data.ID).Bool("priority", out.Data.Priority).Msg("restaurant: order created")

	return out.Data, nil
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &APIError{Op: op, Err: err}
	}

	if resp.IsError() {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode()}
		if f, ok := resp.Error().(*failure); ok {
			apiErr.Message = f.Message
		}
		return apiErr
	}

	return nil
}
