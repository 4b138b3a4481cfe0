// Package remote is the HTTP client of the authoritative order service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxBodySize bounds a response body. A larger body is reported as
// *errs.ValueIsOutOfRangeError, never truncated.
const DefaultMaxBodySize int64 = 16 << 20

// Client implements ports.RemoteOrderService over JSON/HTTP.
//
// Transport failures, timeouts, 429 and 5xx responses become
// *errs.NetworkError. 409 becomes *errs.ConflictError carrying the status of
// the order in the response body, 400 and 422 become *errs.ValueIsInvalidError
// and 404 becomes *errs.ObjectNotFoundError.
type Client struct {
	baseURL     string
	client      *http.Client
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// NewClient creates a client with a traced transport.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, opts...)
}

// NewClientWithHTTP creates a client using httpClient as is.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      httpClient,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type statusRequest struct {
	Status order.Status `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Create submits draft with POST /orders.
func (c *Client) Create(ctx context.Context, draft order.Draft) (*order.Order, error) {
	body, err := json.Marshal(orderdto.FromDraft(draft))
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(c.do(ctx, "create order", "", http.MethodPost, "/orders", body))
}

// UpdateStatus requests a status change with PATCH /orders/{id}.
func (c *Client) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	body, err := json.Marshal(statusRequest{Status: status})
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(c.do(ctx, "update order status", id, http.MethodPatch, "/orders/"+url.PathEscape(id), body))
}

// Get fetches one order with GET /orders/{id}.
func (c *Client) Get(ctx context.Context, id string) (*order.Order, error) {
	return c.decodeOrder(c.do(ctx, "get order", id, http.MethodGet, "/orders/"+url.PathEscape(id), nil))
}

// List fetches every order in scope with GET /orders. The admin scope sends no filter.
func (c *Client) List(ctx context.Context, scope kernel.Scope) ([]*order.Order, error) {
	path := "/orders"
	if scope.Field != kernel.ScopeAll {
		path += "?" + url.Values{string(scope.Field): {scope.ID}}.Encode()
	}

	data, err := c.do(ctx, "list orders", "", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var dtos []orderdto.OrderDTO
	if err = json.Unmarshal(data, &dtos); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("order list", err)
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, dtoErr := dto.ToDomain()
		if dtoErr != nil {
			return nil, dtoErr
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) decodeOrder(data []byte, err error) (*order.Order, error) {
	if err != nil {
		return nil, err
	}
	return orderdto.Unmarshal(data)
}

func (c *Client) do(ctx context.Context, op, orderID, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.NewNetworkErrorWithCause(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, errs.NewNetworkErrorWithCause(op, err)
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, errs.NewValueIsOutOfRangeErrorWithCause("response body size",
			fmt.Sprintf("more than %d bytes", c.maxBodySize), 0, c.maxBodySize,
			fmt.Errorf("%s returned %d with an oversized body", op, resp.StatusCode))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, mapStatus(op, orderID, resp.StatusCode, data)
}

func mapStatus(op, orderID string, code int, body []byte) error {
	cause := fmt.Errorf("%s returned %d: %s", op, code, message(body))

	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return errs.NewNetworkErrorWithCause(op, cause)
	case code == http.StatusConflict:
		current := ""
		if o, err := orderdto.Unmarshal(body); err == nil {
			current = o.Status().String()
		}
		return errs.NewConflictErrorWithCause(orderID, current, cause)
	case code == http.StatusNotFound:
		return errs.NewObjectNotFoundErrorWithCause("order", orderID, cause)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errs.NewValueIsInvalidErrorWithCause(op, cause)
	default:
		return cause
	}
}

func message(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}
