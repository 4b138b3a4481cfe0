// Package http exposes the order facade to local collaborators over JSON/HTTP.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// OrderService is the facade surface the server needs.
type OrderService interface {
	CreateOrder(ctx context.Context, draft order.Draft) (string, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*reconcile.Snapshot, error)
	RefreshOrders(ctx context.Context) error
	RetryPendingWrites(ctx context.Context, force bool) (commands.RetryResult, error)
	OrdersByStatus(ctx context.Context, status order.Status) ([]reconcile.Snapshot, error)
	OrdersByRoleID(ctx context.Context, id string) ([]reconcile.Snapshot, error)
	ConnectionHealth(ctx context.Context) (reconcile.Health, error)
}

// Server implements ServerInterface on top of an OrderService.
type Server struct {
	orders OrderService
	logger *slog.Logger
}

func NewServer(orders OrderService, logger *slog.Logger) *Server {
	return &Server{orders: orders, logger: logger.With("component", "http_server")}
}

// CreateOrder handles POST /orders.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var body orderdto.DraftDTO
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: "Invalid request body"})
	}

	draft, err := body.ToDomain()
	if err != nil {
		return s.fail(ctx, err)
	}

	id, err := s.orders.CreateOrder(ctx.Request().Context(), draft)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, CreatedOrder{ID: id, Provisional: order.IsProvisionalID(id)})
}

// GetOrdersByStatus handles GET /orders?status=.
func (s *Server) GetOrdersByStatus(ctx echo.Context, params GetOrdersByStatusParams) error {
	status, err := order.ParseStatus(params.Status)
	if err != nil {
		return s.fail(ctx, err)
	}

	snaps, err := s.orders.OrdersByStatus(ctx.Request().Context(), status)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrders(snaps))
}

// UpdateOrderStatus handles PATCH /orders/{id}/status.
func (s *Server) UpdateOrderStatus(ctx echo.Context, id string) error {
	var body StatusChange
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: "Invalid request body"})
	}
	status, err := order.ParseStatus(body.Status)
	if err != nil {
		return s.fail(ctx, err)
	}

	snap, err := s.orders.UpdateOrderStatus(ctx.Request().Context(), id, status)

	var conflict *errs.ConflictError
	if errors.As(err, &conflict) {
		resp := Error{Code: http.StatusConflict, Message: err.Error(), CurrentStatus: conflict.Current}
		if snap != nil {
			o := toOrder(*snap)
			resp.Order = &o
		}
		return ctx.JSON(http.StatusConflict, resp)
	}
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrder(*snap))
}

// GetOrdersByRoleID handles GET /orders/by-role/{id}.
func (s *Server) GetOrdersByRoleID(ctx echo.Context, id string) error {
	snaps, err := s.orders.OrdersByRoleID(ctx.Request().Context(), id)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrders(snaps))
}

// RefreshOrders handles POST /orders/refresh.
func (s *Server) RefreshOrders(ctx echo.Context) error {
	if err := s.orders.RefreshOrders(ctx.Request().Context()); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RetryPendingWrites handles POST /orders/retry. The backoff gate is bypassed.
func (s *Server) RetryPendingWrites(ctx echo.Context) error {
	res, err := s.orders.RetryPendingWrites(ctx.Request().Context(), true)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toRetryResult(res))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(ctx echo.Context) error {
	h, err := s.orders.ConnectionHealth(ctx.Request().Context())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toHealth(h))
}

func (s *Server) fail(ctx echo.Context, err error) error {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx.Request().Context(), "Request failed",
			"method", ctx.Request().Method, "path", ctx.Path(), "error", err)
	}
	return ctx.JSON(code, Error{Code: code, Message: err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrSessionEnded), errors.Is(err, errs.ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
