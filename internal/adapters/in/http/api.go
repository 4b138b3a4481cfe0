package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the operations of openapi.yaml by operationId.
type ServerInterface interface {
	// (POST /orders)
	CreateOrder(ctx echo.Context) error
	// (GET /orders)
	GetOrdersByStatus(ctx echo.Context, params GetOrdersByStatusParams) error
	// (PATCH /orders/{id}/status)
	UpdateOrderStatus(ctx echo.Context, id string) error
	// (GET /orders/by-role/{id})
	GetOrdersByRoleID(ctx echo.Context, id string) error
	// (POST /orders/refresh)
	RefreshOrders(ctx echo.Context) error
	// (POST /orders/retry)
	RetryPendingWrites(ctx echo.Context) error
	// (GET /health)
	GetHealth(ctx echo.Context) error
}

// GetOrdersByStatusParams are the query parameters of GET /orders.
type GetOrdersByStatusParams struct {
	Status string `form:"status" json:"status"`
}

// ServerInterfaceWrapper binds path and query parameters before delegating.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) CreateOrder(ctx echo.Context) error {
	return w.Handler.CreateOrder(ctx)
}

func (w *ServerInterfaceWrapper) GetOrdersByStatus(ctx echo.Context) error {
	var params GetOrdersByStatusParams

	err := runtime.BindQueryParameter("form", true, true, "status", ctx.QueryParams(), &params.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter status: %s", err))
	}

	return w.Handler.GetOrdersByStatus(ctx, params)
}

func (w *ServerInterfaceWrapper) UpdateOrderStatus(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.UpdateOrderStatus(ctx, id)
}

func (w *ServerInterfaceWrapper) GetOrdersByRoleID(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.GetOrdersByRoleID(ctx, id)
}

func (w *ServerInterfaceWrapper) RefreshOrders(ctx echo.Context) error {
	return w.Handler.RefreshOrders(ctx)
}

func (w *ServerInterfaceWrapper) RetryPendingWrites(ctx echo.Context) error {
	return w.Handler.RetryPendingWrites(ctx)
}

func (w *ServerInterfaceWrapper) GetHealth(ctx echo.Context) error {
	return w.Handler.GetHealth(ctx)
}

func bindID(ctx echo.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return id, nil
}

// EchoRouter is the subset of *echo.Echo and *echo.Group used for routing.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds every operation of si to router.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.POST("/orders", wrapper.CreateOrder)
	router.GET("/orders", wrapper.GetOrdersByStatus)
	router.PATCH("/orders/:id/status", wrapper.UpdateOrderStatus)
	router.GET("/orders/by-role/:id", wrapper.GetOrdersByRoleID)
	router.POST("/orders/refresh", wrapper.RefreshOrders)
	router.POST("/orders/retry", wrapper.RetryPendingWrites)
	router.GET("/health", wrapper.GetHealth)
}
