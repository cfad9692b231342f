package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourflorist/storefront/api/middleware"
	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/api/validators"
	"github.com/yourflorist/storefront/internal/checkout"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/logger"
)

// CheckoutService drives order placement and order history.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, sessionID string, address checkout.Address) (*checkout.Result, error)
	Orders(ctx context.Context, sessionID string) ([]florist.Order, error)
	OrderByID(ctx context.Context, sessionID, orderID string) (*florist.Order, error)
}

type checkoutRequest struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// CheckoutPlaceOrder submits the cart as an order and returns the payment
// redirect URL.
func CheckoutPlaceOrder(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), middleware.SessionIDFromContext(r.Context()), checkout.Address{
			Street:  req.Street,
			City:    req.City,
			State:   req.State,
			ZipCode: req.ZipCode,
			Country: req.Country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrdersList returns the shopper's order history.
func OrdersList(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.Orders(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// OrderDetail returns one order-history entry.
func OrderDetail(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.OrderByID(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
