package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourflorist/storefront/api/middleware"
	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/api/validators"
	"github.com/yourflorist/storefront/internal/cart"
	"github.com/yourflorist/storefront/pkg/logger"
)

// CartService is the per-session cart surface the controllers consume.
type CartService interface {
	View(ctx context.Context, sessionID string) (*cart.View, error)
	AddItem(ctx context.Context, sessionID string, product cart.ProductSnapshot, quantity int) (*cart.View, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (*cart.View, error)
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*cart.View, error)
	Clear(ctx context.Context, sessionID string) (*cart.View, error)
	ApplyPromotion(ctx context.Context, sessionID string, promo *cart.Promotion) (*cart.View, error)
	ApplyPromotionCode(ctx context.Context, sessionID, code string) (*cart.View, error)
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type promotionRequest struct {
	Code string `json:"code" validate:"required"`
}

// CartView returns the session's cart with computed totals.
func CartView(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.View(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem resolves the product from the catalog and merges it into the
// cart.
func CartAddItem(svc CartService, catalog CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := catalog.ProductByID(r.Context(), req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot := cart.ProductSnapshot{
			ID:       product.ID.String(),
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.ImageRef(),
			Category: product.Category.Label(),
			InStock:  product.InStock,
		}

		view, err := svc.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), snapshot, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartSetQuantity replaces a line's quantity; zero removes the line.
func CartSetQuantity(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SetQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem drops a line from the cart.
func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartClear empties the line items; the applied promotion stays.
func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Clear(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartApplyPromotion validates a promotion code upstream and applies it.
func CartApplyPromotion(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promotionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ApplyPromotionCode(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartClearPromotion removes the applied promotion.
func CartClearPromotion(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ApplyPromotion(r.Context(), middleware.SessionIDFromContext(r.Context()), nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
