package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourflorist/storefront/api/middleware"
	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/api/validators"
	"github.com/yourflorist/storefront/internal/cart"
	"github.com/yourflorist/storefront/internal/customization"
	"github.com/yourflorist/storefront/pkg/logger"
)

// CustomizationService drives bouquet customization sessions.
type CustomizationService interface {
	Start(ctx context.Context, sessionID, bouquetID string) (*customization.Session, error)
	Get(ctx context.Context, sessionID, bouquetID string) (*customization.Session, error)
	AdjustQuantity(ctx context.Context, sessionID, bouquetID, flowerID string, quantity int) (*customization.Session, error)
	Snapshot(ctx context.Context, sessionID, bouquetID string) (cart.ProductSnapshot, error)
	Discard(ctx context.Context, sessionID, bouquetID string) error
}

type adjustQuantityRequest struct {
	FlowerID string `json:"flowerId" validate:"required"`
	Quantity int    `json:"quantity"`
}

type customizationResponse struct {
	Session     *customization.Session `json:"session"`
	CustomPrice string                 `json:"customPrice"`
}

func writeCustomization(w http.ResponseWriter, session *customization.Session) {
	responses.WriteSuccess(w, customizationResponse{
		Session:     session,
		CustomPrice: session.CustomPrice().StringFixed(2),
	})
}

// CustomizeStart seeds a customization session from the bouquet template.
func CustomizeStart(svc CustomizationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Start(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "bouquetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCustomization(w, session)
	}
}

// CustomizeGet returns the in-progress session.
func CustomizeGet(svc CustomizationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Get(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "bouquetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCustomization(w, session)
	}
}

// CustomizeAdjust sets one flower's quantity within the template bounds.
func CustomizeAdjust(svc CustomizationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.AdjustQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "bouquetId"), req.FlowerID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCustomization(w, session)
	}
}

// CustomizeAddToCart snapshots the customized bouquet into the cart at its
// computed price and ends the customization session.
func CustomizeAddToCart(customizeSvc CustomizationService, cartSvc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)
		bouquetID := chi.URLParam(r, "bouquetId")

		product, err := customizeSvc.Snapshot(ctx, sessionID, bouquetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := cartSvc.AddItem(ctx, sessionID, product, 1)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := customizeSvc.Discard(ctx, sessionID, bouquetID); err != nil {
			logg.Error(ctx, "discarding completed customization", err)
		}

		responses.WriteSuccess(w, view)
	}
}

// CustomizeDiscard abandons the session without touching the cart.
func CustomizeDiscard(svc CustomizationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Discard(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "bouquetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "discarded"})
	}
}
