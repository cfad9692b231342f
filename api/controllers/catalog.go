package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/types"
)

// CatalogService is the cached catalog surface the controllers consume.
type CatalogService interface {
	Products(ctx context.Context) ([]florist.Product, error)
	ProductByID(ctx context.Context, id string) (*florist.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]florist.Product, error)
	ActiveBouquets(ctx context.Context) ([]florist.Product, error)
	Categories(ctx context.Context) ([]types.Category, error)
}

// BouquetService resolves full bouquet templates with compositions.
type BouquetService interface {
	BouquetByID(ctx context.Context, id string) (*florist.Bouquet, error)
}

// CatalogProducts lists the full catalog, optionally filtered by the
// category query parameter.
func CatalogProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			products []florist.Product
			err      error
		)
		if category := r.URL.Query().Get("category"); category != "" {
			products, err = svc.ProductsByCategory(r.Context(), category)
		} else {
			products, err = svc.Products(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// CatalogProduct returns one product by id.
func CatalogProduct(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.ProductByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CatalogBouquets lists the purchasable bouquet templates.
func CatalogBouquets(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bouquets, err := svc.ActiveBouquets(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bouquets)
	}
}

// CatalogBouquet returns one bouquet template with its compositions.
func CatalogBouquet(svc BouquetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bouquet, err := svc.BouquetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bouquet)
	}
}

// CatalogCategories lists the active category taxonomy.
func CatalogCategories(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}
