// Package catalog serves the product taxonomy with a database-backed
// read-through cache over the florist API. Fresh rows avoid an upstream
// round trip; stale rows are refreshed and, when the upstream is down,
// served anyway rather than blanking the storefront.
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourflorist/storefront/pkg/db"
	"github.com/yourflorist/storefront/pkg/db/models"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/types"
)

type upstream interface {
	Products(ctx context.Context) ([]florist.Product, error)
	Product(ctx context.Context, id string) (*florist.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]florist.Product, error)
	ActiveBouquets(ctx context.Context) ([]florist.Product, error)
	ActiveCategories(ctx context.Context) ([]types.Category, error)
}

// Service is the cached catalog reader.
type Service struct {
	api  upstream
	db   *db.Client
	ttl  time.Duration
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the catalog service. ttl bounds how long cached rows are
// served without consulting the upstream.
func NewService(api upstream, dbClient *db.Client, ttl time.Duration, logg *logger.Logger) *Service {
	return &Service{
		api:  api,
		db:   dbClient,
		ttl:  ttl,
		logg: logg,
		now:  time.Now,
	}
}

// Products returns the full catalog.
func (s *Service) Products(ctx context.Context) ([]florist.Product, error) {
	return s.cachedList(ctx, "", false, func(ctx context.Context) ([]florist.Product, error) {
		return s.api.Products(ctx)
	})
}

// ActiveBouquets returns the purchasable bouquet templates.
func (s *Service) ActiveBouquets(ctx context.Context) ([]florist.Product, error) {
	return s.cachedList(ctx, "", true, func(ctx context.Context) ([]florist.Product, error) {
		return s.api.ActiveBouquets(ctx)
	})
}

// ProductsByCategory returns the catalog filtered to one category name.
func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]florist.Product, error) {
	return s.cachedList(ctx, category, false, func(ctx context.Context) ([]florist.Product, error) {
		return s.api.ProductsByCategory(ctx, category)
	})
}

// ProductByID returns one catalog entry, preferring a fresh cached row.
func (s *Service) ProductByID(ctx context.Context, id string) (*florist.Product, error) {
	var row models.CachedProduct
	err := s.db.DB().WithContext(ctx).First(&row, "id = ?", id).Error
	if err == nil && s.fresh(row.FetchedAt) {
		product := fromRow(row)
		return &product, nil
	}

	product, upstreamErr := s.api.Product(ctx, id)
	if upstreamErr != nil {
		if err == nil {
			// Serve the stale row rather than failing the page.
			s.logg.Warn(s.logg.WithField(ctx, "error", upstreamErr.Error()), "product refresh failed, serving stale cache")
			stale := fromRow(row)
			return &stale, nil
		}
		return nil, upstreamErr
	}

	s.upsertProducts(ctx, []florist.Product{*product}, false)
	return product, nil
}

// Categories returns the active category taxonomy. Categories change
// rarely; failures fall back to whatever the cache holds.
func (s *Service) Categories(ctx context.Context) ([]types.Category, error) {
	var rows []models.CachedCategory
	err := s.db.DB().WithContext(ctx).Order("name asc").Find(&rows).Error
	if err == nil && len(rows) > 0 && s.fresh(rows[0].FetchedAt) {
		return categoriesFromRows(rows), nil
	}

	categories, upstreamErr := s.api.ActiveCategories(ctx)
	if upstreamErr != nil {
		if err == nil && len(rows) > 0 {
			s.logg.Warn(s.logg.WithField(ctx, "error", upstreamErr.Error()), "category refresh failed, serving stale cache")
			return categoriesFromRows(rows), nil
		}
		return nil, upstreamErr
	}

	s.upsertCategories(ctx, categories)
	return categories, nil
}

func (s *Service) cachedList(ctx context.Context, category string, bouquetsOnly bool, fetch func(ctx context.Context) ([]florist.Product, error)) ([]florist.Product, error) {
	query := s.db.DB().WithContext(ctx).Order("name asc")
	if category != "" {
		query = query.Where("category_name = ?", category)
	}
	if bouquetsOnly {
		query = query.Where("is_bouquet = ?", true)
	}

	var rows []models.CachedProduct
	err := query.Find(&rows).Error
	if err == nil && len(rows) > 0 && s.fresh(rows[0].FetchedAt) {
		return productsFromRows(rows), nil
	}

	products, upstreamErr := fetch(ctx)
	if upstreamErr != nil {
		if err == nil && len(rows) > 0 {
			s.logg.Warn(s.logg.WithField(ctx, "error", upstreamErr.Error()), "catalog refresh failed, serving stale cache")
			return productsFromRows(rows), nil
		}
		return nil, upstreamErr
	}

	s.refreshProducts(ctx, products, category, bouquetsOnly)
	return products, nil
}

// refreshProducts replaces one cached catalog segment, dropping rows the
// upstream no longer returns. The delete and insert run in one transaction
// so a concurrent reader never sees a half-refreshed segment. Best-effort; a
// write failure never blocks serving the upstream response.
func (s *Service) refreshProducts(ctx context.Context, products []florist.Product, category string, bouquetsOnly bool) {
	fetchedAt := s.now().UTC()
	rows := make([]models.CachedProduct, 0, len(products))
	for _, product := range products {
		rows = append(rows, toRow(product, bouquetsOnly, fetchedAt))
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		del := tx.Where("is_bouquet = ?", bouquetsOnly)
		if category != "" {
			del = del.Where("category_name = ?", category)
		}
		if err := del.Delete(&models.CachedProduct{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	})
	if err != nil {
		s.logg.Error(ctx, "refreshing catalog cache", err)
	}
}

// upsertProducts refreshes single rows best-effort, leaving the rest of the
// cache untouched.
func (s *Service) upsertProducts(ctx context.Context, products []florist.Product, isBouquet bool) {
	if len(products) == 0 {
		return
	}
	rows := make([]models.CachedProduct, 0, len(products))
	fetchedAt := s.now().UTC()
	for _, product := range products {
		rows = append(rows, toRow(product, isBouquet, fetchedAt))
	}
	err := s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		s.logg.Error(ctx, "refreshing catalog cache", err)
	}
}

func (s *Service) upsertCategories(ctx context.Context, categories []types.Category) {
	if len(categories) == 0 {
		return
	}
	rows := make([]models.CachedCategory, 0, len(categories))
	fetchedAt := s.now().UTC()
	for _, category := range categories {
		id := category.ID
		if id == "" {
			id = category.Name
		}
		rows = append(rows, models.CachedCategory{
			ID:          id,
			Name:        category.Name,
			Description: category.Description,
			Image:       category.Image,
			IsActive:    category.IsActive,
			FetchedAt:   fetchedAt,
		})
	}
	err := s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		s.logg.Error(ctx, "refreshing category cache", err)
	}
}

func (s *Service) fresh(fetchedAt time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(fetchedAt) < s.ttl
}

func toRow(product florist.Product, isBouquet bool, fetchedAt time.Time) models.CachedProduct {
	return models.CachedProduct{
		ID:           product.ID.String(),
		Name:         product.Name,
		Description:  product.Description,
		PriceCents:   product.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Image:        product.ImageRef(),
		CategoryKind: string(product.Category.Kind),
		CategoryID:   product.Category.ID,
		CategoryName: product.Category.Name,
		InStock:      product.InStock,
		IsBouquet:    isBouquet,
		Tags:         product.Tags,
		FetchedAt:    fetchedAt,
	}
}

func fromRow(row models.CachedProduct) florist.Product {
	category := types.Category{
		Kind: types.CategoryKind(row.CategoryKind),
		ID:   row.CategoryID,
		Name: row.CategoryName,
	}
	if category.Kind == "" {
		category = types.NamedCategory(row.CategoryName)
	}
	return florist.Product{
		ID:          florist.ID(row.ID),
		Name:        row.Name,
		Description: row.Description,
		Price:       decimal.NewFromInt(row.PriceCents).Div(decimal.NewFromInt(100)),
		Image:       row.Image,
		Category:    category,
		InStock:     row.InStock,
		Tags:        row.Tags,
	}
}

func productsFromRows(rows []models.CachedProduct) []florist.Product {
	products := make([]florist.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, fromRow(row))
	}
	return products
}

func categoriesFromRows(rows []models.CachedCategory) []types.Category {
	categories := make([]types.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, types.Category{
			Kind:        types.CategoryKindStructured,
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Image:       row.Image,
			IsActive:    row.IsActive,
		})
	}
	return categories
}
