// Package cart holds the per-session shopping cart: ordered line items plus
// an optionally applied promotion, persisted to the key-value store after
// every mutation so a returning shopper finds the cart they left.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourflorist/storefront/internal/pricing"
	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/metrics"
)

// ProductSnapshot is the slice of a catalog product the cart keeps. A
// customized bouquet carries its computed price here, overriding the
// template price.
type ProductSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
	InStock  bool            `json:"inStock"`
}

// LineItem is one cart row. Quantity is always at least one; a decrement to
// zero removes the row instead.
type LineItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// Promotion is the applied discount, replaced or cleared as a whole unit.
type Promotion struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

// View is a cart snapshot plus its computed totals, ready for the API layer.
type View struct {
	Items     []LineItem     `json:"items"`
	Promotion *Promotion     `json:"promotion,omitempty"`
	Totals    pricing.Totals `json:"totals"`
}

type keyValueStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
	PromotionKey(sessionID string) string
	SessionTTL() time.Duration
}

type promotionSource interface {
	PromotionByCode(ctx context.Context, code string) (*florist.Promotion, error)
}

// Service owns cart state for shopper sessions. It is stateless between
// calls; every operation loads, mutates and persists the session's cart.
type Service struct {
	store      keyValueStore
	promotions promotionSource
	policy     pricing.Policy
	logg       *logger.Logger
	metrics    *metrics.CartMetrics
}

// NewService wires the cart service. metrics may be nil.
func NewService(store keyValueStore, promotions promotionSource, policy pricing.Policy, logg *logger.Logger, cartMetrics *metrics.CartMetrics) *Service {
	return &Service{
		store:      store,
		promotions: promotions,
		policy:     policy,
		logg:       logg,
		metrics:    cartMetrics,
	}
}

// View returns the current cart with totals.
func (s *Service) View(ctx context.Context, sessionID string) (*View, error) {
	items, promo := s.load(ctx, sessionID)
	return s.view(items, promo), nil
}

// AddItem merges the product into the cart: an existing line for the same
// product id gains quantity, otherwise a new line is appended. Quantities
// below one count as one.
func (s *Service) AddItem(ctx context.Context, sessionID string, product ProductSnapshot, quantity int) (*View, error) {
	if strings.TrimSpace(product.ID) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	items, promo := s.load(ctx, sessionID)
	merged := false
	for i := range items {
		if items[i].Product.ID == product.ID {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, LineItem{Product: product, Quantity: quantity})
	}

	s.persistItems(ctx, sessionID, items)
	s.metrics.IncMutation("add_item")
	return s.view(items, promo), nil
}

// RemoveItem drops the line for the product id; a missing line is a no-op.
func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (*View, error) {
	items, promo := s.load(ctx, sessionID)

	kept := items[:0]
	removed := false
	for _, item := range items {
		if item.Product.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if removed {
		s.persistItems(ctx, sessionID, kept)
		s.metrics.IncMutation("remove_item")
	}
	return s.view(kept, promo), nil
}

// SetQuantity replaces a line's quantity. Zero or below removes the line; an
// unknown product id is a no-op.
func (s *Service) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*View, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, productID)
	}

	items, promo := s.load(ctx, sessionID)
	changed := false
	for i := range items {
		if items[i].Product.ID == productID {
			changed = items[i].Quantity != quantity
			items[i].Quantity = quantity
			break
		}
	}
	if changed {
		s.persistItems(ctx, sessionID, items)
		s.metrics.IncMutation("set_quantity")
	}
	return s.view(items, promo), nil
}

// Clear empties the line items. The applied promotion intentionally
// survives a clear; see ApplyPromotion for removing it.
func (s *Service) Clear(ctx context.Context, sessionID string) (*View, error) {
	_, promo := s.load(ctx, sessionID)
	s.persistItems(ctx, sessionID, []LineItem{})
	s.metrics.IncMutation("clear")
	return s.view(nil, promo), nil
}

// ApplyPromotion replaces the applied promotion wholesale; nil clears it.
func (s *Service) ApplyPromotion(ctx context.Context, sessionID string, promo *Promotion) (*View, error) {
	if promo != nil {
		promo.DiscountPercentage = clampPercentage(promo.DiscountPercentage)
	}

	items, _ := s.load(ctx, sessionID)
	s.persistPromotion(ctx, sessionID, promo)
	if promo == nil {
		s.metrics.IncPromotion("cleared")
	} else {
		s.metrics.IncPromotion("applied")
	}
	return s.view(items, promo), nil
}

// ApplyPromotionCode looks the code up against the florist API and applies
// the promotion it names. A failed lookup or an inactive promotion leaves
// the previously applied promotion untouched.
func (s *Service) ApplyPromotionCode(ctx context.Context, sessionID, code string) (*View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "promotion code is required")
	}

	upstream, err := s.promotions.PromotionByCode(ctx, code)
	if err != nil {
		s.metrics.IncPromotion("rejected")
		if coded := apperrors.As(err); coded != nil && coded.Code() == apperrors.CodeNotFound {
			return nil, apperrors.New(apperrors.CodeValidation, "invalid promotion code")
		}
		return nil, err
	}
	if upstream == nil || !upstream.Active() {
		s.metrics.IncPromotion("rejected")
		return nil, apperrors.New(apperrors.CodeValidation, "invalid or inactive promotion code")
	}

	return s.ApplyPromotion(ctx, sessionID, &Promotion{
		ID:                 upstream.ID.String(),
		Code:               upstream.Code,
		DiscountPercentage: decimal.NewFromFloat(upstream.DiscountPercentage),
	})
}

// Lines converts the cart rows into pricing input.
func Lines(items []LineItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{UnitPrice: item.Product.Price, Quantity: item.Quantity})
	}
	return lines
}

func (s *Service) view(items []LineItem, promo *Promotion) *View {
	if items == nil {
		items = []LineItem{}
	}
	pct := decimal.Zero
	if promo != nil {
		pct = promo.DiscountPercentage
	}
	return &View{
		Items:     items,
		Promotion: promo,
		Totals:    s.policy.Totals(Lines(items), pct),
	}
}

// load restores the session's cart from the key-value store. Missing or
// malformed state degrades to an empty cart without surfacing an error.
func (s *Service) load(ctx context.Context, sessionID string) ([]LineItem, *Promotion) {
	var items []LineItem
	err := s.store.GetJSON(ctx, s.store.CartKey(sessionID), &items)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		items = nil
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "restoring cart items failed, starting empty")
		items = nil
	}
	items = sanitizeItems(items)

	var promo Promotion
	err = s.store.GetJSON(ctx, s.store.PromotionKey(sessionID), &promo)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return items, nil
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "restoring promotion failed, starting without one")
		return items, nil
	}
	if promo.Code == "" && promo.ID == "" {
		return items, nil
	}
	promo.DiscountPercentage = clampPercentage(promo.DiscountPercentage)
	return items, &promo
}

func (s *Service) persistItems(ctx context.Context, sessionID string, items []LineItem) {
	if items == nil {
		items = []LineItem{}
	}
	if err := s.store.SetJSON(ctx, s.store.CartKey(sessionID), items, s.store.SessionTTL()); err != nil {
		s.logg.Error(ctx, "persisting cart items", err)
	}
}

func (s *Service) persistPromotion(ctx context.Context, sessionID string, promo *Promotion) {
	key := s.store.PromotionKey(sessionID)
	if promo == nil {
		if err := s.store.Del(ctx, key); err != nil {
			s.logg.Error(ctx, "clearing persisted promotion", err)
		}
		return
	}
	if err := s.store.SetJSON(ctx, key, promo, s.store.SessionTTL()); err != nil {
		s.logg.Error(ctx, "persisting promotion", err)
	}
}

func sanitizeItems(items []LineItem) []LineItem {
	kept := items[:0]
	for _, item := range items {
		if item.Product.ID == "" || item.Quantity < 1 {
			continue
		}
		if item.Product.Price.IsNegative() {
			item.Product.Price = decimal.Zero
		}
		kept = append(kept, item)
	}
	return kept
}

func clampPercentage(pct decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
