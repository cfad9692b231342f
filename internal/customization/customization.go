// Package customization lets a shopper rework a bouquet template by
// adjusting per-flower quantities within the template's bounds. Sessions are
// short-lived and keyed per shopper and bouquet in the key-value store.
package customization

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourflorist/storefront/internal/cart"
	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
)

// FlowerLine is one adjustable flower slot in a customization session.
// Quantity always sits inside [MinQuantity, MaxQuantity]; DefaultQuantity is
// the baseline the price delta is measured against.
type FlowerLine struct {
	CompositionID   string          `json:"compositionId"`
	FlowerID        string          `json:"flowerId"`
	FlowerName      string          `json:"flowerName"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	MinQuantity     int             `json:"minQuantity"`
	MaxQuantity     int             `json:"maxQuantity"`
	DefaultQuantity int             `json:"defaultQuantity"`
	Quantity        int             `json:"quantity"`
}

// Session is a shopper's in-progress bouquet customization.
type Session struct {
	BouquetID   string          `json:"bouquetId"`
	BouquetName string          `json:"bouquetName"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Image       string          `json:"image,omitempty"`
	Flowers     []FlowerLine    `json:"flowers"`
	StartedAt   time.Time       `json:"startedAt"`
}

// CustomPrice is the template base price plus the per-flower deltas from the
// baseline, floored at zero. Adjustment order never changes the result.
func (s *Session) CustomPrice() decimal.Decimal {
	price := s.BasePrice
	for _, flower := range s.Flowers {
		delta := decimal.NewFromInt(int64(flower.Quantity - flower.DefaultQuantity))
		price = price.Add(flower.UnitPrice.Mul(delta))
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price.Round(2)
}

type bouquetSource interface {
	BouquetByID(ctx context.Context, id string) (*florist.Bouquet, error)
	FlowerByID(ctx context.Context, id string) (*florist.Flower, error)
}

type keyValueStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	CustomizationKey(sessionID, bouquetID string) string
	CustomizationTTL() time.Duration
}

// Service runs customization sessions against bouquet templates.
type Service struct {
	catalog bouquetSource
	store   keyValueStore
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the customization service.
func NewService(catalog bouquetSource, store keyValueStore, logg *logger.Logger) *Service {
	return &Service{
		catalog: catalog,
		store:   store,
		logg:    logg,
		now:     time.Now,
	}
}

// Start opens a session for the bouquet: every active composition is seeded
// at its minimum quantity with the flower's current price resolved upstream.
// Restarting an existing session resets it to the template baseline.
func (s *Service) Start(ctx context.Context, sessionID, bouquetID string) (*Session, error) {
	bouquet, err := s.catalog.BouquetByID(ctx, bouquetID)
	if err != nil {
		return nil, err
	}

	session := &Session{
		BouquetID:   bouquet.ID.String(),
		BouquetName: bouquet.Name,
		BasePrice:   bouquet.Price,
		Image:       bouquet.ImageURL,
		Flowers:     make([]FlowerLine, 0, len(bouquet.Compositions)),
		StartedAt:   s.now().UTC(),
	}
	for _, comp := range bouquet.Compositions {
		if !comp.IsActive {
			continue
		}
		line := FlowerLine{
			CompositionID: comp.ID.String(),
			FlowerID:      comp.FlowerID.String(),
			FlowerName:    "Unknown flower",
			UnitPrice:     decimal.Zero,
			MaxQuantity:   comp.MaxQuantity,
		}
		// A failed price lookup never blocks the session; the flower stays
		// adjustable at a zero unit price.
		flower, err := s.catalog.FlowerByID(ctx, comp.FlowerID.String())
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "flower lookup failed, seeding at zero price")
		} else {
			line.FlowerName = flower.Name
			line.UnitPrice = flower.Price
		}
		seed := comp.MinQuantity
		if seed < 0 {
			seed = 0
		}
		line.MinQuantity = seed
		line.DefaultQuantity = seed
		line.Quantity = seed
		session.Flowers = append(session.Flowers, line)
	}

	if err := s.persist(ctx, sessionID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the shopper's session for the bouquet.
func (s *Service) Get(ctx context.Context, sessionID, bouquetID string) (*Session, error) {
	var session Session
	err := s.store.GetJSON(ctx, s.store.CustomizationKey(sessionID, bouquetID), &session)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "no customization in progress for this bouquet")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading customization session")
	}
	return &session, nil
}

// AdjustQuantity sets a flower's quantity, clamped to the composition's
// bounds. Out-of-range requests clamp silently; only an unknown flower id is
// an error.
func (s *Service) AdjustQuantity(ctx context.Context, sessionID, bouquetID, flowerID string, quantity int) (*Session, error) {
	session, err := s.Get(ctx, sessionID, bouquetID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range session.Flowers {
		if session.Flowers[i].FlowerID != flowerID {
			continue
		}
		found = true
		session.Flowers[i].Quantity = clamp(quantity, session.Flowers[i].MinQuantity, session.Flowers[i].MaxQuantity)
		break
	}
	if !found {
		return nil, apperrors.New(apperrors.CodeValidation, "flower is not part of this bouquet")
	}

	if err := s.persist(ctx, sessionID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Snapshot converts the session into a cart product carrying the custom
// price as an override of the template price.
func (s *Service) Snapshot(ctx context.Context, sessionID, bouquetID string) (cart.ProductSnapshot, error) {
	session, err := s.Get(ctx, sessionID, bouquetID)
	if err != nil {
		return cart.ProductSnapshot{}, err
	}
	return cart.ProductSnapshot{
		ID:      session.BouquetID,
		Name:    session.BouquetName,
		Price:   session.CustomPrice(),
		Image:   session.Image,
		InStock: true,
	}, nil
}

// Discard drops the session. Discarding a session that never started is a
// no-op.
func (s *Service) Discard(ctx context.Context, sessionID, bouquetID string) error {
	if err := s.store.Del(ctx, s.store.CustomizationKey(sessionID, bouquetID)); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "discarding customization session")
	}
	return nil
}

func (s *Service) persist(ctx context.Context, sessionID string, session *Session) error {
	key := s.store.CustomizationKey(sessionID, session.BouquetID)
	if err := s.store.SetJSON(ctx, key, session, s.store.CustomizationTTL()); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "saving customization session")
	}
	return nil
}

func clamp(value, low, high int) int {
	if high < low {
		high = low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
