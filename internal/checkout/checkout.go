// Package checkout turns a session's cart into an upstream order and hands
// the shopper off to the payment provider.
package checkout

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourflorist/storefront/internal/cart"
	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/logger"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, token string, input florist.OrderInput) (*florist.Order, error)
	StartPayment(ctx context.Context, token, orderID string) (string, error)
	Orders(ctx context.Context, token string) ([]florist.Order, error)
	OrderByID(ctx context.Context, token, id string) (*florist.Order, error)
}

type cartAccess interface {
	View(ctx context.Context, sessionID string) (*cart.View, error)
	Clear(ctx context.Context, sessionID string) (*cart.View, error)
}

type authAccess interface {
	Token(ctx context.Context, sessionID string) (string, error)
	CurrentUser(ctx context.Context, sessionID string) (*florist.User, error)
}

// Address is the shipping destination collected at checkout.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

func (a Address) String() string {
	return strings.Join([]string{a.Street, a.City, a.State, a.ZipCode, a.Country}, ", ")
}

// Result is the outcome of a completed checkout. RedirectURL is empty when
// the payment provider could not be reached; the order still exists
// upstream and appears in the shopper's history.
type Result struct {
	Order       *florist.Order `json:"order"`
	RedirectURL string         `json:"redirectUrl,omitempty"`
}

// Service drives order placement and payment hand-off.
type Service struct {
	api  orderPlacer
	cart cartAccess
	auth authAccess
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the checkout service.
func NewService(api orderPlacer, cartSvc cartAccess, auth authAccess, logg *logger.Logger) *Service {
	return &Service{
		api:  api,
		cart: cartSvc,
		auth: auth,
		logg: logg,
		now:  time.Now,
	}
}

// PlaceOrder submits the session's cart as an order. The cart survives any
// failure untouched; only a placed order clears the line items. The applied
// promotion stays in place either way.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, address Address) (*Result, error) {
	token, err := s.auth.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.auth.CurrentUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view, err := s.cart.View(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "cart is empty")
	}

	input, err := s.buildOrder(user, view, address)
	if err != nil {
		return nil, err
	}

	order, err := s.api.PlaceOrder(ctx, token, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.cart.Clear(ctx, sessionID); err != nil {
		s.logg.Error(ctx, "clearing cart after order placement", err)
	}

	result := &Result{Order: order}
	redirect, err := s.api.StartPayment(ctx, token, order.ID.String())
	if err != nil {
		// The order exists; the shopper can retry payment from history.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "starting payment failed")
		return result, nil
	}
	result.RedirectURL = redirect
	return result, nil
}

// Orders returns the shopper's order history.
func (s *Service) Orders(ctx context.Context, sessionID string) ([]florist.Order, error) {
	token, err := s.auth.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.api.Orders(ctx, token)
}

// OrderByID returns one order-history entry.
func (s *Service) OrderByID(ctx context.Context, sessionID, orderID string) (*florist.Order, error) {
	token, err := s.auth.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.api.OrderByID(ctx, token, orderID)
}

// buildOrder shapes the upstream order contract: numeric ids, two-decimal
// money and one precomputed subtotal per line.
func (s *Service) buildOrder(user *florist.User, view *cart.View, address Address) (florist.OrderInput, error) {
	userID, err := numericID(user.ID.String())
	if err != nil {
		return florist.OrderInput{}, apperrors.New(apperrors.CodeInternal, "shopper account has a non-numeric id")
	}

	items := make([]florist.OrderItemInput, 0, len(view.Items))
	for _, item := range view.Items {
		bouquetID, err := numericID(item.Product.ID)
		if err != nil {
			return florist.OrderInput{}, apperrors.New(apperrors.CodeValidation, "cart contains a product that cannot be ordered")
		}
		subTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		items = append(items, florist.OrderItemInput{
			BouquetID:           bouquetID,
			Quantity:            item.Quantity,
			SubTotal:            subTotal.InexactFloat64(),
			IsActive:            true,
			OrderBouquetFlowers: []florist.OrderBouquet{},
		})
	}

	var promotionID *json.Number
	if view.Promotion != nil && view.Promotion.ID != "" {
		id, err := numericID(view.Promotion.ID)
		if err != nil {
			return florist.OrderInput{}, apperrors.New(apperrors.CodeValidation, "applied promotion cannot be ordered")
		}
		promotionID = &id
	}

	return florist.OrderInput{
		UserID:          userID,
		PromotionID:     promotionID,
		TotalPrice:      view.Totals.GrandTotal.InexactFloat64(),
		ShippingAddress: address.String(),
		CreatedAt:       s.now().UTC().Format(time.RFC3339),
		OrderItems:      items,
	}, nil
}

func numericID(id string) (json.Number, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", err
	}
	return json.Number(id), nil
}
