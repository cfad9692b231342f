package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourflorist/storefront/internal/cart"
	"github.com/yourflorist/storefront/internal/pricing"
	"github.com/yourflorist/storefront/pkg/config"
	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/logger"
)

type fakePlacer struct {
	placed      *florist.OrderInput
	placeErr    error
	paymentURL  string
	paymentErr  error
	order       *florist.Order
	historyErr  error
	historyList []florist.Order
}

func (f *fakePlacer) PlaceOrder(_ context.Context, _ string, input florist.OrderInput) (*florist.Order, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = &input
	return f.order, nil
}

func (f *fakePlacer) StartPayment(context.Context, string, string) (string, error) {
	return f.paymentURL, f.paymentErr
}

func (f *fakePlacer) Orders(context.Context, string) ([]florist.Order, error) {
	return f.historyList, f.historyErr
}

func (f *fakePlacer) OrderByID(context.Context, string, string) (*florist.Order, error) {
	if len(f.historyList) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	return &f.historyList[0], nil
}

type fakeCart struct {
	view    *cart.View
	cleared bool
}

func (f *fakeCart) View(context.Context, string) (*cart.View, error) { return f.view, nil }

func (f *fakeCart) Clear(context.Context, string) (*cart.View, error) {
	f.cleared = true
	empty := *f.view
	empty.Items = []cart.LineItem{}
	return &empty, nil
}

type fakeAuth struct {
	token    string
	tokenErr error
	user     *florist.User
}

func (f *fakeAuth) Token(context.Context, string) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeAuth) CurrentUser(context.Context, string) (*florist.User, error) {
	return f.user, nil
}

func cartWithOneLine(t *testing.T) *cart.View {
	t.Helper()
	policy, err := pricing.NewPolicy(config.PricingConfig{ShippingFlatFee: "9.99", TaxRate: "0.08"})
	require.NoError(t, err)

	items := []cart.LineItem{{
		Product:  cart.ProductSnapshot{ID: "9", Name: "Garden Mix", Price: decimal.RequireFromString("20.00"), InStock: true},
		Quantity: 2,
	}}
	promo := &cart.Promotion{ID: "3", Code: "SPRING10", DiscountPercentage: decimal.NewFromInt(10)}
	return &cart.View{
		Items:     items,
		Promotion: promo,
		Totals:    policy.Totals(cart.Lines(items), promo.DiscountPercentage),
	}
}

func testService(api *fakePlacer, cartSvc *fakeCart, auth *fakeAuth) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(api, cartSvc, auth, logg)
}

func shippingAddress() Address {
	return Address{Street: "1 Garden Way", City: "Bloomfield", State: "OR", ZipCode: "97001", Country: "USA"}
}

func TestPlaceOrderBuildsContractAndClearsCart(t *testing.T) {
	api := &fakePlacer{
		order:      &florist.Order{ID: "55", Status: "PENDING"},
		paymentURL: "https://pay.example.com/session/55",
	}
	cartSvc := &fakeCart{view: cartWithOneLine(t)}
	auth := &fakeAuth{token: "tok-1", user: &florist.User{ID: "12", Name: "Iris"}}
	svc := testService(api, cartSvc, auth)

	result, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	require.NoError(t, err)
	assert.Equal(t, "55", result.Order.ID.String())
	assert.Equal(t, "https://pay.example.com/session/55", result.RedirectURL)
	assert.True(t, cartSvc.cleared)

	require.NotNil(t, api.placed)
	assert.Equal(t, "12", api.placed.UserID.String())
	require.NotNil(t, api.placed.PromotionID)
	assert.Equal(t, "3", api.placed.PromotionID.String())
	assert.InDelta(t, 49.19, api.placed.TotalPrice, 0.001)
	assert.Equal(t, "1 Garden Way, Bloomfield, OR, 97001, USA", api.placed.ShippingAddress)
	require.Len(t, api.placed.OrderItems, 1)
	assert.Equal(t, "9", api.placed.OrderItems[0].BouquetID.String())
	assert.InDelta(t, 40.0, api.placed.OrderItems[0].SubTotal, 0.001)
	assert.True(t, api.placed.OrderItems[0].IsActive)
}

func TestPlaceOrderEmptyCartRejected(t *testing.T) {
	cartSvc := &fakeCart{view: &cart.View{Items: []cart.LineItem{}}}
	auth := &fakeAuth{token: "tok-1", user: &florist.User{ID: "12"}}
	svc := testService(&fakePlacer{}, cartSvc, auth)

	_, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())
	assert.False(t, cartSvc.cleared)
}

func TestPlaceOrderRequiresSignIn(t *testing.T) {
	auth := &fakeAuth{tokenErr: apperrors.New(apperrors.CodeUnauthorized, "not signed in")}
	svc := testService(&fakePlacer{}, &fakeCart{view: cartWithOneLine(t)}, auth)

	_, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeUnauthorized, coded.Code())
}

func TestPlaceOrderUpstreamFailureKeepsCart(t *testing.T) {
	api := &fakePlacer{placeErr: apperrors.New(apperrors.CodeUpstream, "florist api returned 500")}
	cartSvc := &fakeCart{view: cartWithOneLine(t)}
	auth := &fakeAuth{token: "tok-1", user: &florist.User{ID: "12"}}
	svc := testService(api, cartSvc, auth)

	_, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	require.Error(t, err)
	assert.False(t, cartSvc.cleared)
}

func TestPlaceOrderPaymentFailureStillSucceeds(t *testing.T) {
	api := &fakePlacer{
		order:      &florist.Order{ID: "55", Status: "PENDING"},
		paymentErr: apperrors.New(apperrors.CodeUpstream, "payment provider down"),
	}
	cartSvc := &fakeCart{view: cartWithOneLine(t)}
	auth := &fakeAuth{token: "tok-1", user: &florist.User{ID: "12"}}
	svc := testService(api, cartSvc, auth)

	result, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	require.NoError(t, err)
	assert.Empty(t, result.RedirectURL)
	assert.True(t, cartSvc.cleared)
}

func TestPlaceOrderNonNumericProductRejected(t *testing.T) {
	view := cartWithOneLine(t)
	view.Items[0].Product.ID = "custom-abc"
	cartSvc := &fakeCart{view: view}
	auth := &fakeAuth{token: "tok-1", user: &florist.User{ID: "12"}}
	svc := testService(&fakePlacer{}, cartSvc, auth)

	_, err := svc.PlaceOrder(context.Background(), "s1", shippingAddress())
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())
	assert.False(t, cartSvc.cleared)
}

func TestOrdersRequireSignIn(t *testing.T) {
	auth := &fakeAuth{tokenErr: apperrors.New(apperrors.CodeUnauthorized, "not signed in")}
	svc := testService(&fakePlacer{}, &fakeCart{}, auth)

	_, err := svc.Orders(context.Background(), "s1")
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeUnauthorized, coded.Code())
}
