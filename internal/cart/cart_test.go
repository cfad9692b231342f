package cart

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourflorist/storefront/internal/pricing"
	"github.com/yourflorist/storefront/pkg/config"
	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
)

type fakeStore struct {
	data    map[string][]byte
	setErr  error
	getErr  error
	setKeys []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = encoded
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeStore) GetJSON(_ context.Context, key string, dest any) error {
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return kv.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) CartKey(sessionID string) string      { return "cart:" + sessionID }
func (f *fakeStore) PromotionKey(sessionID string) string { return "promo:" + sessionID }
func (f *fakeStore) SessionTTL() time.Duration            { return time.Hour }

type fakePromotions struct {
	promo *florist.Promotion
	err   error
}

func (f *fakePromotions) PromotionByCode(context.Context, string) (*florist.Promotion, error) {
	return f.promo, f.err
}

func testService(t *testing.T, store *fakeStore, promotions promotionSource) *Service {
	t.Helper()
	policy, err := pricing.NewPolicy(config.PricingConfig{ShippingFlatFee: "9.99", TaxRate: "0.08"})
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(store, promotions, policy, logg, nil)
}

func snapshot(id, price string) ProductSnapshot {
	return ProductSnapshot{ID: id, Name: "Bouquet " + id, Price: decimal.RequireFromString(price), InStock: true}
}

func TestAddItemMergesByProductID(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	view, err := svc.AddItem(ctx, "s1", snapshot("p1", "20.00"), 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	view, err = svc.AddItem(ctx, "s1", snapshot("p1", "20.00"), 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Totals.Subtotal.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, view.Totals.GrandTotal.Equal(decimal.RequireFromString("53.19")))
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	svc := testService(t, newFakeStore(), &fakePromotions{})

	view, err := svc.AddItem(context.Background(), "s1", snapshot("p1", "5.00"), 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
}

func TestAddItemRequiresProductID(t *testing.T) {
	svc := testService(t, newFakeStore(), &fakePromotions{})

	_, err := svc.AddItem(context.Background(), "s1", ProductSnapshot{}, 1)
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", snapshot("p1", "10.00"), 2)
	require.NoError(t, err)

	view, err := svc.SetQuantity(ctx, "s1", "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Totals.Shipping.IsZero())
}

func TestRemoveItemUnknownIDIsNoOp(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", snapshot("p1", "10.00"), 1)
	require.NoError(t, err)
	persistsBefore := len(store.setKeys)

	view, err := svc.RemoveItem(ctx, "s1", "missing")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, persistsBefore, len(store.setKeys))
}

func TestClearKeepsPromotion(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", snapshot("p1", "20.00"), 2)
	require.NoError(t, err)
	_, err = svc.ApplyPromotion(ctx, "s1", &Promotion{ID: "1", Code: "SPRING10", DiscountPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	view, err := svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	require.NotNil(t, view.Promotion)
	assert.Equal(t, "SPRING10", view.Promotion.Code)
}

func TestApplyPromotionNilClears(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	_, err := svc.ApplyPromotion(ctx, "s1", &Promotion{ID: "1", Code: "SPRING10", DiscountPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	view, err := svc.ApplyPromotion(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Nil(t, view.Promotion)
	assert.True(t, view.Totals.Discount.IsZero())
}

func TestApplyPromotionCodeAppliesActivePromotion(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{
		promo: &florist.Promotion{ID: "3", Code: "SPRING10", DiscountPercentage: 10},
	})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", snapshot("p1", "20.00"), 2)
	require.NoError(t, err)

	view, err := svc.ApplyPromotionCode(ctx, "s1", "SPRING10")
	require.NoError(t, err)
	require.NotNil(t, view.Promotion)
	assert.True(t, view.Totals.Discount.Equal(decimal.NewFromInt(4)))
	assert.True(t, view.Totals.GrandTotal.Equal(decimal.RequireFromString("49.19")))
}

func TestApplyPromotionCodeFailureLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	inactive := false
	svc := testService(t, store, &fakePromotions{
		promo: &florist.Promotion{ID: "4", Code: "DEAD", DiscountPercentage: 50, IsActive: &inactive},
	})
	ctx := context.Background()

	_, err := svc.ApplyPromotion(ctx, "s1", &Promotion{ID: "1", Code: "SPRING10", DiscountPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = svc.ApplyPromotionCode(ctx, "s1", "DEAD")
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())

	view, err := svc.View(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, view.Promotion)
	assert.Equal(t, "SPRING10", view.Promotion.Code)
}

func TestApplyPromotionCodeNotFoundBecomesValidation(t *testing.T) {
	svc := testService(t, newFakeStore(), &fakePromotions{
		err: apperrors.New(apperrors.CodeNotFound, "promotion not found"),
	})

	_, err := svc.ApplyPromotionCode(context.Background(), "s1", "NOPE")
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())
}

func TestLoadFailOpenOnCorruptState(t *testing.T) {
	store := newFakeStore()
	store.data["cart:s1"] = []byte("{not json")
	svc := testService(t, store, &fakePromotions{})

	view, err := svc.View(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, view.Promotion)
}

func TestPersistedStateRoundTrips(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakePromotions{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", snapshot("p1", "12.50"), 3)
	require.NoError(t, err)
	_, err = svc.ApplyPromotion(ctx, "s1", &Promotion{ID: "2", Code: "TEN", DiscountPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// A fresh service over the same store sees identical state, and reading
	// again does not disturb it.
	for i := 0; i < 3; i++ {
		reloaded := testService(t, store, &fakePromotions{})
		view, err := reloaded.View(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, view.Items, 1)
		assert.Equal(t, 3, view.Items[0].Quantity)
		require.NotNil(t, view.Promotion)
		assert.Equal(t, "TEN", view.Promotion.Code)
		assert.True(t, view.Totals.GrandTotal.Equal(decimal.RequireFromString("46.49")), "grand total %s", view.Totals.GrandTotal)
	}
}

func TestPersistFailureDoesNotSurface(t *testing.T) {
	store := newFakeStore()
	store.setErr = assert.AnError
	svc := testService(t, store, &fakePromotions{})

	view, err := svc.AddItem(context.Background(), "s1", snapshot("p1", "10.00"), 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}
