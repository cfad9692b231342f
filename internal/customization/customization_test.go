package customization

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
)

type fakeCatalog struct {
	bouquet    *florist.Bouquet
	bouquetErr error
	flowers    map[string]*florist.Flower
	flowerErr  error
}

func (f *fakeCatalog) BouquetByID(context.Context, string) (*florist.Bouquet, error) {
	return f.bouquet, f.bouquetErr
}

func (f *fakeCatalog) FlowerByID(_ context.Context, id string) (*florist.Flower, error) {
	if f.flowerErr != nil {
		return nil, f.flowerErr
	}
	flower, ok := f.flowers[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "flower not found")
	}
	return flower, nil
}

type fakeStore struct {
	data map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = encoded
	return nil
}

func (f *fakeStore) GetJSON(_ context.Context, key string, dest any) error {
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

func (f *fakeStore) CustomizationKey(sessionID, bouquetID string) string {
	return "custom:" + sessionID + ":" + bouquetID
}

func (f *fakeStore) CustomizationTTL() time.Duration { return 2 * time.Hour }

func newTestService(catalog bouquetSource, store keyValueStore) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(catalog, store, logg)
}

func roseBouquet() *fakeCatalog {
	return &fakeCatalog{
		bouquet: &florist.Bouquet{
			ID:       "9",
			Name:     "Garden Mix",
			Price:    decimal.RequireFromString("15.00"),
			ImageURL: "garden.jpg",
			IsActive: true,
			Compositions: []florist.Composition{
				{ID: "c1", FlowerID: "f1", MinQuantity: 3, MaxQuantity: 10, IsActive: true},
				{ID: "c2", FlowerID: "f2", MinQuantity: 1, MaxQuantity: 5, IsActive: true},
				{ID: "c3", FlowerID: "f3", MinQuantity: 1, MaxQuantity: 2, IsActive: false},
			},
		},
		flowers: map[string]*florist.Flower{
			"f1": {ID: "f1", Name: "Rose", Price: decimal.RequireFromString("2.00")},
			"f2": {ID: "f2", Name: "Lily", Price: decimal.RequireFromString("3.50")},
		},
	}
}

func TestStartSeedsAtMinimumQuantities(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())

	session, err := svc.Start(context.Background(), "s1", "9")
	require.NoError(t, err)

	// The inactive composition is skipped.
	require.Len(t, session.Flowers, 2)
	assert.Equal(t, 3, session.Flowers[0].Quantity)
	assert.Equal(t, 3, session.Flowers[0].DefaultQuantity)
	assert.Equal(t, 1, session.Flowers[1].Quantity)

	// At the baseline the custom price equals the template price.
	assert.True(t, session.CustomPrice().Equal(decimal.RequireFromString("15.00")))
}

func TestAdjustQuantityChangesPrice(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1", "9")
	require.NoError(t, err)

	// Two extra roses at 2.00 each on a 15.00 base.
	session, err := svc.AdjustQuantity(ctx, "s1", "9", "f1", 5)
	require.NoError(t, err)
	assert.True(t, session.CustomPrice().Equal(decimal.RequireFromString("19.00")), "price %s", session.CustomPrice())
}

func TestAdjustQuantityClampsToBounds(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1", "9")
	require.NoError(t, err)

	session, err := svc.AdjustQuantity(ctx, "s1", "9", "f1", 99)
	require.NoError(t, err)
	assert.Equal(t, 10, session.Flowers[0].Quantity)

	session, err = svc.AdjustQuantity(ctx, "s1", "9", "f1", -4)
	require.NoError(t, err)
	assert.Equal(t, 3, session.Flowers[0].Quantity)
}

func TestAdjustQuantityOrderIndependent(t *testing.T) {
	ctx := context.Background()

	first := newTestService(roseBouquet(), newFakeStore())
	_, err := first.Start(ctx, "s1", "9")
	require.NoError(t, err)
	_, err = first.AdjustQuantity(ctx, "s1", "9", "f1", 5)
	require.NoError(t, err)
	sessionA, err := first.AdjustQuantity(ctx, "s1", "9", "f2", 3)
	require.NoError(t, err)

	second := newTestService(roseBouquet(), newFakeStore())
	_, err = second.Start(ctx, "s1", "9")
	require.NoError(t, err)
	_, err = second.AdjustQuantity(ctx, "s1", "9", "f2", 3)
	require.NoError(t, err)
	sessionB, err := second.AdjustQuantity(ctx, "s1", "9", "f1", 5)
	require.NoError(t, err)

	assert.True(t, sessionA.CustomPrice().Equal(sessionB.CustomPrice()))
}

func TestAdjustQuantityUnknownFlower(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1", "9")
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, "s1", "9", "unknown", 2)
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())
}

func TestGetWithoutSessionIsNotFound(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())

	_, err := svc.Get(context.Background(), "s1", "9")
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeNotFound, coded.Code())
}

func TestStartSeedsAtZeroPriceWhenFlowerLookupFails(t *testing.T) {
	catalog := roseBouquet()
	catalog.flowerErr = apperrors.New(apperrors.CodeUpstream, "florist api returned 500")
	svc := newTestService(catalog, newFakeStore())

	// Price lookups failing must not block the session. Every flower still
	// gets a line, adjustable at a zero unit price.
	session, err := svc.Start(context.Background(), "s1", "9")
	require.NoError(t, err)
	require.Len(t, session.Flowers, 2)
	for _, flower := range session.Flowers {
		assert.True(t, flower.UnitPrice.IsZero())
		assert.Equal(t, "Unknown flower", flower.FlowerName)
	}
	assert.Equal(t, "f1", session.Flowers[0].FlowerID)

	// With every unit price at zero, adjustments leave the base price alone.
	adjusted, err := svc.AdjustQuantity(context.Background(), "s1", "9", "f1", 5)
	require.NoError(t, err)
	assert.True(t, adjusted.CustomPrice().Equal(decimal.RequireFromString("15.00")))
}

func TestSnapshotCarriesCustomPrice(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1", "9")
	require.NoError(t, err)
	_, err = svc.AdjustQuantity(ctx, "s1", "9", "f1", 5)
	require.NoError(t, err)

	product, err := svc.Snapshot(ctx, "s1", "9")
	require.NoError(t, err)
	assert.Equal(t, "9", product.ID)
	assert.Equal(t, "Garden Mix", product.Name)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("19.00")))
	assert.True(t, product.InStock)
}

func TestCustomPriceFloorsAtZero(t *testing.T) {
	session := &Session{
		BasePrice: decimal.RequireFromString("1.00"),
		Flowers: []FlowerLine{
			{FlowerID: "f1", UnitPrice: decimal.RequireFromString("2.00"), DefaultQuantity: 3, Quantity: 1},
		},
	}
	assert.True(t, session.CustomPrice().IsZero())
}

func TestDiscardThenGetIsNotFound(t *testing.T) {
	svc := newTestService(roseBouquet(), newFakeStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1", "9")
	require.NoError(t, err)
	require.NoError(t, svc.Discard(ctx, "s1", "9"))

	_, err = svc.Get(ctx, "s1", "9")
	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeNotFound, coded.Code())
}
