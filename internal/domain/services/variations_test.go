package services

import (
	"context"
	"testing"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/cache"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/logger"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localVariation(id int64, parentID int64, sku string) *models.Product {
	return &models.Product{
		ID:           id,
		ParentID:     parentID,
		Type:         models.TypeVariation,
		Status:       "publish",
		SKU:          sku,
		RegularPrice: "10.00",
	}
}

func TestBuildVariationDiff(t *testing.T) {
	local := []*models.Product{
		localVariation(1, 100, "A"),
		localVariation(2, 100, "B"),
		localVariation(3, 100, "C"),
	}
	remote := []woocommerce.Variation{
		{ID: 21, SKU: "B"},
		{ID: 22, SKU: "C"},
		{ID: 23, SKU: "D"},
	}

	diff := BuildVariationDiff(local, remote)

	assert.Equal(t, map[int64]int64{2: 21, 3: 22}, diff.Matched)
	assert.Equal(t, []int64{23}, diff.Delete)
}

func TestBuildVariationDiffOrderInsensitive(t *testing.T) {
	local := []*models.Product{
		localVariation(3, 100, "C"),
		localVariation(1, 100, "A"),
		localVariation(2, 100, "B"),
	}
	remote := []woocommerce.Variation{
		{ID: 23, SKU: "D"},
		{ID: 22, SKU: "C"},
		{ID: 21, SKU: "B"},
	}

	diff := BuildVariationDiff(local, remote)

	assert.Equal(t, map[int64]int64{2: 21, 3: 22}, diff.Matched)
	assert.Equal(t, []int64{23}, diff.Delete)
}

func TestBuildVariationDiffSkipsEmptySKU(t *testing.T) {
	// Вариации без артикула невидимы для сопоставления
	local := []*models.Product{localVariation(1, 100, "")}
	remote := []woocommerce.Variation{{ID: 21, SKU: ""}}

	diff := BuildVariationDiff(local, remote)

	assert.Empty(t, diff.Matched)
	assert.Equal(t, []int64{21}, diff.Delete)
}

func newTestReconciler(t *testing.T, store *fakeStorage) *VariationReconciler {
	t.Helper()
	listCache := cache.NewMemoryCache(time.Minute, time.Minute)
	idCache := cache.NewMemoryCache(time.Hour, time.Hour)
	log := logger.NewNopLogger()
	attributes := NewAttributeResolver(listCache, idCache, time.Minute, time.Hour, log)
	images := NewImageSyncTracker(store, log, false)
	return NewVariationReconciler(store, attributes, images, log, 100)
}

func TestReconcileBuildsBatch(t *testing.T) {
	storage := newFakeStorage()
	parent := &models.Product{ID: 100, Type: models.TypeVariable, SKU: "PARENT"}
	require.NoError(t, storage.SaveProduct(context.Background(), parent))
	require.NoError(t, storage.SaveProduct(context.Background(), localVariation(1, 100, "A")))
	require.NoError(t, storage.SaveProduct(context.Background(), localVariation(2, 100, "B")))

	api := newFakeAPI()
	api.variations = []woocommerce.Variation{
		{ID: 21, SKU: "B"},
		{ID: 23, SKU: "D"},
	}

	r := newTestReconciler(t, storage)
	err := r.Reconcile(context.Background(), api, testStore("https://shop.example.com"), parent, 55, nil)
	require.NoError(t, err)

	require.Len(t, api.batchCalls, 1)
	batch := api.batchCalls[0]

	require.Len(t, batch.Create, 1)
	assert.Equal(t, "A", batch.Create[0]["sku"])
	assert.NotContains(t, batch.Create[0], "id")

	require.Len(t, batch.Update, 1)
	assert.Equal(t, "B", batch.Update[0]["sku"])
	assert.Equal(t, int64(21), batch.Update[0]["id"])

	assert.Equal(t, []int64{23}, batch.Delete)
}

func TestReconcileAbortsOnRemoteListError(t *testing.T) {
	storage := newFakeStorage()
	parent := &models.Product{ID: 100, Type: models.TypeVariable, SKU: "PARENT"}
	require.NoError(t, storage.SaveProduct(context.Background(), parent))
	require.NoError(t, storage.SaveProduct(context.Background(), localVariation(1, 100, "A")))

	api := newFakeAPI()
	api.listVariationsErr = &woocommerce.APIError{StatusCode: 500, Message: "boom"}

	r := newTestReconciler(t, storage)
	err := r.Reconcile(context.Background(), api, testStore("https://shop.example.com"), parent, 55, nil)

	require.Error(t, err)
	assert.Empty(t, api.batchCalls)
}

func TestReconcileSkipsEmptyBatch(t *testing.T) {
	storage := newFakeStorage()
	parent := &models.Product{ID: 100, Type: models.TypeVariable, SKU: "PARENT"}
	require.NoError(t, storage.SaveProduct(context.Background(), parent))

	api := newFakeAPI()

	r := newTestReconciler(t, storage)
	err := r.Reconcile(context.Background(), api, testStore("https://shop.example.com"), parent, 55, nil)

	require.NoError(t, err)
	assert.Empty(t, api.batchCalls)
}

func TestReconcilePaginatesRemoteVariations(t *testing.T) {
	storage := newFakeStorage()
	parent := &models.Product{ID: 100, Type: models.TypeVariable, SKU: "PARENT"}
	require.NoError(t, storage.SaveProduct(context.Background(), parent))

	api := newFakeAPI()
	for i := int64(1); i <= 5; i++ {
		api.variations = append(api.variations, woocommerce.Variation{ID: i, SKU: ""})
	}

	listCache := cache.NewMemoryCache(time.Minute, time.Minute)
	idCache := cache.NewMemoryCache(time.Hour, time.Hour)
	log := logger.NewNopLogger()
	attributes := NewAttributeResolver(listCache, idCache, time.Minute, time.Hour, log)
	images := NewImageSyncTracker(storage, log, false)
	r := NewVariationReconciler(storage, attributes, images, log, 2)

	err := r.Reconcile(context.Background(), api, testStore("https://shop.example.com"), parent, 55, nil)
	require.NoError(t, err)

	// 5 вариаций страницами по 2: три страницы
	assert.Equal(t, 3, api.listVariationsCalls)
	require.Len(t, api.batchCalls, 1)
	assert.Len(t, api.batchCalls[0].Delete, 5)
}
