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

// testSyncService собирает оркестратор на фейках.
// Фабрика клиентов отдает фейк по идентификатору магазина.
func testSyncService(storage *fakeStorage, apis map[string]*fakeAPI) *SyncService {
	log := logger.NewNopLogger()
	clients := func(store models.TargetStore) woocommerce.API {
		return apis[store.ID]
	}

	listCache := cache.NewMemoryCache(time.Minute, time.Minute)
	idCache := cache.NewMemoryCache(time.Hour, time.Hour)
	attributes := NewAttributeResolver(listCache, idCache, time.Minute, time.Hour, log)
	images := NewImageSyncTracker(storage, log, false)
	linked := NewLinkedProductResolver(storage, log)
	variations := NewVariationReconciler(storage, attributes, images, log, 100)
	registry := NewStoreRegistry(storage, clients, log)

	return NewSyncService(storage, registry, attributes, images, linked, variations, clients, nil, log)
}

func TestSyncProductNoOpConditions(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	api := newFakeAPI()

	t.Run("пустой список магазинов", func(t *testing.T) {
		storage := newFakeStorage()
		svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

		results, err := svc.SyncProduct(ctx, 1, nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("товар не существует", func(t *testing.T) {
		storage := newFakeStorage()
		svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

		results, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("товар без артикула", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveProduct(ctx, &models.Product{ID: 1, Type: models.TypeSimple}))
		svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

		results, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	assert.Zero(t, api.findCalls)
}

func TestSyncProductCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()
	api := newFakeAPI()
	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

	require.NoError(t, storage.SaveProduct(ctx, simpleProduct()))

	// Первый прогон: удаленной копии нет, товар создается
	results, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Created)
	assert.Empty(t, results[0].Error)
	require.Len(t, api.createCalls, 1)
	assert.Empty(t, api.updateCalls)
	assert.Equal(t, "ABC123", api.createCalls[0]["sku"])

	state, err := storage.GetSyncState(ctx, 1, store.ID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Synced)

	// Второй прогон того же товара попадает в ветку обновления:
	// в магазине остается ровно одна копия
	results, err = svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Created)
	require.Len(t, api.createCalls, 1)
	require.Len(t, api.updateCalls, 1)
	assert.Equal(t, results[0].RemoteID, api.updateIDs[0])
}

func TestSyncProductStoreFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	broken := testStore("https://broken.example.com")
	healthy := testStore("https://healthy.example.com")

	storage := newFakeStorage()
	require.NoError(t, storage.SaveProduct(ctx, simpleProduct()))

	brokenAPI := newFakeAPI()
	brokenAPI.findErr = &woocommerce.APIError{StatusCode: 502, Message: "bad gateway"}
	healthyAPI := newFakeAPI()

	svc := testSyncService(storage, map[string]*fakeAPI{
		broken.ID:  brokenAPI,
		healthy.ID: healthyAPI,
	})

	// Сбой первого магазина не мешает синхронизации со вторым
	results, err := svc.SyncProduct(ctx, 1, []models.TargetStore{broken, healthy})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.Len(t, healthyAPI.createCalls, 1)

	state, err := storage.GetSyncState(ctx, 1, broken.ID)
	require.NoError(t, err)
	assert.Nil(t, state)

	state, err = storage.GetSyncState(ctx, 1, healthy.ID)
	require.NoError(t, err)
	require.NotNil(t, state)
}

func TestSyncProductRecordsFeaturedImage(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()
	require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 7, URL: "https://cdn.example.com/main.jpg"}))

	p := simpleProduct()
	p.FeaturedImageID = 7
	require.NoError(t, storage.SaveProduct(ctx, p))

	api := newFakeAPI()
	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)

	record, err := storage.GetImageSyncRecord(ctx, 7, store.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotZero(t, record.RemoteID)
}

func TestSyncProductRespectsExcludedFields(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()
	require.NoError(t, storage.SaveSetting(ctx, "excluded_fields", []string{"description", "stock"}))
	require.NoError(t, storage.SaveProduct(ctx, simpleProduct()))

	api := newFakeAPI()
	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)

	require.Len(t, api.createCalls, 1)
	payload := api.createCalls[0]
	assert.NotContains(t, payload, "description")
	assert.NotContains(t, payload, "manage_stock")
	assert.NotContains(t, payload, "stock_quantity")
	assert.Contains(t, payload, "sku")
}

func TestSyncProductReconcilesVariations(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()

	parent := simpleProduct()
	parent.Type = models.TypeVariable
	require.NoError(t, storage.SaveProduct(ctx, parent))
	require.NoError(t, storage.SaveProduct(ctx, localVariation(2, 1, "ABC123-S")))

	api := newFakeAPI()
	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)

	require.Len(t, api.batchCalls, 1)
	require.Len(t, api.batchCalls[0].Create, 1)
	assert.Equal(t, "ABC123-S", api.batchCalls[0].Create[0]["sku"])
}

func TestSyncProductSkipsVariationsWhenExcluded(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()
	require.NoError(t, storage.SaveSetting(ctx, "excluded_fields", []string{"variations"}))

	parent := simpleProduct()
	parent.Type = models.TypeVariable
	require.NoError(t, storage.SaveProduct(ctx, parent))
	require.NoError(t, storage.SaveProduct(ctx, localVariation(2, 1, "ABC123-S")))

	api := newFakeAPI()
	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})

	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)
	assert.Empty(t, api.batchCalls)
}

func TestSyncProductResolvesLinkedProducts(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()

	p := simpleProduct()
	p.UpsellIDs = []int64{2, 3}
	require.NoError(t, storage.SaveProduct(ctx, p))
	// Товар 2 есть в магазине, товар 3 без артикула и отбрасывается
	require.NoError(t, storage.SaveProduct(ctx, &models.Product{ID: 2, Type: models.TypeSimple, SKU: "UP-1"}))
	require.NoError(t, storage.SaveProduct(ctx, &models.Product{ID: 3, Type: models.TypeSimple}))

	api := newFakeAPI()
	api.products["UP-1"] = &woocommerce.Product{ID: 77, SKU: "UP-1"}

	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})
	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)

	require.Len(t, api.createCalls, 1)
	assert.Equal(t, []int64{77}, api.createCalls[0]["upsell_ids"])
}

func TestSyncProductResolvesGroupedChildren(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()

	p := simpleProduct()
	p.Type = models.TypeGrouped
	p.GroupedProductIDs = []int64{2, 3}
	require.NoError(t, storage.SaveProduct(ctx, p))
	require.NoError(t, storage.SaveProduct(ctx, &models.Product{ID: 2, Type: models.TypeSimple, SKU: "CH-1"}))
	require.NoError(t, storage.SaveProduct(ctx, &models.Product{ID: 3, Type: models.TypeSimple, SKU: "CH-2"}))

	api := newFakeAPI()
	api.products["CH-1"] = &woocommerce.Product{ID: 81, SKU: "CH-1"}
	// Второго ребенка в магазине нет, в payload попадает только первый

	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})
	_, err := svc.SyncProduct(ctx, 1, []models.TargetStore{store})
	require.NoError(t, err)

	require.Len(t, api.createCalls, 1)
	assert.Equal(t, []int64{81}, api.createCalls[0]["grouped_products"])
}

func TestDeleteRemoteCopies(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	storage := newFakeStorage()
	require.NoError(t, storage.MarkSynced(ctx, 1, store.ID))

	api := newFakeAPI()
	api.products["ABC123"] = &woocommerce.Product{ID: 55, SKU: "ABC123"}

	svc := testSyncService(storage, map[string]*fakeAPI{store.ID: api})
	svc.DeleteRemoteCopies(ctx, 1, "ABC123", []models.TargetStore{store})

	assert.Equal(t, []int64{55}, api.deleteIDs)

	state, err := storage.GetSyncState(ctx, 1, store.ID)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestDeleteRemoteCopiesNoSKU(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	api := newFakeAPI()

	svc := testSyncService(newFakeStorage(), map[string]*fakeAPI{store.ID: api})
	svc.DeleteRemoteCopies(ctx, 1, "", []models.TargetStore{store})

	assert.Zero(t, api.findCalls)
}
