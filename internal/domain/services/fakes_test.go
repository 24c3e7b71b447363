package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/logger"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// fakeStorage - хранилище в памяти для тестов сервисов
type fakeStorage struct {
	mu           sync.Mutex
	products     map[int64]*models.Product
	media        map[int64]*models.Media
	stores       []models.TargetStore
	settings     map[string]interface{}
	syncState    map[string]bool
	imageRecords map[string]*models.ImageSyncRecord

	getProductErr error
	listStoresErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		products:     make(map[int64]*models.Product),
		media:        make(map[int64]*models.Media),
		settings:     make(map[string]interface{}),
		syncState:    make(map[string]bool),
		imageRecords: make(map[string]*models.ImageSyncRecord),
	}
}

func syncKey(productID int64, storeID string) string {
	return fmt.Sprintf("%d|%s", productID, storeID)
}

func (s *fakeStorage) GetProduct(_ context.Context, productID int64) (*models.Product, error) {
	if s.getProductErr != nil {
		return nil, s.getProductErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID], nil
}

func (s *fakeStorage) SaveProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
	return nil
}

func (s *fakeStorage) DeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productID)
	return nil
}

func (s *fakeStorage) ListVariations(_ context.Context, parentID int64) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Product
	for _, p := range s.products {
		if p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStorage) GetMedia(_ context.Context, mediaID int64) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media[mediaID], nil
}

func (s *fakeStorage) SaveMedia(_ context.Context, media *models.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[media.ID] = media
	return nil
}

func (s *fakeStorage) SaveStore(_ context.Context, store *models.TargetStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = append(s.stores, *store)
	return nil
}

func (s *fakeStorage) ListStores(_ context.Context) ([]models.TargetStore, error) {
	if s.listStoresErr != nil {
		return nil, s.listStoresErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TargetStore, len(s.stores))
	copy(out, s.stores)
	return out, nil
}

func (s *fakeStorage) DeleteStore(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, store := range s.stores {
		if store.URL == url {
			s.stores = append(s.stores[:i], s.stores[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStorage) GetSetting(_ context.Context, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.settings[key]
	if !ok {
		return false, nil
	}
	if names, ok := value.([]string); ok {
		if dst, ok := out.(*[]string); ok {
			*dst = names
			return true, nil
		}
	}
	return false, fmt.Errorf("unsupported setting type for key %q", key)
}

func (s *fakeStorage) SaveSetting(_ context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *fakeStorage) GetSyncState(_ context.Context, productID int64, storeID string) (*models.ProductSyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.syncState[syncKey(productID, storeID)] {
		return nil, nil
	}
	return &models.ProductSyncState{ProductID: productID, StoreID: storeID, Synced: true}, nil
}

func (s *fakeStorage) MarkSynced(_ context.Context, productID int64, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncState[syncKey(productID, storeID)] = true
	return nil
}

func (s *fakeStorage) ClearSyncState(_ context.Context, productID int64, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncState, syncKey(productID, storeID))
	return nil
}

func (s *fakeStorage) GetImageSyncRecord(_ context.Context, imageID int64, storeID string) (*models.ImageSyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageRecords[syncKey(imageID, storeID)], nil
}

func (s *fakeStorage) SaveImageSyncRecord(_ context.Context, record *models.ImageSyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageRecords[syncKey(record.ImageID, record.StoreID)] = record
	return nil
}

// fakeAPI - управляемый клиент удаленного магазина.
// Хранит товары по артикулу и считает вызовы каждой операции.
type fakeAPI struct {
	mu sync.Mutex

	products   map[string]*woocommerce.Product
	attributes []woocommerce.Attribute
	variations []woocommerce.Variation

	nextID int64

	findCalls           int
	createCalls         []map[string]interface{}
	updateCalls         []map[string]interface{}
	updateIDs           []int64
	deleteIDs           []int64
	listAttributesCalls int
	listVariationsCalls int
	batchCalls          []*woocommerce.VariationBatch
	batchResult         *woocommerce.VariationBatchResult

	systemStatusErr   error
	findErr           error
	createErr         error
	updateErr         error
	listAttributesErr error
	listVariationsErr error
	batchErr          error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		products: make(map[string]*woocommerce.Product),
		nextID:   100,
	}
}

func (a *fakeAPI) SystemStatus(context.Context) error {
	return a.systemStatusErr
}

func (a *fakeAPI) FindProductBySKU(_ context.Context, sku string) (*woocommerce.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.findCalls++
	if a.findErr != nil {
		return nil, a.findErr
	}
	return a.products[sku], nil
}

func (a *fakeAPI) CreateProduct(_ context.Context, data map[string]interface{}) (*woocommerce.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.createCalls = append(a.createCalls, data)

	a.nextID++
	product := &woocommerce.Product{ID: a.nextID}
	if sku, ok := data["sku"].(string); ok {
		product.SKU = sku
		a.products[sku] = product
	}
	if images, ok := data["images"].([]map[string]interface{}); ok {
		for range images {
			a.nextID++
			product.Images = append(product.Images, woocommerce.Image{ID: a.nextID})
		}
	}
	return product, nil
}

func (a *fakeAPI) UpdateProduct(_ context.Context, id int64, data map[string]interface{}) (*woocommerce.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.updateErr != nil {
		return nil, a.updateErr
	}
	a.updateCalls = append(a.updateCalls, data)
	a.updateIDs = append(a.updateIDs, id)
	return &woocommerce.Product{ID: id}, nil
}

func (a *fakeAPI) DeleteProduct(_ context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteIDs = append(a.deleteIDs, id)
	for sku, p := range a.products {
		if p.ID == id {
			delete(a.products, sku)
		}
	}
	return nil
}

func (a *fakeAPI) ListAttributes(context.Context) ([]woocommerce.Attribute, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listAttributesCalls++
	if a.listAttributesErr != nil {
		return nil, a.listAttributesErr
	}
	return a.attributes, nil
}

func (a *fakeAPI) ListVariations(_ context.Context, _ int64, page, perPage int) ([]woocommerce.Variation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listVariationsCalls++
	if a.listVariationsErr != nil {
		return nil, a.listVariationsErr
	}
	start := (page - 1) * perPage
	if start >= len(a.variations) {
		return nil, nil
	}
	end := start + perPage
	if end > len(a.variations) {
		end = len(a.variations)
	}
	return a.variations[start:end], nil
}

func (a *fakeAPI) BatchUpdateVariations(_ context.Context, _ int64, batch *woocommerce.VariationBatch) (*woocommerce.VariationBatchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.batchErr != nil {
		return nil, a.batchErr
	}
	a.batchCalls = append(a.batchCalls, batch)
	if a.batchResult != nil {
		return a.batchResult, nil
	}
	return &woocommerce.VariationBatchResult{}, nil
}

// recordingLogger считает предупреждения, остальное молча отбрасывает
type recordingLogger struct {
	interfaces.LoggerPort
	mu    sync.Mutex
	warns []string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{LoggerPort: logger.NewNopLogger()}
}

func (l *recordingLogger) WarnWithContext(_ context.Context, msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func testStore(url string) models.TargetStore {
	return models.TargetStore{
		ID:             models.StoreID(url),
		Name:           "test",
		URL:            url,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
	}
}
