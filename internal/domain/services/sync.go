package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/messaging"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/google/uuid"
)

// SyncService - оркестратор синхронизации: для каждой пары (товар, магазин)
// определяет, существует ли удаленная копия, собирает payload и выполняет
// создание или обновление, после чего сверяет вариации.
type SyncService struct {
	storage    storage.SyncStorageInterface
	registry   StoreRegistry
	attributes *AttributeResolver
	images     *ImageSyncTracker
	linked     *LinkedProductResolver
	variations *VariationReconciler
	clients    ClientFactory
	messaging  interfaces.MessagingPort
	logger     interfaces.LoggerPort
}

// NewSyncService создает оркестратор. messaging может быть nil -
// тогда события синхронизации не публикуются.
func NewSyncService(
	storage storage.SyncStorageInterface,
	registry StoreRegistry,
	attributes *AttributeResolver,
	images *ImageSyncTracker,
	linked *LinkedProductResolver,
	variations *VariationReconciler,
	clients ClientFactory,
	messagingPort interfaces.MessagingPort,
	logger interfaces.LoggerPort,
) *SyncService {
	return &SyncService{
		storage:    storage,
		registry:   registry,
		attributes: attributes,
		images:     images,
		linked:     linked,
		variations: variations,
		clients:    clients,
		messaging:  messagingPort,
		logger:     logger,
	}
}

// SyncProduct синхронизирует товар с перечисленными магазинами.
// Отсутствие товара, пустой артикул или пустой список магазинов - не ошибка,
// а тихий no-op. Сбой одного магазина не мешает остальным: магазины
// обходятся последовательно, каждый в своей ветке обработки ошибок.
func (s *SyncService) SyncProduct(ctx context.Context, productID int64, stores []models.TargetStore) ([]models.SyncResult, error) {
	if len(stores) == 0 {
		return nil, nil
	}

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil || product.SKU == "" {
		s.logger.DebugWithContext(ctx, "товар не подходит для синхронизации",
			interfaces.LogField{Key: "product_id", Value: productID})
		return nil, nil
	}

	excluded, err := s.registry.ExcludedFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load excluded fields: %w", err)
	}

	// Базовый payload не зависит от магазина и собирается один раз
	base := BuildBasePayload(product, excluded)

	results := make([]models.SyncResult, 0, len(stores))
	for _, store := range stores {
		result := s.syncToStore(ctx, product, base, store, excluded)
		results = append(results, result)
		s.publishResult(ctx, result)
	}

	return results, nil
}

func (s *SyncService) syncToStore(ctx context.Context, product *models.Product, base models.Payload, store models.TargetStore, excluded ExclusionSet) models.SyncResult {
	result := models.SyncResult{ProductID: product.ID, StoreID: store.ID}
	api := s.clients(store)

	payload := base.Clone()
	s.images.AttachImages(ctx, payload, product, store, excluded)

	if !excluded.Has("attributes") {
		if attrs := s.attributes.ResolveAttributes(ctx, api, store, product.Attributes); len(attrs) > 0 {
			payload["attributes"] = attrs
		}
	}
	if !excluded.Has("default_attributes") {
		if defaults := s.attributes.ResolveSelection(ctx, api, store, product.DefaultAttributes); len(defaults) > 0 {
			payload["default_attributes"] = defaults
		}
	}
	if !excluded.Has("upsell_ids") {
		if ids := s.linked.ResolveLinkedIDs(ctx, api, store, product.UpsellIDs); len(ids) > 0 {
			payload["upsell_ids"] = ids
		}
	}
	if !excluded.Has("cross_sell_ids") {
		if ids := s.linked.ResolveLinkedIDs(ctx, api, store, product.CrossSellIDs); len(ids) > 0 {
			payload["cross_sell_ids"] = ids
		}
	}
	if product.Type == models.TypeGrouped && !excluded.Has("grouped_products") {
		if ids := s.linked.ResolveLinkedIDs(ctx, api, store, product.GroupedProductIDs); len(ids) > 0 {
			payload["grouped_products"] = ids
		}
	}

	existing, err := api.FindProductBySKU(ctx, product.SKU)
	if err != nil {
		s.logFailure(ctx, "поиск товара в магазине не удался", product, store, err)
		result.Error = err.Error()
		return result
	}

	var remote *woocommerce.Product
	if existing != nil {
		remote, err = api.UpdateProduct(ctx, existing.ID, payload)
		if err != nil {
			s.logFailure(ctx, "обновление товара в магазине не удалось", product, store, err)
			result.Error = err.Error()
			return result
		}
	} else {
		remote, err = api.CreateProduct(ctx, payload)
		if err != nil {
			s.logFailure(ctx, "создание товара в магазине не удалось", product, store, err)
			result.Error = err.Error()
			return result
		}
		result.Created = true
		s.images.RecordCreatedImages(ctx, product, store, remote.Images)
	}
	result.RemoteID = remote.ID

	if err := s.storage.MarkSynced(ctx, product.ID, store.ID); err != nil {
		s.logger.WarnWithContext(ctx, "не удалось отметить товар синхронизированным",
			interfaces.LogField{Key: "product_id", Value: product.ID},
			interfaces.LogField{Key: "store_id", Value: store.ID})
	}

	if product.Type == models.TypeVariable && !excluded.Has("variations") {
		if err := s.variations.Reconcile(ctx, api, store, product, remote.ID, excluded); err != nil {
			// Проход по вариациям прерывается только для этого магазина
			s.logFailure(ctx, "сверка вариаций не удалась", product, store, err)
		}
	}

	return result
}

// DeleteRemoteCopies удаляет копии товара из перечисленных магазинов
// и сбрасывает состояние синхронизации. Вызывается при удалении
// локального товара, когда политика обработки удалений включена.
func (s *SyncService) DeleteRemoteCopies(ctx context.Context, productID int64, sku string, stores []models.TargetStore) {
	if sku == "" {
		return
	}

	for _, store := range stores {
		api := s.clients(store)

		remote, err := api.FindProductBySKU(ctx, sku)
		if err != nil {
			s.logger.ErrorWithContext(ctx, "поиск удаляемого товара не удался",
				interfaces.LogField{Key: "sku", Value: sku},
				interfaces.LogField{Key: "store_id", Value: store.ID},
				interfaces.LogField{Key: "error", Value: err.Error()})
			continue
		}
		if remote == nil {
			continue
		}

		if err := api.DeleteProduct(ctx, remote.ID); err != nil {
			s.logger.ErrorWithContext(ctx, "удаление товара из магазина не удалось",
				interfaces.LogField{Key: "sku", Value: sku},
				interfaces.LogField{Key: "remote_id", Value: remote.ID},
				interfaces.LogField{Key: "store_id", Value: store.ID},
				interfaces.LogField{Key: "error", Value: err.Error()})
			continue
		}

		if err := s.storage.ClearSyncState(ctx, productID, store.ID); err != nil {
			s.logger.WarnWithContext(ctx, "не удалось сбросить состояние синхронизации",
				interfaces.LogField{Key: "product_id", Value: productID},
				interfaces.LogField{Key: "store_id", Value: store.ID})
		}
	}
}

func (s *SyncService) logFailure(ctx context.Context, msg string, product *models.Product, store models.TargetStore, err error) {
	s.logger.ErrorWithContext(ctx, msg,
		interfaces.LogField{Key: "product_id", Value: product.ID},
		interfaces.LogField{Key: "sku", Value: product.SKU},
		interfaces.LogField{Key: "store_id", Value: store.ID},
		interfaces.LogField{Key: "error", Value: err.Error()})
}

func (s *SyncService) publishResult(ctx context.Context, result models.SyncResult) {
	if s.messaging == nil {
		return
	}

	event := messaging.SyncEvent{
		ID:        uuid.New().String(),
		Type:      messaging.ProductSyncedEvent,
		ProductID: result.ProductID,
		StoreID:   result.StoreID,
		RemoteID:  result.RemoteID,
		Created:   result.Created,
		Error:     result.Error,
	}
	if result.Error != "" {
		event.Type = messaging.SyncFailedEvent
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := s.messaging.Publish(ctx, messaging.SyncEventsTopic, data); err != nil {
		s.logger.WarnWithContext(ctx, "не удалось опубликовать событие синхронизации",
			interfaces.LogField{Key: "product_id", Value: result.ProductID},
			interfaces.LogField{Key: "store_id", Value: result.StoreID})
	}
}
