package services

import (
	"context"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// LinkedProductResolver сопоставляет локальные ID связанных товаров
// (апсейлы, кросс-сейлы, дети сгруппированного товара) их копиям
// в целевом магазине через поиск по артикулу.
type LinkedProductResolver struct {
	storage storage.SyncStorageInterface
	logger  interfaces.LoggerPort
}

func NewLinkedProductResolver(storage storage.SyncStorageInterface, logger interfaces.LoggerPort) *LinkedProductResolver {
	return &LinkedProductResolver{storage: storage, logger: logger}
}

// ResolveLinkedIDs возвращает удаленные ID для локальных товаров.
// Товары без артикула, без удаленной копии или с ошибкой поиска молча
// пропускаются: одна неразрешимая ссылка не блокирует синхронизацию родителя.
func (r *LinkedProductResolver) ResolveLinkedIDs(ctx context.Context, api woocommerce.API, store models.TargetStore, localIDs []int64) []int64 {
	var remote []int64
	for _, localID := range localIDs {
		product, err := r.storage.GetProduct(ctx, localID)
		if err != nil || product == nil || product.SKU == "" {
			continue
		}

		match, err := api.FindProductBySKU(ctx, product.SKU)
		if err != nil {
			r.logger.DebugWithContext(ctx, "поиск связанного товара не удался",
				interfaces.LogField{Key: "product_id", Value: localID},
				interfaces.LogField{Key: "sku", Value: product.SKU},
				interfaces.LogField{Key: "store_id", Value: store.ID})
			continue
		}
		if match == nil {
			continue
		}

		remote = append(remote, match.ID)
	}

	return remote
}
