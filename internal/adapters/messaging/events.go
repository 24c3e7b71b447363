package messaging

type KafkaEvent = string

// События каталога, на которые реагирует воркер
const (
	ProductSavedEvent   = "product_saved"
	ProductDeletedEvent = "product_deleted"
)

// События, публикуемые по итогам синхронизации
const (
	ProductSyncedEvent = "product_synced"
	SyncFailedEvent    = "sync_failed"
)

// Топики
const (
	ProductEventsTopic = "product-events"
	SyncEventsTopic    = "sync-events"
)

// ProductEvent - сообщение о изменении товара локального каталога
type ProductEvent struct {
	ID        string     `json:"id"`
	Type      KafkaEvent `json:"type"`
	ProductID int64      `json:"product_id"`
	SKU       string     `json:"sku,omitempty"`
	Status    string     `json:"status,omitempty"`
	// StoreIDs сужает синхронизацию до перечисленных магазинов;
	// пустой список означает все зарегистрированные
	StoreIDs []string `json:"store_ids,omitempty"`
}

// SyncEvent - итог синхронизации товара с одним магазином
type SyncEvent struct {
	ID        string     `json:"id"`
	Type      KafkaEvent `json:"type"`
	ProductID int64      `json:"product_id"`
	StoreID   string     `json:"store_id"`
	RemoteID  int64      `json:"remote_id,omitempty"`
	Created   bool       `json:"created,omitempty"`
	Error     string     `json:"error,omitempty"`
}
