package models

import "time"

// ProductSyncState - признак того, что товар уже создавался в магазине.
// Ключ составной: (товар, магазин).
type ProductSyncState struct {
	ProductID int64     `db:"product_id" json:"product_id"`
	StoreID   string    `db:"store_id" json:"store_id"`
	Synced    bool      `db:"synced" json:"synced"`
	SyncedAt  time.Time `db:"synced_at" json:"synced_at"`
}

// ImageSyncRecord связывает локальное изображение с его копией в магазине.
// Ключ составной: (изображение, магазин).
type ImageSyncRecord struct {
	ImageID  int64  `db:"image_id" json:"image_id"`
	StoreID  string `db:"store_id" json:"store_id"`
	RemoteID int64  `db:"remote_id" json:"remote_id"`
}

// SyncResult - итог синхронизации товара с одним магазином
type SyncResult struct {
	ProductID int64  `json:"product_id"`
	StoreID   string `json:"store_id"`
	RemoteID  int64  `json:"remote_id,omitempty"`
	Created   bool   `json:"created"`
	Error     string `json:"error,omitempty"`
}
