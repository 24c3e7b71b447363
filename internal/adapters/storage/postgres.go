package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/athebyme/storesync-platform/sync-service/pkg/tx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncStorageInterface определяет операции хранилища локального каталога
// и состояния синхронизации
type SyncStorageInterface interface {
	// Товары локального каталога
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
	// ListVariations возвращает вариации вариативного товара
	ListVariations(ctx context.Context, parentID int64) ([]*models.Product, error)

	// Медиа-файлы
	GetMedia(ctx context.Context, mediaID int64) (*models.Media, error)
	SaveMedia(ctx context.Context, media *models.Media) error

	// Целевые магазины
	SaveStore(ctx context.Context, store *models.TargetStore) error
	ListStores(ctx context.Context) ([]models.TargetStore, error)
	DeleteStore(ctx context.Context, url string) error

	// Настройки (ключ -> произвольное JSON-значение)
	GetSetting(ctx context.Context, key string, out interface{}) (bool, error)
	SaveSetting(ctx context.Context, key string, value interface{}) error

	// Состояние синхронизации, ключ (товар, магазин)
	GetSyncState(ctx context.Context, productID int64, storeID string) (*models.ProductSyncState, error)
	MarkSynced(ctx context.Context, productID int64, storeID string) error
	ClearSyncState(ctx context.Context, productID int64, storeID string) error

	// Записи о синхронизированных изображениях, ключ (изображение, магазин)
	GetImageSyncRecord(ctx context.Context, imageID int64, storeID string) (*models.ImageSyncRecord, error)
	SaveImageSyncRecord(ctx context.Context, record *models.ImageSyncRecord) error
}

// SyncStoragePort дополняет хранилище управлением транзакциями
type SyncStoragePort interface {
	SyncStorageInterface
	interfaces.StoragePort
}

// SyncStorage - реализация хранилища для PostgreSQL
type SyncStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage создает новый экземпляр SyncStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*SyncStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &SyncStorage{pool: pool}, nil
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*SyncStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &SyncStorage{pool: pool}, nil
}

// Close закрывает соединение с БД
func (r *SyncStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *SyncStorage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// getTx получает транзакцию из контекста
func (r *SyncStorage) getTx(ctx context.Context) pgx.Tx {
	txFromCtx, ok := ctx.Value(tx.GetKey()).(pgx.Tx)
	if !ok {
		return nil
	}
	return txFromCtx
}

// BeginTx начинает новую транзакцию.
// Ключ контекста общий с pkg/tx, поэтому getExecutor видит эту транзакцию.
func (r *SyncStorage) BeginTx(ctx context.Context) (context.Context, error) {
	txn, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, tx.GetKey(), txn), nil
}

// CommitTx фиксирует транзакцию
func (r *SyncStorage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *SyncStorage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

// GetProduct получает товар по ID
func (r *SyncStorage) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, parent_id, sku, type, status, data, created_at, updated_at
		FROM sync.products
		WHERE id = $1
	`

	row := executor.QueryRow(ctx, query, productID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Товар не найден
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// scanProduct собирает модель товара из строки выборки.
// Колонки id/parent_id/sku/type/status дублируются в JSON-блобе,
// значения из колонок считаются истинными.
func scanProduct(row pgx.Row) (*models.Product, error) {
	var (
		product models.Product
		data    []byte
	)
	var parentID *int64

	err := row.Scan(&product.ID, &parentID, &product.SKU, &product.Type,
		&product.Status, &data, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	id, sku, typ, status := product.ID, product.SKU, product.Type, product.Status
	createdAt, updatedAt := product.CreatedAt, product.UpdatedAt
	if len(data) > 0 {
		if err := json.Unmarshal(data, &product); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product data: %w", err)
		}
	}
	product.ID, product.SKU, product.Type, product.Status = id, sku, typ, status
	product.CreatedAt, product.UpdatedAt = createdAt, updatedAt
	if parentID != nil {
		product.ParentID = *parentID
	}

	return &product, nil
}

// SaveProduct сохраняет товар в базу данных
func (r *SyncStorage) SaveProduct(ctx context.Context, product *models.Product) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.products (id, parent_id, sku, type, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			parent_id = $2,
			sku = $3,
			type = $4,
			status = $5,
			data = $6,
			updated_at = $8
	`

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product data: %w", err)
	}

	var parentID *int64
	if product.ParentID != 0 {
		parentID = &product.ParentID
	}

	_, err = executor.Exec(ctx, query, product.ID, parentID, product.SKU, product.Type,
		product.Status, data, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// DeleteProduct удаляет товар вместе с его вариациями
func (r *SyncStorage) DeleteProduct(ctx context.Context, productID int64) error {
	executor := r.getExecutor(ctx)

	query := `
		DELETE FROM sync.products
		WHERE id = $1 OR parent_id = $1
	`

	if _, err := executor.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

// ListVariations возвращает вариации вариативного товара в порядке меню
func (r *SyncStorage) ListVariations(ctx context.Context, parentID int64) ([]*models.Product, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, parent_id, sku, type, status, data, created_at, updated_at
		FROM sync.products
		WHERE parent_id = $1
		ORDER BY id
	`

	rows, err := executor.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variations: %w", err)
	}
	defer rows.Close()

	var variations []*models.Product
	for rows.Next() {
		variation, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variation row: %w", err)
		}
		variations = append(variations, variation)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating variation rows: %w", rows.Err())
	}

	return variations, nil
}

// GetMedia получает медиа-файл по ID
func (r *SyncStorage) GetMedia(ctx context.Context, mediaID int64) (*models.Media, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, url
		FROM sync.media
		WHERE id = $1
	`

	var media models.Media
	err := executor.QueryRow(ctx, query, mediaID).Scan(&media.ID, &media.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Медиа не найдено
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &media, nil
}

// SaveMedia сохраняет медиа-файл
func (r *SyncStorage) SaveMedia(ctx context.Context, media *models.Media) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.media (id, url)
		VALUES ($1, $2)
		ON CONFLICT (id)
		DO UPDATE SET url = $2
	`

	if _, err := executor.Exec(ctx, query, media.ID, media.URL); err != nil {
		return fmt.Errorf("failed to save media: %w", err)
	}

	return nil
}

// SaveStore сохраняет целевой магазин.
// Идентификатор магазина производный и отдельно не хранится.
func (r *SyncStorage) SaveStore(ctx context.Context, store *models.TargetStore) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.stores (url, name, consumer_key, consumer_secret, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url)
		DO UPDATE SET
			name = $2,
			consumer_key = $3,
			consumer_secret = $4
	`

	if store.CreatedAt.IsZero() {
		store.CreatedAt = time.Now().UTC()
	}

	_, err := executor.Exec(ctx, query, store.URL, store.Name,
		store.ConsumerKey, store.ConsumerSecret, store.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}

	return nil
}

// ListStores возвращает все целевые магазины
func (r *SyncStorage) ListStores(ctx context.Context) ([]models.TargetStore, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT url, name, consumer_key, consumer_secret, created_at
		FROM sync.stores
		ORDER BY created_at
	`

	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []models.TargetStore
	for rows.Next() {
		var store models.TargetStore
		err := rows.Scan(&store.URL, &store.Name, &store.ConsumerKey,
			&store.ConsumerSecret, &store.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		store.ID = models.StoreID(store.URL)
		stores = append(stores, store)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating store rows: %w", rows.Err())
	}

	return stores, nil
}

// DeleteStore удаляет магазин по URL
func (r *SyncStorage) DeleteStore(ctx context.Context, url string) error {
	executor := r.getExecutor(ctx)

	query := `
		DELETE FROM sync.stores
		WHERE url = $1
	`

	if _, err := executor.Exec(ctx, query, url); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}

	return nil
}

// GetSetting читает настройку по ключу и декодирует ее значение в out.
// Возвращает false, если настройка не задана.
func (r *SyncStorage) GetSetting(ctx context.Context, key string, out interface{}) (bool, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT value
		FROM sync.settings
		WHERE key = $1
	`

	var value []byte
	err := executor.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get setting: %w", err)
	}

	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal setting %q: %w", key, err)
	}

	return true, nil
}

// SaveSetting сохраняет настройку по ключу
func (r *SyncStorage) SaveSetting(ctx context.Context, key string, value interface{}) error {
	executor := r.getExecutor(ctx)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %q: %w", key, err)
	}

	query := `
		INSERT INTO sync.settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = $2
	`

	if _, err := executor.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	return nil
}

// GetSyncState получает состояние синхронизации по составному ключу (товар, магазин)
func (r *SyncStorage) GetSyncState(ctx context.Context, productID int64, storeID string) (*models.ProductSyncState, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT product_id, store_id, synced, synced_at
		FROM sync.product_sync_state
		WHERE product_id = $1 AND store_id = $2
	`

	var state models.ProductSyncState
	err := executor.QueryRow(ctx, query, productID, storeID).
		Scan(&state.ProductID, &state.StoreID, &state.Synced, &state.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Товар еще не синхронизировался с магазином
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}

// MarkSynced отмечает товар синхронизированным с магазином
func (r *SyncStorage) MarkSynced(ctx context.Context, productID int64, storeID string) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.product_sync_state (product_id, store_id, synced, synced_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (product_id, store_id)
		DO UPDATE SET synced = TRUE, synced_at = $3
	`

	if _, err := executor.Exec(ctx, query, productID, storeID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark product synced: %w", err)
	}

	return nil
}

// ClearSyncState сбрасывает состояние синхронизации товара с магазином
func (r *SyncStorage) ClearSyncState(ctx context.Context, productID int64, storeID string) error {
	executor := r.getExecutor(ctx)

	query := `
		DELETE FROM sync.product_sync_state
		WHERE product_id = $1 AND store_id = $2
	`

	if _, err := executor.Exec(ctx, query, productID, storeID); err != nil {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}

	return nil
}

// GetImageSyncRecord получает запись о синхронизации изображения с магазином
func (r *SyncStorage) GetImageSyncRecord(ctx context.Context, imageID int64, storeID string) (*models.ImageSyncRecord, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT image_id, store_id, remote_id
		FROM sync.image_sync_records
		WHERE image_id = $1 AND store_id = $2
	`

	var record models.ImageSyncRecord
	err := executor.QueryRow(ctx, query, imageID, storeID).
		Scan(&record.ImageID, &record.StoreID, &record.RemoteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Изображение еще не попадало в магазин
		}
		return nil, fmt.Errorf("failed to get image sync record: %w", err)
	}

	return &record, nil
}

// SaveImageSyncRecord сохраняет запись о синхронизации изображения
func (r *SyncStorage) SaveImageSyncRecord(ctx context.Context, record *models.ImageSyncRecord) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.image_sync_records (image_id, store_id, remote_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (image_id, store_id)
		DO UPDATE SET remote_id = $3
	`

	if _, err := executor.Exec(ctx, query, record.ImageID, record.StoreID, record.RemoteID); err != nil {
		return fmt.Errorf("failed to save image sync record: %w", err)
	}

	return nil
}
