package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/internal/utils"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// Ключи настроек в хранилище
const (
	settingExcludedFields  = "excluded_fields"
	settingAllowedStatuses = "allowed_statuses"
)

// defaultAllowedStatuses - статусы товаров, попадающие в синхронизацию,
// пока администратор не настроил иначе
var defaultAllowedStatuses = []string{"publish"}

// ClientFactory создает клиента удаленного API для магазина.
// В тестах подменяется фабрикой фейков.
type ClientFactory func(store models.TargetStore) woocommerce.API

// DefaultClientFactory возвращает фабрику настоящих HTTP-клиентов
func DefaultClientFactory(timeout time.Duration) ClientFactory {
	return func(store models.TargetStore) woocommerce.API {
		return woocommerce.NewClient(woocommerce.Config{
			StoreURL:       store.URL,
			ConsumerKey:    store.ConsumerKey,
			ConsumerSecret: store.ConsumerSecret,
			Timeout:        timeout,
		})
	}
}

// StoreRegistry управляет списком целевых магазинов и настройками синхронизации
type StoreRegistry interface {
	ListTargetStores(ctx context.Context) ([]models.TargetStore, error)
	GetStore(ctx context.Context, storeID string) (*models.TargetStore, error)
	AddStore(ctx context.Context, name, rawURL, consumerKey, consumerSecret string) (*models.TargetStore, error)
	RemoveStore(ctx context.Context, storeID string) error

	ExcludedFields(ctx context.Context) (ExclusionSet, error)
	ExcludedFieldNames(ctx context.Context) ([]string, error)
	SetExcludedFields(ctx context.Context, names []string) error
	AllowedStatuses(ctx context.Context) ([]string, error)
	SetAllowedStatuses(ctx context.Context, statuses []string) error
}

type storeRegistry struct {
	storage storage.SyncStorageInterface
	clients ClientFactory
	logger  interfaces.LoggerPort
}

func NewStoreRegistry(storage storage.SyncStorageInterface, clients ClientFactory, logger interfaces.LoggerPort) StoreRegistry {
	return &storeRegistry{
		storage: storage,
		clients: clients,
		logger:  logger,
	}
}

func (r *storeRegistry) ListTargetStores(ctx context.Context) ([]models.TargetStore, error) {
	return r.storage.ListStores(ctx)
}

func (r *storeRegistry) GetStore(ctx context.Context, storeID string) (*models.TargetStore, error) {
	stores, err := r.storage.ListStores(ctx)
	if err != nil {
		return nil, err
	}

	for i := range stores {
		if stores[i].ID == storeID {
			return &stores[i], nil
		}
	}

	return nil, utils.ErrStoreNotFound
}

// AddStore регистрирует новый целевой магазин.
// URL нормализуется, дубликаты (по производному идентификатору)
// отклоняются, а ключи проверяются пробным запросом к магазину
// до сохранения.
func (r *storeRegistry) AddStore(ctx context.Context, name, rawURL, consumerKey, consumerSecret string) (*models.TargetStore, error) {
	normalized, err := models.NormalizeStoreURL(rawURL)
	if err != nil {
		return nil, utils.ErrInvalidStoreURL
	}

	storeID := models.StoreID(normalized)
	if storeID == "" {
		return nil, utils.ErrInvalidStoreURL
	}

	existing, err := r.storage.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	for _, s := range existing {
		if s.ID == storeID {
			return nil, utils.ErrStoreAlreadyExists
		}
	}

	if name == "" {
		if u, parseErr := url.Parse(normalized); parseErr == nil {
			name = u.Host
		}
	}

	store := models.TargetStore{
		ID:             storeID,
		Name:           name,
		URL:            normalized,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
	}

	if err := r.clients(store).SystemStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to validate store credentials: %w", err)
	}

	if err := r.storage.SaveStore(ctx, &store); err != nil {
		return nil, err
	}

	r.logger.InfoWithContext(ctx, "зарегистрирован целевой магазин",
		interfaces.LogField{Key: "store_id", Value: store.ID},
		interfaces.LogField{Key: "url", Value: store.URL})

	return &store, nil
}

func (r *storeRegistry) RemoveStore(ctx context.Context, storeID string) error {
	store, err := r.GetStore(ctx, storeID)
	if err != nil {
		return err
	}

	if err := r.storage.DeleteStore(ctx, store.URL); err != nil {
		return err
	}

	r.logger.InfoWithContext(ctx, "целевой магазин удален",
		interfaces.LogField{Key: "store_id", Value: storeID})

	return nil
}

func (r *storeRegistry) ExcludedFields(ctx context.Context) (ExclusionSet, error) {
	var names []string
	if _, err := r.storage.GetSetting(ctx, settingExcludedFields, &names); err != nil {
		return nil, err
	}
	return NewExclusionSet(names), nil
}

// ExcludedFieldNames возвращает список исключений в том виде,
// в котором его сохранил администратор, без раскрытия групп
func (r *storeRegistry) ExcludedFieldNames(ctx context.Context) ([]string, error) {
	var names []string
	if _, err := r.storage.GetSetting(ctx, settingExcludedFields, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (r *storeRegistry) SetExcludedFields(ctx context.Context, names []string) error {
	return r.storage.SaveSetting(ctx, settingExcludedFields, names)
}

func (r *storeRegistry) AllowedStatuses(ctx context.Context) ([]string, error) {
	var statuses []string
	found, err := r.storage.GetSetting(ctx, settingAllowedStatuses, &statuses)
	if err != nil {
		return nil, err
	}
	if !found || len(statuses) == 0 {
		return defaultAllowedStatuses, nil
	}
	return statuses, nil
}

func (r *storeRegistry) SetAllowedStatuses(ctx context.Context, statuses []string) error {
	return r.storage.SaveSetting(ctx, settingAllowedStatuses, statuses)
}
