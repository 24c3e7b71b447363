package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// VariationDiff - результат сопоставления локальных и удаленных вариаций.
// Вычисляется заново при каждом проходе и нигде не хранится.
type VariationDiff struct {
	// Matched - соответствие локальный ID -> удаленный ID по равенству артикулов
	Matched map[int64]int64
	// Delete - удаленные вариации, для которых нет локального артикула
	Delete []int64
}

// BuildVariationDiff сопоставляет вариации по артикулу.
// Локальные вариации без артикула невидимы для сопоставления и всегда
// считаются новыми. Результат не зависит от порядка входных списков.
func BuildVariationDiff(local []*models.Product, remote []woocommerce.Variation) *VariationDiff {
	index := make(map[string]int64, len(local))
	for _, v := range local {
		if v.SKU != "" {
			index[v.SKU] = v.ID
		}
	}

	diff := &VariationDiff{Matched: make(map[int64]int64)}
	for _, rv := range remote {
		if localID, ok := index[rv.SKU]; ok && rv.SKU != "" {
			diff.Matched[localID] = rv.ID
			continue
		}
		diff.Delete = append(diff.Delete, rv.ID)
	}
	sort.Slice(diff.Delete, func(i, j int) bool { return diff.Delete[i] < diff.Delete[j] })

	return diff
}

// VariationReconciler приводит вариации товара в магазине к локальному
// состоянию одним пакетным запросом: создание, обновление и удаление.
type VariationReconciler struct {
	storage    storage.SyncStorageInterface
	attributes *AttributeResolver
	images     *ImageSyncTracker
	logger     interfaces.LoggerPort
	pageSize   int
}

func NewVariationReconciler(
	storage storage.SyncStorageInterface,
	attributes *AttributeResolver,
	images *ImageSyncTracker,
	logger interfaces.LoggerPort,
	pageSize int,
) *VariationReconciler {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &VariationReconciler{
		storage:    storage,
		attributes: attributes,
		images:     images,
		logger:     logger,
		pageSize:   pageSize,
	}
}

// Reconcile выполняет один проход сверки вариаций для пары (товар, магазин).
// Ошибка прерывает проход только для этого магазина.
func (r *VariationReconciler) Reconcile(ctx context.Context, api woocommerce.API, store models.TargetStore, parent *models.Product, remoteParentID int64, excluded ExclusionSet) error {
	local, err := r.storage.ListVariations(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("failed to load local variations: %w", err)
	}

	remote, err := r.fetchRemoteVariations(ctx, api, remoteParentID)
	if err != nil {
		return fmt.Errorf("failed to fetch remote variations: %w", err)
	}

	diff := BuildVariationDiff(local, remote)

	batch := &woocommerce.VariationBatch{Delete: diff.Delete}
	for _, variation := range local {
		payload := r.buildVariationPayload(ctx, api, store, variation, excluded)
		if remoteID, ok := diff.Matched[variation.ID]; ok {
			payload["id"] = remoteID
			batch.Update = append(batch.Update, payload)
		} else {
			batch.Create = append(batch.Create, payload)
		}
	}

	if batch.IsEmpty() {
		return nil
	}

	result, err := api.BatchUpdateVariations(ctx, remoteParentID, batch)
	if err != nil {
		return fmt.Errorf("failed to submit variation batch: %w", err)
	}

	// Частичный сбой пакета приходит с кодом 200: ошибки лежат внутри
	// элементов ответа. Логируем каждую, состояние по вариациям не ведем.
	r.logBatchFailures(ctx, store, parent, result)

	return nil
}

// buildVariationPayload собирает payload вариации тем же конвейером,
// что и родителя; выбор атрибутов вариации разворачивается в пары
// {id, option} / {name, option}.
func (r *VariationReconciler) buildVariationPayload(ctx context.Context, api woocommerce.API, store models.TargetStore, variation *models.Product, excluded ExclusionSet) map[string]interface{} {
	payload := BuildBasePayload(variation, excluded)
	r.images.AttachImages(ctx, payload, variation, store, excluded)

	if !excluded.Has("attributes") {
		if attrs := r.attributes.ResolveSelection(ctx, api, store, variation.DefaultAttributes); len(attrs) > 0 {
			payload["attributes"] = attrs
		}
	}

	return payload
}

// fetchRemoteVariations выкачивает все вариации товара постранично
func (r *VariationReconciler) fetchRemoteVariations(ctx context.Context, api woocommerce.API, remoteParentID int64) ([]woocommerce.Variation, error) {
	var all []woocommerce.Variation
	for page := 1; ; page++ {
		variations, err := api.ListVariations(ctx, remoteParentID, page, r.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, variations...)
		if len(variations) < r.pageSize {
			return all, nil
		}
	}
}

func (r *VariationReconciler) logBatchFailures(ctx context.Context, store models.TargetStore, parent *models.Product, result *woocommerce.VariationBatchResult) {
	if result == nil {
		return
	}

	logItems := func(operation string, items []woocommerce.BatchItem) {
		for _, item := range items {
			if item.Error == nil {
				continue
			}
			r.logger.ErrorWithContext(ctx, "операция над вариацией отклонена магазином",
				interfaces.LogField{Key: "operation", Value: operation},
				interfaces.LogField{Key: "variation_id", Value: item.ID},
				interfaces.LogField{Key: "sku", Value: item.SKU},
				interfaces.LogField{Key: "product_id", Value: parent.ID},
				interfaces.LogField{Key: "store_id", Value: store.ID},
				interfaces.LogField{Key: "code", Value: item.Error.Code},
				interfaces.LogField{Key: "message", Value: item.Error.Message})
		}
	}

	logItems("create", result.Create)
	logItems("update", result.Update)
	logItems("delete", result.Delete)
}
