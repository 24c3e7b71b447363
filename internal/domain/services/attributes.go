package services

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// taxonomyPrefix - префикс слага таксономического атрибута.
// Атрибуты без префикса считаются произвольными и передаются по имени.
const taxonomyPrefix = "pa_"

// AttributeResolver сопоставляет локальные слаги атрибутов числовым ID
// удаленного магазина. Кэш двухуровневый: список атрибутов магазина живет
// недолго в памяти процесса, а разрешенные пары (магазин, слаг) -> ID
// хранятся в долгом кэше порядка недели.
type AttributeResolver struct {
	lists   interfaces.CachePort
	ids     interfaces.CachePort
	listTTL time.Duration
	idTTL   time.Duration
	logger  interfaces.LoggerPort
}

func NewAttributeResolver(
	lists interfaces.CachePort,
	ids interfaces.CachePort,
	listTTL time.Duration,
	idTTL time.Duration,
	logger interfaces.LoggerPort,
) *AttributeResolver {
	return &AttributeResolver{
		lists:   lists,
		ids:     ids,
		listTTL: listTTL,
		idTTL:   idTTL,
		logger:  logger,
	}
}

// ResolveAttributeID возвращает ID атрибута по слагу.
// Возвращает false, если у магазина нет атрибута с таким слагом -
// вызывающий код пропускает атрибут, а не падает.
func (r *AttributeResolver) ResolveAttributeID(ctx context.Context, api woocommerce.API, store models.TargetStore, slug string) (int64, bool) {
	cacheKey := "attr:" + slug

	if data, err := r.ids.GetWithStore(ctx, cacheKey, store.ID); err == nil {
		if id, parseErr := strconv.ParseInt(string(data), 10, 64); parseErr == nil {
			return id, true
		}
	}

	table, err := r.attributeTable(ctx, api, store)
	if err != nil {
		r.logger.WarnWithContext(ctx, "не удалось получить список атрибутов магазина",
			interfaces.LogField{Key: "store_id", Value: store.ID},
			interfaces.LogField{Key: "error", Value: err.Error()})
		return 0, false
	}

	id, ok := table[slug]
	if !ok {
		return 0, false
	}

	if err := r.ids.SetWithStore(ctx, cacheKey, []byte(strconv.FormatInt(id, 10)), store.ID, r.idTTL); err != nil {
		r.logger.WarnWithContext(ctx, "не удалось сохранить ID атрибута в кэш",
			interfaces.LogField{Key: "store_id", Value: store.ID},
			interfaces.LogField{Key: "slug", Value: slug})
	}

	return id, true
}

// attributeTable строит отображение слаг -> ID по полному списку атрибутов
// магазина. Список кэшируется коротким TTL, чтобы разрешение многих
// атрибутов одного товара стоило один сетевой вызов.
func (r *AttributeResolver) attributeTable(ctx context.Context, api woocommerce.API, store models.TargetStore) (map[string]int64, error) {
	if data, err := r.lists.GetWithStore(ctx, "attributes", store.ID); err == nil {
		var table map[string]int64
		if json.Unmarshal(data, &table) == nil {
			return table, nil
		}
	}

	attrs, err := api.ListAttributes(ctx)
	if err != nil {
		return nil, err
	}

	table := make(map[string]int64, len(attrs))
	for _, attr := range attrs {
		slug := attr.Slug
		if !strings.HasPrefix(slug, taxonomyPrefix) {
			slug = taxonomyPrefix + slug
		}
		table[slug] = attr.ID
	}

	if data, err := json.Marshal(table); err == nil {
		if err := r.lists.SetWithStore(ctx, "attributes", data, store.ID, r.listTTL); err != nil {
			r.logger.WarnWithContext(ctx, "не удалось сохранить список атрибутов в кэш",
				interfaces.LogField{Key: "store_id", Value: store.ID})
		}
	}

	return table, nil
}

// ResolveSelection преобразует выбор атрибутов (слаг/имя -> опция) в записи
// payload. Таксономические слаги дают {id, option}; неразрешимые молча
// отбрасываются. Произвольные имена дают {name, option} как есть.
// Записи упорядочены по ключу, чтобы payload был детерминирован.
func (r *AttributeResolver) ResolveSelection(ctx context.Context, api woocommerce.API, store models.TargetStore, selection map[string]string) []map[string]interface{} {
	if len(selection) == 0 {
		return nil
	}

	keys := make([]string, 0, len(selection))
	for key := range selection {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]map[string]interface{}, 0, len(selection))
	for _, key := range keys {
		option := selection[key]
		if strings.HasPrefix(key, taxonomyPrefix) {
			id, ok := r.ResolveAttributeID(ctx, api, store, key)
			if !ok {
				continue
			}
			entries = append(entries, map[string]interface{}{"id": id, "option": option})
			continue
		}
		entries = append(entries, map[string]interface{}{"name": key, "option": option})
	}

	return entries
}

// ResolveAttributes преобразует определения атрибутов товара в записи payload.
// Семантика разрешения та же, что у ResolveSelection, но с полным набором
// опций и флагами видимости.
func (r *AttributeResolver) ResolveAttributes(ctx context.Context, api woocommerce.API, store models.TargetStore, attrs []models.Attribute) []map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}

	entries := make([]map[string]interface{}, 0, len(attrs))
	for _, attr := range attrs {
		entry := map[string]interface{}{
			"options":   attr.Options,
			"visible":   attr.Visible,
			"variation": attr.Variation,
		}

		if strings.HasPrefix(attr.Slug, taxonomyPrefix) {
			id, ok := r.ResolveAttributeID(ctx, api, store, attr.Slug)
			if !ok {
				continue
			}
			entry["id"] = id
		} else {
			entry["name"] = attr.Name
		}

		entries = append(entries, entry)
	}

	return entries
}
