package services

import (
	"context"
	"testing"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/cache"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/logger"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() (*AttributeResolver, interfaces.CachePort, interfaces.CachePort) {
	lists := cache.NewMemoryCache(time.Minute, time.Minute)
	ids := cache.NewMemoryCache(time.Hour, time.Hour)
	r := NewAttributeResolver(lists, ids, time.Minute, time.Hour, logger.NewNopLogger())
	return r, lists, ids
}

func TestResolveAttributeIDCaching(t *testing.T) {
	r, lists, ids := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{
		{ID: 7, Name: "Color", Slug: "pa_color"},
		{ID: 8, Name: "Size", Slug: "pa_size"},
	}
	store := testStore("https://shop.example.com")
	ctx := context.Background()

	id, ok := r.ResolveAttributeID(ctx, api, store, "pa_color")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 1, api.listAttributesCalls)

	// Повторное разрешение идет из кэша, без сетевого вызова
	id, ok = r.ResolveAttributeID(ctx, api, store, "pa_color")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 1, api.listAttributesCalls)

	// Принудительное истечение обоих уровней кэша дает ровно один новый вызов
	require.NoError(t, ids.DeleteWithStore(ctx, "attr:pa_color", store.ID))
	require.NoError(t, lists.DeleteWithStore(ctx, "attributes", store.ID))

	id, ok = r.ResolveAttributeID(ctx, api, store, "pa_color")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 2, api.listAttributesCalls)
}

func TestResolveAttributeIDAmortizesListFetch(t *testing.T) {
	// Разрешение многих атрибутов одного товара стоит один сетевой вызов
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{
		{ID: 7, Slug: "pa_color"},
		{ID: 8, Slug: "pa_size"},
	}
	store := testStore("https://shop.example.com")
	ctx := context.Background()

	_, _ = r.ResolveAttributeID(ctx, api, store, "pa_color")
	_, _ = r.ResolveAttributeID(ctx, api, store, "pa_size")

	assert.Equal(t, 1, api.listAttributesCalls)
}

func TestResolveAttributeIDUnknownSlug(t *testing.T) {
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{{ID: 7, Slug: "pa_color"}}
	store := testStore("https://shop.example.com")

	_, ok := r.ResolveAttributeID(context.Background(), api, store, "pa_material")
	assert.False(t, ok)
}

func TestResolveAttributeIDRemoteError(t *testing.T) {
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.listAttributesErr = &woocommerce.APIError{StatusCode: 503, Message: "unavailable"}
	store := testStore("https://shop.example.com")

	_, ok := r.ResolveAttributeID(context.Background(), api, store, "pa_color")
	assert.False(t, ok)
}

func TestResolveAttributeIDIsolatesStores(t *testing.T) {
	// Кэши магазинов не пересекаются
	r, _, _ := newTestResolver()
	ctx := context.Background()

	first := newFakeAPI()
	first.attributes = []woocommerce.Attribute{{ID: 7, Slug: "pa_color"}}
	second := newFakeAPI()
	second.attributes = []woocommerce.Attribute{{ID: 70, Slug: "pa_color"}}

	idA, ok := r.ResolveAttributeID(ctx, first, testStore("https://a.example.com"), "pa_color")
	require.True(t, ok)
	idB, ok := r.ResolveAttributeID(ctx, second, testStore("https://b.example.com"), "pa_color")
	require.True(t, ok)

	assert.Equal(t, int64(7), idA)
	assert.Equal(t, int64(70), idB)
}

func TestResolveSelection(t *testing.T) {
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{{ID: 7, Slug: "pa_color"}}
	store := testStore("https://shop.example.com")

	entries := r.ResolveSelection(context.Background(), api, store, map[string]string{
		"pa_color":    "red",     // таксономический, разрешается в ID
		"pa_material": "cotton",  // таксономический, магазину неизвестен - отбрасывается
		"Finish":      "matte",   // произвольный, уходит по имени
	})

	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"name": "Finish", "option": "matte"}, entries[0])
	assert.Equal(t, map[string]interface{}{"id": int64(7), "option": "red"}, entries[1])
}

func TestResolveSelectionEmpty(t *testing.T) {
	r, _, _ := newTestResolver()
	assert.Nil(t, r.ResolveSelection(context.Background(), newFakeAPI(), testStore("https://shop.example.com"), nil))
}

func TestResolveAttributes(t *testing.T) {
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{{ID: 7, Slug: "pa_color"}}
	store := testStore("https://shop.example.com")

	entries := r.ResolveAttributes(context.Background(), api, store, []models.Attribute{
		{Slug: "pa_color", Options: []string{"red", "blue"}, Visible: true, Variation: true},
		{Slug: "pa_material", Options: []string{"cotton"}},
		{Name: "Finish", Options: []string{"matte"}, Visible: true},
	})

	require.Len(t, entries, 2)
	assert.Equal(t, int64(7), entries[0]["id"])
	assert.Equal(t, []string{"red", "blue"}, entries[0]["options"])
	assert.Equal(t, true, entries[0]["variation"])
	assert.Equal(t, "Finish", entries[1]["name"])
}

func TestAttributeTableNormalizesSlugs(t *testing.T) {
	// Магазин может отдавать слаги без префикса таксономии
	r, _, _ := newTestResolver()
	api := newFakeAPI()
	api.attributes = []woocommerce.Attribute{{ID: 9, Slug: "color"}}
	store := testStore("https://shop.example.com")

	id, ok := r.ResolveAttributeID(context.Background(), api, store, "pa_color")
	require.True(t, ok)
	assert.Equal(t, int64(9), id)
}
