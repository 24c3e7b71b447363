package services

import (
	"context"
	"testing"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/logger"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImageRef(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")

	t.Run("уже синхронизированное изображение дает ссылку по ID", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveImageSyncRecord(ctx, &models.ImageSyncRecord{
			ImageID: 5, StoreID: store.ID, RemoteID: 42,
		}))

		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		ref := tracker.ResolveImageRef(ctx, 5, store)

		assert.Equal(t, map[string]interface{}{"id": int64(42)}, ref)
	})

	t.Run("доступное изображение дает ссылку по URL", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 5, URL: "https://cdn.example.com/img.jpg"}))

		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		ref := tracker.ResolveImageRef(ctx, 5, store)

		assert.Equal(t, map[string]interface{}{"src": "https://cdn.example.com/img.jpg"}, ref)
	})

	t.Run("неизвестное изображение дает пустую ссылку", func(t *testing.T) {
		tracker := NewImageSyncTracker(newFakeStorage(), logger.NewNopLogger(), false)
		assert.Empty(t, tracker.ResolveImageRef(ctx, 5, store))
	})
}

func TestResolveImageRefLocalhost(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")

	tests := []struct {
		name string
		url  string
	}{
		{"localhost", "http://localhost/img.jpg"},
		{"loopback IPv4", "http://127.0.0.1/img.jpg"},
		{"loopback IPv6", "http://[::1]/img.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 5, URL: tt.url}))

			log := newRecordingLogger()
			tracker := NewImageSyncTracker(storage, log, false)
			ref := tracker.ResolveImageRef(ctx, 5, store)

			// Магазин не сможет забрать изображение с локального хоста:
			// поле опускается, пишется предупреждение, синхронизация не прерывается
			assert.Empty(t, ref)
			assert.Equal(t, 1, log.warnCount())
		})
	}
}

func TestAttachImages(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")

	t.Run("главное изображение и галерея", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 1, URL: "https://cdn.example.com/main.jpg"}))
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 2, URL: "https://cdn.example.com/extra.jpg"}))

		p := &models.Product{ID: 10, Type: models.TypeSimple, FeaturedImageID: 1, GalleryImageIDs: []int64{2}}
		payload := models.Payload{}

		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		tracker.AttachImages(ctx, payload, p, store, nil)

		images, ok := payload["images"].([]map[string]interface{})
		require.True(t, ok)
		require.Len(t, images, 2)
		assert.Equal(t, "https://cdn.example.com/main.jpg", images[0]["src"])
		assert.Equal(t, "https://cdn.example.com/extra.jpg", images[1]["src"])
	})

	t.Run("вариация получает одно изображение под ключом image", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 1, URL: "https://cdn.example.com/main.jpg"}))

		p := &models.Product{ID: 10, Type: models.TypeVariation, FeaturedImageID: 1}
		payload := models.Payload{}

		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		tracker.AttachImages(ctx, payload, p, store, nil)

		assert.NotContains(t, payload, "images")
		assert.Equal(t, map[string]interface{}{"src": "https://cdn.example.com/main.jpg"}, payload["image"])
	})

	t.Run("недостижимые изображения не попадают в payload", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 1, URL: "http://localhost/img.jpg"}))

		p := &models.Product{ID: 10, Type: models.TypeSimple, FeaturedImageID: 1}
		payload := models.Payload{}

		tracker := NewImageSyncTracker(storage, newRecordingLogger(), false)
		tracker.AttachImages(ctx, payload, p, store, nil)

		assert.NotContains(t, payload, "images")
	})

	t.Run("исключения убирают изображения", func(t *testing.T) {
		storage := newFakeStorage()
		require.NoError(t, storage.SaveMedia(ctx, &models.Media{ID: 1, URL: "https://cdn.example.com/main.jpg"}))

		p := &models.Product{ID: 10, Type: models.TypeSimple, FeaturedImageID: 1}
		payload := models.Payload{}

		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		tracker.AttachImages(ctx, payload, p, store, NewExclusionSet([]string{"images"}))

		assert.NotContains(t, payload, "images")
	})
}

func TestRecordCreatedImages(t *testing.T) {
	ctx := context.Background()
	store := testStore("https://shop.example.com")
	remoteImages := []woocommerce.Image{{ID: 42}, {ID: 43}}

	p := &models.Product{ID: 10, Type: models.TypeSimple, FeaturedImageID: 1, GalleryImageIDs: []int64{2}}

	t.Run("по умолчанию записывается только главное изображение", func(t *testing.T) {
		storage := newFakeStorage()
		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), false)
		tracker.RecordCreatedImages(ctx, p, store, remoteImages)

		record, err := storage.GetImageSyncRecord(ctx, 1, store.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, int64(42), record.RemoteID)

		record, err = storage.GetImageSyncRecord(ctx, 2, store.ID)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("с включенной записью галереи записываются все", func(t *testing.T) {
		storage := newFakeStorage()
		tracker := NewImageSyncTracker(storage, logger.NewNopLogger(), true)
		tracker.RecordCreatedImages(ctx, p, store, remoteImages)

		record, err := storage.GetImageSyncRecord(ctx, 2, store.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, int64(43), record.RemoteID)
	})
}
