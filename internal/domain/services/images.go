package services

import (
	"context"
	"net"
	"net/url"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/remote/woocommerce"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
)

// ImageSyncTracker отслеживает, какие локальные изображения уже попали
// в какой магазин, чтобы не заливать их повторно. Записи хранятся
// по составному ключу (изображение, магазин) и никогда не чистятся.
type ImageSyncTracker struct {
	storage storage.SyncStorageInterface
	logger  interfaces.LoggerPort
	// recordGallery включает запись соответствий для изображений галереи
	// после создания товара. По умолчанию выключено: исторически
	// записывалось только главное изображение, и включение меняет
	// поведение повторных синхронизаций.
	recordGallery bool
}

func NewImageSyncTracker(storage storage.SyncStorageInterface, logger interfaces.LoggerPort, recordGallery bool) *ImageSyncTracker {
	return &ImageSyncTracker{
		storage:       storage,
		logger:        logger,
		recordGallery: recordGallery,
	}
}

// ResolveImageRef возвращает ссылку на изображение для payload:
// {id: N}, если изображение уже есть в магазине, {src: url}, если его
// можно забрать по URL, и пустую ссылку, если хост недостижим снаружи.
func (t *ImageSyncTracker) ResolveImageRef(ctx context.Context, imageID int64, store models.TargetStore) map[string]interface{} {
	record, err := t.storage.GetImageSyncRecord(ctx, imageID, store.ID)
	if err != nil {
		t.logger.WarnWithContext(ctx, "не удалось прочитать запись о синхронизации изображения",
			interfaces.LogField{Key: "image_id", Value: imageID},
			interfaces.LogField{Key: "store_id", Value: store.ID},
			interfaces.LogField{Key: "error", Value: err.Error()})
		return map[string]interface{}{}
	}
	if record != nil {
		return map[string]interface{}{"id": record.RemoteID}
	}

	media, err := t.storage.GetMedia(ctx, imageID)
	if err != nil || media == nil {
		return map[string]interface{}{}
	}

	if isLoopbackURL(media.URL) {
		t.logger.WarnWithContext(ctx, "изображение размещено на локальном хосте, магазин не сможет его забрать",
			interfaces.LogField{Key: "image_id", Value: imageID},
			interfaces.LogField{Key: "url", Value: media.URL},
			interfaces.LogField{Key: "store_id", Value: store.ID})
		return map[string]interface{}{}
	}

	return map[string]interface{}{"src": media.URL}
}

// AttachImages добавляет изображения товара в payload.
// Вариация получает одно изображение под ключом image,
// остальные типы - массив images: сначала главное, затем галерея.
// Пустые ссылки в payload не попадают.
func (t *ImageSyncTracker) AttachImages(ctx context.Context, payload models.Payload, p *models.Product, store models.TargetStore, excluded ExclusionSet) {
	if p.Type == models.TypeVariation {
		if excluded.Has("image") || excluded.Has("image_id") {
			return
		}
		if p.FeaturedImageID == 0 {
			return
		}
		if ref := t.ResolveImageRef(ctx, p.FeaturedImageID, store); len(ref) > 0 {
			payload["image"] = ref
		}
		return
	}

	if excluded.Has("images") {
		return
	}

	var images []map[string]interface{}
	if !excluded.Has("image_id") && p.FeaturedImageID != 0 {
		if ref := t.ResolveImageRef(ctx, p.FeaturedImageID, store); len(ref) > 0 {
			images = append(images, ref)
		}
	}
	if !excluded.Has("gallery_image_ids") {
		for _, imageID := range p.GalleryImageIDs {
			if ref := t.ResolveImageRef(ctx, imageID, store); len(ref) > 0 {
				images = append(images, ref)
			}
		}
	}

	if len(images) > 0 {
		payload["images"] = images
	}
}

// RecordImageSync сохраняет соответствие локального изображения удаленному
func (t *ImageSyncTracker) RecordImageSync(ctx context.Context, imageID int64, store models.TargetStore, remoteID int64) error {
	return t.storage.SaveImageSyncRecord(ctx, &models.ImageSyncRecord{
		ImageID:  imageID,
		StoreID:  store.ID,
		RemoteID: remoteID,
	})
}

// RecordCreatedImages записывает соответствия после создания товара.
// Первое изображение в ответе магазина соответствует главному изображению;
// остальные - галерее в порядке следования, но записываются только
// при включенном recordGallery.
func (t *ImageSyncTracker) RecordCreatedImages(ctx context.Context, p *models.Product, store models.TargetStore, remoteImages []woocommerce.Image) {
	if len(remoteImages) == 0 || p.FeaturedImageID == 0 {
		return
	}

	if err := t.RecordImageSync(ctx, p.FeaturedImageID, store, remoteImages[0].ID); err != nil {
		t.logger.WarnWithContext(ctx, "не удалось сохранить запись о синхронизации главного изображения",
			interfaces.LogField{Key: "image_id", Value: p.FeaturedImageID},
			interfaces.LogField{Key: "store_id", Value: store.ID})
	}

	if !t.recordGallery {
		return
	}

	rest := remoteImages[1:]
	for i, imageID := range p.GalleryImageIDs {
		if i >= len(rest) {
			break
		}
		if err := t.RecordImageSync(ctx, imageID, store, rest[i].ID); err != nil {
			t.logger.WarnWithContext(ctx, "не удалось сохранить запись о синхронизации изображения галереи",
				interfaces.LogField{Key: "image_id", Value: imageID},
				interfaces.LogField{Key: "store_id", Value: store.ID})
		}
	}
}

// isLoopbackURL сообщает, что хост URL указывает на локальную машину
func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
