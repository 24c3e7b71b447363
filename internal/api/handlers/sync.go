package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/services"
	"github.com/athebyme/storesync-platform/sync-service/internal/utils"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SyncHandler обработчик запросов ручного запуска синхронизации
type SyncHandler struct {
	syncService *services.SyncService
	registry    services.StoreRegistry
	storage     storage.SyncStorageInterface
	logger      interfaces.LoggerPort
}

// NewSyncHandler создает новый обработчик синхронизации
func NewSyncHandler(
	syncService *services.SyncService,
	registry services.StoreRegistry,
	storage storage.SyncStorageInterface,
	logger interfaces.LoggerPort,
) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		registry:    registry,
		storage:     storage,
		logger:      logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type syncRequest struct {
	// StoreIDs сужает синхронизацию до перечисленных магазинов;
	// пустой список означает все зарегистрированные
	StoreIDs []string `json:"store_ids"`
}

// SyncProduct обрабатывает запрос на синхронизацию товара с магазинами
func (h *SyncHandler) SyncProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный ID товара",
		})
		return
	}

	var req syncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{
				Error:   "bad_request",
				Code:    http.StatusBadRequest,
				Message: "Некорректный формат данных",
			})
			return
		}
	}

	stores, err := h.resolveStores(r, req.StoreIDs)
	if err != nil {
		h.renderStoreError(w, r, err)
		return
	}

	product, err := h.storage.GetProduct(r.Context(), productID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка загрузки товара",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка загрузки товара",
		})
		return
	}
	if product == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{
			Error:   "not_found",
			Code:    http.StatusNotFound,
			Message: "Товар не найден",
		})
		return
	}

	results, err := h.syncService.SyncProduct(r.Context(), productID, stores)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка синхронизации товара",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка синхронизации товара",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    results,
	})
}

// DeleteRemoteCopies обрабатывает запрос на удаление копий товара из магазинов
func (h *SyncHandler) DeleteRemoteCopies(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный ID товара",
		})
		return
	}

	// Локальный товар к этому моменту может быть уже удален,
	// поэтому артикул разрешается принимать и параметром запроса
	sku := r.URL.Query().Get("sku")
	if sku == "" {
		product, err := h.storage.GetProduct(r.Context(), productID)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{
				Error:   "internal_error",
				Code:    http.StatusInternalServerError,
				Message: "Ошибка загрузки товара",
			})
			return
		}
		if product == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Товар не найден и артикул не указан",
			})
			return
		}
		sku = product.SKU
	}

	stores, err := h.registry.ListTargetStores(r.Context())
	if err != nil {
		h.renderStoreError(w, r, err)
		return
	}

	h.syncService.DeleteRemoteCopies(r.Context(), productID, sku, stores)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"product_id": productID,
			"deleted":    true,
		},
	})
}

// resolveStores превращает список идентификаторов в магазины.
// Пустой список означает все зарегистрированные магазины.
func (h *SyncHandler) resolveStores(r *http.Request, storeIDs []string) ([]models.TargetStore, error) {
	if len(storeIDs) == 0 {
		return h.registry.ListTargetStores(r.Context())
	}

	stores := make([]models.TargetStore, 0, len(storeIDs))
	for _, id := range storeIDs {
		store, err := h.registry.GetStore(r.Context(), id)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

func (h *SyncHandler) renderStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, utils.ErrStoreNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{
			Error:   "not_found",
			Code:    http.StatusNotFound,
			Message: "Магазин не найден",
		})
		return
	}

	h.logger.ErrorWithContext(r.Context(), "Ошибка получения магазинов",
		interfaces.LogField{Key: "error", Value: err.Error()})
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, errorResponse{
		Error:   "internal_error",
		Code:    http.StatusInternalServerError,
		Message: "Ошибка получения магазинов",
	})
}
