package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/athebyme/storesync-platform/sync-service/internal/domain/services"
	"github.com/athebyme/storesync-platform/sync-service/internal/utils"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StoreHandler обработчик запросов управления магазинами и настройками
type StoreHandler struct {
	registry services.StoreRegistry
	logger   interfaces.LoggerPort
}

// NewStoreHandler создает новый обработчик магазинов
func NewStoreHandler(registry services.StoreRegistry, logger interfaces.LoggerPort) *StoreHandler {
	return &StoreHandler{
		registry: registry,
		logger:   logger,
	}
}

type addStoreRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

// ListStores обрабатывает запрос на получение списка магазинов
func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.registry.ListTargetStores(r.Context())
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка магазинов",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения списка магазинов",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    stores,
	})
}

// AddStore обрабатывает запрос на регистрацию магазина
func (h *StoreHandler) AddStore(w http.ResponseWriter, r *http.Request) {
	var req addStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный формат данных",
		})
		return
	}

	if req.URL == "" || req.ConsumerKey == "" || req.ConsumerSecret == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "validation_error",
			Code:    http.StatusBadRequest,
			Message: "URL и ключи магазина обязательны",
		})
		return
	}

	store, err := h.registry.AddStore(r.Context(), req.Name, req.URL, req.ConsumerKey, req.ConsumerSecret)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidStoreURL):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{
				Error:   "validation_error",
				Code:    http.StatusBadRequest,
				Message: "Некорректный URL магазина",
			})
		case errors.Is(err, utils.ErrStoreAlreadyExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, errorResponse{
				Error:   "conflict",
				Code:    http.StatusConflict,
				Message: "Магазин уже зарегистрирован",
			})
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка регистрации магазина",
				interfaces.LogField{Key: "error", Value: err.Error()})
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, errorResponse{
				Error:   "store_unreachable",
				Code:    http.StatusBadGateway,
				Message: "Не удалось проверить магазин",
			})
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data:    store,
	})
}

// RemoveStore обрабатывает запрос на удаление магазина
func (h *StoreHandler) RemoveStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")
	if storeID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "ID магазина не указан",
		})
		return
	}

	if err := h.registry.RemoveStore(r.Context(), storeID); err != nil {
		if errors.Is(err, utils.ErrStoreNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Магазин не найден",
			})
			return
		}

		h.logger.ErrorWithContext(r.Context(), "Ошибка удаления магазина",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка удаления магазина",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"id":      storeID,
			"deleted": true,
		},
	})
}

type settingsResponse struct {
	ExcludedFields  []string `json:"excluded_fields"`
	AllowedStatuses []string `json:"allowed_statuses"`
}

type excludedFieldsRequest struct {
	Fields []string `json:"fields"`
}

type allowedStatusesRequest struct {
	Statuses []string `json:"statuses"`
}

// GetSettings обрабатывает запрос на получение настроек синхронизации
func (h *StoreHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	excluded, err := h.registry.ExcludedFieldNames(r.Context())
	if err != nil {
		h.renderSettingsError(w, r, err)
		return
	}

	statuses, err := h.registry.AllowedStatuses(r.Context())
	if err != nil {
		h.renderSettingsError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: settingsResponse{
			ExcludedFields:  excluded,
			AllowedStatuses: statuses,
		},
	})
}

// SetExcludedFields обрабатывает запрос на обновление исключенных полей
func (h *StoreHandler) SetExcludedFields(w http.ResponseWriter, r *http.Request) {
	var req excludedFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный формат данных",
		})
		return
	}

	if err := h.registry.SetExcludedFields(r.Context(), req.Fields); err != nil {
		h.renderSettingsError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"excluded_fields": req.Fields,
		},
	})
}

// SetAllowedStatuses обрабатывает запрос на обновление списка статусов
func (h *StoreHandler) SetAllowedStatuses(w http.ResponseWriter, r *http.Request) {
	var req allowedStatusesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный формат данных",
		})
		return
	}

	if err := h.registry.SetAllowedStatuses(r.Context(), req.Statuses); err != nil {
		h.renderSettingsError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"allowed_statuses": req.Statuses,
		},
	})
}

func (h *StoreHandler) renderSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorWithContext(r.Context(), "Ошибка работы с настройками",
		interfaces.LogField{Key: "error", Value: err.Error()})
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, errorResponse{
		Error:   "internal_error",
		Code:    http.StatusInternalServerError,
		Message: "Ошибка работы с настройками",
	})
}
