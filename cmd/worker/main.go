package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/config"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/cache"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/logger"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/messaging"
	"github.com/athebyme/storesync-platform/sync-service/internal/adapters/storage"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
	"github.com/athebyme/storesync-platform/sync-service/internal/domain/services"
	"github.com/athebyme/storesync-platform/sync-service/internal/utils"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метрики для Prometheus
var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_messages_processed_total",
		Help: "Общее количество обработанных сообщений",
	}, []string{"topic", "status"})

	messageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_message_processing_duration_seconds",
		Help:    "Длительность обработки сообщений",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worker_active_goroutines",
		Help: "Количество активных горутин-обработчиков",
	})
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	// HTTP сервер для метрик, если они включены
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			})

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: addr})

			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	db, err := storage.NewPostgresStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer db.Close()
	log.Info("Хранилище инициализировано")

	redisCache, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer redisCache.Close()
	log.Info("Кэш инициализирован")

	listCache := cache.NewMemoryCache(cfg.Sync.AttributeListTTL, cfg.Sync.AttributeListTTL)
	defer listCache.Close()

	messagingClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	clients := services.DefaultClientFactory(cfg.Sync.RequestTimeout)

	registry := services.NewStoreRegistry(db, clients, log)
	attributes := services.NewAttributeResolver(listCache, redisCache, cfg.Sync.AttributeListTTL, cfg.Sync.AttributeIDTTL, log)
	images := services.NewImageSyncTracker(db, log, cfg.Sync.RecordGalleryImages)
	linked := services.NewLinkedProductResolver(db, log)
	variations := services.NewVariationReconciler(db, attributes, images, log, cfg.Sync.VariationPageSize)
	syncService := services.NewSyncService(db, registry, attributes, images, linked, variations, clients, messagingClient, log)
	log.Info("Сервис синхронизации инициализирован")

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	worker := &productEventWorker{
		syncService:    syncService,
		registry:       registry,
		storage:        db,
		logger:         log,
		handleDeletion: cfg.Sync.HandleDeletion,
	}
	subscribeToProductEvents(ctx, messagingClient, worker, log, &wg)

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
		cancel()
		wg.Wait()
		close(done)
	}()

	log.Info("Воркер запущен и готов к обработке сообщений")
	<-done
	log.Info("Воркер корректно завершил работу")
}

// productEventWorker обрабатывает события изменения локального каталога
type productEventWorker struct {
	syncService    *services.SyncService
	registry       services.StoreRegistry
	storage        storage.SyncStorageInterface
	logger         interfaces.LoggerPort
	handleDeletion bool
}

// handle разбирает событие и запускает синхронизацию или удаление
func (w *productEventWorker) handle(ctx context.Context, msg *interfaces.Message) error {
	var event messaging.ProductEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to decode product event: %w", err)
	}

	switch event.Type {
	case messaging.ProductSavedEvent:
		return w.handleSaved(ctx, event)

	case messaging.ProductDeletedEvent:
		return w.handleDeleted(ctx, event)

	default:
		w.logger.WarnWithContext(ctx, "Неизвестный тип события",
			interfaces.LogField{Key: "event_type", Value: event.Type})
		return nil
	}
}

func (w *productEventWorker) handleSaved(ctx context.Context, event messaging.ProductEvent) error {
	allowed, err := w.registry.AllowedStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load allowed statuses: %w", err)
	}
	if !statusAllowed(event.Status, allowed) {
		w.logger.DebugWithContext(ctx, "Статус товара не входит в список синхронизируемых",
			interfaces.LogField{Key: "product_id", Value: event.ProductID},
			interfaces.LogField{Key: "status", Value: event.Status})
		return nil
	}

	stores, err := w.resolveStores(ctx, event.StoreIDs)
	if err != nil {
		return err
	}

	_, err = w.syncService.SyncProduct(ctx, event.ProductID, stores)
	return err
}

func (w *productEventWorker) handleDeleted(ctx context.Context, event messaging.ProductEvent) error {
	if !w.handleDeletion {
		w.logger.DebugWithContext(ctx, "Обработка удалений выключена, событие пропущено",
			interfaces.LogField{Key: "product_id", Value: event.ProductID})
		return nil
	}

	stores, err := w.resolveStores(ctx, event.StoreIDs)
	if err != nil {
		return err
	}

	w.syncService.DeleteRemoteCopies(ctx, event.ProductID, event.SKU, stores)
	return nil
}

// resolveStores превращает список идентификаторов из события в магазины.
// Пустой список означает все зарегистрированные магазины.
func (w *productEventWorker) resolveStores(ctx context.Context, storeIDs []string) ([]models.TargetStore, error) {
	if len(storeIDs) == 0 {
		return w.registry.ListTargetStores(ctx)
	}

	stores := make([]models.TargetStore, 0, len(storeIDs))
	for _, id := range storeIDs {
		store, err := w.registry.GetStore(ctx, id)
		if err != nil {
			w.logger.WarnWithContext(ctx, "Магазин из события не найден",
				interfaces.LogField{Key: "store_id", Value: id})
			continue
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

func statusAllowed(status string, allowed []string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// Подписка на события товаров
func subscribeToProductEvents(ctx context.Context, messagingClient interfaces.MessagingPort,
	worker *productEventWorker, log interfaces.LoggerPort, wg *sync.WaitGroup) {

	eventHandler := func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()
		activeWorkers.Inc()
		defer activeWorkers.Dec()

		log.InfoWithContext(ctx, "Получено событие товара",
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "topic", Value: msg.Topic},
		)

		if err := worker.handle(ctx, msg); err != nil {
			log.ErrorWithContext(ctx, "Ошибка обработки события",
				interfaces.LogField{Key: "error", Value: err.Error()},
				interfaces.LogField{Key: "message_id", Value: msg.ID},
			)
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		duration := time.Since(startTime).Seconds()
		messageProcessingDuration.WithLabelValues(msg.Topic).Observe(duration)
		messagesProcessed.WithLabelValues(msg.Topic, "success").Inc()

		log.InfoWithContext(ctx, "Событие успешно обработано",
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "duration", Value: duration},
		)

		return nil
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, messaging.ProductEventsTopic, eventHandler)
		if err != nil {
			log.Error("Ошибка подписки на события товаров",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer unsubscribe()

		log.Info("Подписка на события товаров установлена")

		<-ctx.Done()
		log.Info("Отмена подписки на события товаров")
	}()
}
