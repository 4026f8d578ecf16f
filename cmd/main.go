package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelAppointmentHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/cancel_appointment"
	createAppointmentHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/create_appointment"
	getAppointmentHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/get_appointment"
	getCustomerAppointmentsHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/get_customer_appointments"
	getFreeSlotsHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/get_free_slots"
	getStaffAppointmentsHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/get_staff_appointments"
	getStaffScheduleHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/get_staff_schedule"
	rescheduleAppointmentHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/reschedule_appointment"
	updateAppointmentStatusHandler "github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers/update_appointment_status"
	"github.com/d-okhotin/SPA-BookingEngine/internal/api/middleware"
	"github.com/d-okhotin/SPA-BookingEngine/internal/config"
	"github.com/d-okhotin/SPA-BookingEngine/internal/infra/events"
	appointmentRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/appointment"
	availabilityRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/availability"
	directoryServiceClient "github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
	appointmentsService "github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments"
	scheduleService "github.com/d-okhotin/SPA-BookingEngine/internal/service/schedule"
	bookAppointmentUC "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/book_appointment"
	listFreeSlotsUC "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/list_free_slots"
	rescheduleAppointmentUC "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/reschedule_appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/dbmetrics"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/logger"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/metrics"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/simpletxmanager"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SPA-BookingEngine...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем клиента справочника мастеров и клиентов
	directoryClient := directoryServiceClient.NewClient(
		cfg.DirectoryService.URL,
		time.Duration(cfg.DirectoryService.Timeout)*time.Second,
		log,
	)
	log.Info("DirectoryService client initialized (url=%s, timeout=%ds)",
		cfg.DirectoryService.URL, cfg.DirectoryService.Timeout)

	// Инициализируем publisher доменных событий
	var publisher appointmentsService.EventPublisher
	if cfg.Events.Enabled {
		redisPublisher, err := events.NewRedisPublisher(cfg.Events.RedisAddr, cfg.Events.Channel)
		if err != nil {
			log.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
		log.Info("Redis event publisher initialized (addr=%s, channel=%s)", cfg.Events.RedisAddr, cfg.Events.Channel)
	} else {
		publisher = events.NewLogPublisher(log)
		log.Info("Event publishing disabled, events go to log only")
	}

	// Инициализируем репозитории и transaction manager (с метриками или без)
	var (
		apptRepository  *appointmentRepo.Repository
		availRepository *availabilityRepo.Repository
	)

	type TxManager interface {
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		apptRepository = appointmentRepo.NewRepository(wrappedDB)
		availRepository = availabilityRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		apptRepository = appointmentRepo.NewRepository(db)
		availRepository = availabilityRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем сервисы
	apptSvc := appointmentsService.NewService(
		apptRepository,
		txMgr,
		publisher,
		log,
	)
	scheduleSvc := scheduleService.NewService(
		availRepository,
		directoryClient,
		log,
	)

	// Инициализируем use cases
	listFreeSlotsUseCase := listFreeSlotsUC.NewUseCase(
		apptRepository,
		availRepository,
		directoryClient,
		log,
	)

	bookAppointmentUseCase := bookAppointmentUC.NewUseCase(
		apptRepository,
		availRepository,
		directoryClient,
		txMgr,
		log,
	)

	rescheduleAppointmentUseCase := rescheduleAppointmentUC.NewUseCase(
		apptRepository,
		availRepository,
		txMgr,
		log,
	)

	// Инициализируем handlers
	getFreeSlots := getFreeSlotsHandler.NewHandler(listFreeSlotsUseCase, log)
	createAppointment := createAppointmentHandler.NewHandler(bookAppointmentUseCase, log)
	rescheduleAppointment := rescheduleAppointmentHandler.NewHandler(rescheduleAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(apptSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(apptSvc, log)
	updateAppointmentStatus := updateAppointmentStatusHandler.NewHandler(apptSvc, log)
	getStaffAppointments := getStaffAppointmentsHandler.NewHandler(apptSvc, log)
	getCustomerAppointments := getCustomerAppointmentsHandler.NewHandler(apptSvc, log)
	getStaffSchedule := getStaffScheduleHandler.NewHandler(scheduleSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты мастера на дату
	api.HandleFunc("/staff/{staffId}/free-slots", getFreeSlots.Handle).Methods(http.MethodGet)

	// Расписание мастера (правила за период или разрешённый день)
	api.HandleFunc("/staff/{staffId}/schedule", getStaffSchedule.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи ---
	// Создание записи
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)

	// Получение записи по ID или номеру
	protected.HandleFunc("/appointments/{id}", getAppointment.Handle).Methods(http.MethodGet)

	// Отмена записи
	protected.HandleFunc("/appointments/{id}/cancel", cancelAppointment.Handle).Methods(http.MethodPost)

	// Смена статуса записи (включая реактивацию)
	protected.HandleFunc("/appointments/{id}/status", updateAppointmentStatus.Handle).Methods(http.MethodPatch)

	// Перенос записи на другой слот
	protected.HandleFunc("/appointments/{id}/reschedule", rescheduleAppointment.Handle).Methods(http.MethodPost)

	// История записей клиента
	protected.HandleFunc("/customers/{customerId}/appointments", getCustomerAppointments.Handle).Methods(http.MethodGet)

	// Записи мастера с фильтрацией
	protected.HandleFunc("/staff/{staffId}/appointments", getStaffAppointments.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
