package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/torqueware/shopboard/domains/appointments/be/handler"
	"github.com/torqueware/shopboard/domains/appointments/be/repo"
	"github.com/torqueware/shopboard/domains/appointments/be/service"
	"github.com/torqueware/shopboard/platform/go/clock"
	"github.com/torqueware/shopboard/platform/go/events"
	"github.com/torqueware/shopboard/platform/go/logging"
	platformmiddleware "github.com/torqueware/shopboard/platform/go/middleware"
	"github.com/torqueware/shopboard/platform/go/persistence"
	"github.com/torqueware/shopboard/platform/go/tenant"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | memory
	DatabaseURL     string        `env:"DATABASE_URL"`                        // required when STORE_BACKEND=postgres
	KafkaBrokers    string        `env:"KAFKA_BROKERS"`                       // optional; empty disables move events
	KafkaTopic      string        `env:"KAFKA_TOPIC" envDefault:"shopboard.appointments"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{Component: "board-api", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var store service.Store
	switch cfg.StoreBackend {
	case "memory":
		store = repo.NewMemoryStore()
		logger.Warn("using in-memory appointment store; data is lost on restart")
	case "postgres":
		if cfg.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)
		store = repo.NewPostgresStore(pool)
	default:
		logger.Fatal("unknown STORE_BACKEND", zap.String("store_backend", cfg.StoreBackend))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(events.SplitBrokers(cfg.KafkaBrokers), cfg.KafkaTopic)
		defer func() {
			_ = kafkaPublisher.Close()
		}()
		publisher = kafkaPublisher
		logger.Info("publishing board events", zap.String("topic", cfg.KafkaTopic))
	}

	svc := service.New(store, clock.System{}, logger)
	apptHandler := handler.New(svc, publisher, logger)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(logging.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(cfg.RequestTimeout))
	router.Use(platformmiddleware.DefaultCORS())

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(tenant.Middleware)
		apptHandler.Routes(r)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("board api listening", zap.String("port", cfg.Port), zap.String("store_backend", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}
