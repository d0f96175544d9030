package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/checkin"
	"ms-volunteer/internal/checkin/checkin_api"
	checkinredis "ms-volunteer/internal/checkin/redis"
	"ms-volunteer/internal/config"
	"ms-volunteer/internal/database"
	"ms-volunteer/internal/directory"
	"ms-volunteer/internal/kafka"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/registrations/db"
	"ms-volunteer/internal/registrations/registration_api"
	"ms-volunteer/internal/registrations/service"
	"ms-volunteer/internal/sse"
	qr "ms-volunteer/internal/tickets/qr_generator"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func newTokenVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (auth.TokenVerifier, error) {
	switch {
	case cfg.OIDCIssuer != "":
		log.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.RolesClaim)
	case cfg.HMACSecret != "":
		log.Warn("AUTH", "Verifying bearer tokens with a shared HS256 secret; do not use in production")
		return auth.NewHMACVerifier(cfg.HMACSecret, cfg.RolesClaim), nil
	default:
		return nil, errors.New("set OIDC_ISSUER or JWT_HMAC_SECRET")
	}
}

func main() {
	log := logger.NewLogger("volunteer-service")
	defer log.Close()

	log.Info("APP", "Starting Volunteer Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := prepareSchema(ctx, cfg.Database, bunDB, log); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	}

	registrationStore := &db.DB{Bun: bunDB}
	directoryStore := &directory.DB{Bun: bunDB}

	// --- Scan gate ---
	var gate checkin.Gate = checkin.NewLocalGate()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisClient.Close()
		log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))

		redisGate := checkinredis.NewGate(redisClient, log)
		if cfg.Scan.AutoDismiss > 0 {
			if err := redisGate.EnableExpiryNotifications(ctx); err != nil {
				log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
			}
			go redisGate.WatchExpiry(ctx, func(sessionID string) {
				log.LogScan(sessionID, "AUTO_DISMISS", "result timed out, session unlocked")
			})
		}
		gate = redisGate
	}

	// --- Kafka ---
	var registrationPublisher service.EventPublisher
	var attendancePublisher checkin.AttendancePublisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		registrationPublisher = producer
		attendancePublisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		syncer := directory.NewSyncer(directoryStore, cfg.Kafka.Topics, log)
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, syncer.ConsumedTopics(), cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go consumer.Start(ctx, syncer.HandleMessage)
	}

	// --- Services ---
	registrationService := service.NewRegistrationService(
		registrationStore,
		directoryStore,
		registrationPublisher,
		qr.NewQRGenerator(cfg.Ticket.QRSize),
		log,
	)
	registrationService.RequireKnownEvent = cfg.Directory.RequireKnownEvent

	emitter := sse.NewScanEventEmitter()
	verifier := checkin.NewVerifier(registrationStore, attendancePublisher, log)
	sessions := checkin.NewController(verifier, gate, emitter, cfg.Scan.AutoDismiss, log)
	defer sessions.CloseAll(context.Background())

	tokenVerifier, err := newTokenVerifier(ctx, cfg.Auth, log)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}

	router := newRouter(
		log,
		tokenVerifier,
		registration_api.NewHandler(registrationService, log),
		checkin_api.NewHandler(sessions, log),
		checkin_api.NewSSEHandler(log, emitter),
	)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Volunteer Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Volunteer Service shutdown complete")
	}
}
