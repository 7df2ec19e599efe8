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

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-shuttle/internal/allocation"
	"ms-shuttle/internal/allocation/api"
	allocdb "ms-shuttle/internal/allocation/db"
	allockafka "ms-shuttle/internal/allocation/kafka"
	allocredis "ms-shuttle/internal/allocation/redis"
	"ms-shuttle/internal/boarding"
	boardingdb "ms-shuttle/internal/boarding/db"
	"ms-shuttle/internal/boarding/qr"
	"ms-shuttle/internal/config"
	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/requests"
	requestsdb "ms-shuttle/internal/requests/db"
	"ms-shuttle/internal/scheduler"
)

func main() {
	_ = godotenv.Load() // loads .env if present
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- SQLite setup ---
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.Path)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("open %s: %v", cfg.Database.Path, err))
	}
	defer sqldb.Close()

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	allocdb.Migrate(bunDB)

	// --- Redis setup ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("connect %s: %v", cfg.Redis.Addr, err))
	}
	runGuard := allocredis.NewLock(redisClient, time.Duration(cfg.Allocation.LockTTLMinutes)*time.Minute)

	// --- Kafka setup ---
	var publisher allocation.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer := allockafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.RunCompleted, cfg.Kafka.Topics.RunFailed)
		defer producer.Close()
		publisher = producer
	} else {
		log.Warn("KAFKA", "disabled, run events will not be published")
	}

	// --- Services ---
	engineDB := &allocdb.DB{Bun: bunDB}
	engine := allocation.NewService(engineDB, runGuard, publisher, log)

	requestSvc := requests.NewService(&requestsdb.DB{Bun: bunDB}, log)
	boardingSvc := boarding.NewService(&boardingdb.DB{Bun: bunDB}, qr.NewQRGenerator(cfg.Allocation.QRSecret), log)

	// --- Nightly trigger ---
	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	nightly := &scheduler.Scheduler{
		Allocation: engine,
		Requests:   requestSvc,
		Boarding:   boardingSvc,
		Logger:     log,
		RunHour:    cfg.Allocation.RunHour,
	}
	nightly.Start(schedCtx)

	// --- Router ---
	handler := &api.Handler{
		Allocation: engine,
		Requests:   requestSvc,
		Boarding:   boardingSvc,
		Logger:     log,
	}
	r := chi.NewRouter()
	handler.Routes(r)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "allocation service listening on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", err.Error())
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("forced shutdown: %v", err))
	}
	log.Info("SERVER", "exited gracefully")
}
