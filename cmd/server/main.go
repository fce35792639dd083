package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/config"
	"shop-service/internal/api"
	"shop-service/internal/broker"
	"shop-service/internal/imagestore"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"
	"shop-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop service")

	tp, err := util.InitTracer("shop-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	images, err := imagestore.New(
		cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
		cfg.Minio.Bucket, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}
	log.Println("Image store initialized")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicShop)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	// Repositories first, then the components wired over them. No lazy
	// lookups: every dependency is passed in at construction.
	stockLedger := service.NewStockLedger(db, redisClient)
	catalogService := service.NewCatalogService(db, redisClient, images, eventPublisher)
	cartService := service.NewCartService(db)
	checkoutService := service.NewCheckoutService(db, eventPublisher)
	orderService := service.NewOrderService(db, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	statsConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicShop, cfg.Kafka.ConsumerGroup)
	statsWorker := worker.NewStatsWorker(statsConsumer, db, redisClient)
	go func() {
		if err := statsWorker.Start(workerCtx); err != nil {
			log.Printf("Stats worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		catalogService, cartService, checkoutService, orderService,
		stockLedger, redisClient, cfg.Auth.JWTSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	statsWorker.Stop()

	log.Println("Server exited")
}
