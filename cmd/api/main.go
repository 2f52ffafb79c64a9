package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nabil-inventory-api/internal/cloud"
	"nabil-inventory-api/internal/config"
	"nabil-inventory-api/internal/handler"
	"nabil-inventory-api/internal/router"
	"nabil-inventory-api/internal/service"
	"nabil-inventory-api/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting NABIL Inventory API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the on-device store
	if dir := filepath.Dir(cfg.LocalDB.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	localStore, err := store.NewSQLiteStore(cfg.LocalDB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize local store: %v", err)
	}
	defer localStore.Close()

	// Initialize cloud adapter based on config
	var adapter cloud.Adapter
	switch cfg.Cloud.Type {
	case "s3", "blob":
		blob, err := cloud.NewBlobAdapter(context.Background(), cloud.BlobConfig{
			Bucket:    cfg.Cloud.S3Bucket,
			Region:    cfg.Cloud.S3Region,
			Prefix:    cfg.Cloud.S3Prefix,
			Endpoint:  cfg.Cloud.S3Endpoint,
			AccessKey: cfg.Cloud.S3AccessKey,
			SecretKey: cfg.Cloud.S3SecretKey,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 cloud adapter: %v", err)
		}
		adapter = blob
		log.Println("S3 file-blob cloud adapter initialized")
	case "redis", "collections":
		collections, err := cloud.NewCollectionsAdapter(cloud.CollectionsConfig{
			Addr:     cfg.Cloud.RedisAddress(),
			Password: cfg.Cloud.RedisPassword,
			DB:       cfg.Cloud.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Redis cloud adapter: %v", err)
		}
		adapter = collections
		log.Println("Redis multi-collection cloud adapter initialized (live updates enabled)")
	default: // simulated
		simulated, err := cloud.NewSimulatedAdapter(cfg.Cloud.SimulatedDir)
		if err != nil {
			log.Fatalf("Failed to initialize simulated cloud adapter: %v", err)
		}
		adapter = simulated
		log.Println("Simulated cloud adapter initialized")
	}
	defer adapter.Close()

	// Initialize services
	inventoryService := service.NewInventoryService(localStore)
	coordinator := service.NewSyncCoordinator(localStore, adapter, inventoryService, service.SyncOptions{
		Debounce:       cfg.Sync.Debounce,
		PushTimeout:    cfg.Sync.PushTimeout,
		CleanupTimeout: cfg.Sync.CleanupTimeout,
	})
	defer coordinator.Close()

	// Restore a session persisted by a previous run
	if err := coordinator.Resume(context.Background()); err != nil {
		log.Printf("Warning: session resume failed: %v", err)
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	catalogHandler := handler.NewCatalogHandler(inventoryService, coordinator)
	syncHandler := handler.NewSyncHandler(coordinator, inventoryService)
	authHandler := handler.NewAuthHandler(coordinator)

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		CatalogHandler: catalogHandler,
		SyncHandler:    syncHandler,
		AuthHandler:    authHandler,
		Sessions:       coordinator,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
