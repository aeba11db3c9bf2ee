package main

import (
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"mms/internal/config"
	"mms/internal/handlers"
	"mms/internal/iec"
	"mms/internal/ingest"
	"mms/internal/storage"
)

func main() {
	// Build the configuration once; nothing reads the environment after this.
	cfg := config.FromEnv()

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal("Failed to create data directory:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize PocketBase store with data directory
	store, err := storage.NewPocketBaseStore(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	// Initialize batch source manager and verification client
	manager := ingest.NewSourceManager()
	client := iec.NewClient(cfg.IECBaseURL, cfg.IECTimeout, logger)

	// Initialize handlers
	batchHandler := handlers.NewBatchHandler(store, manager, client, cfg, logger)
	mappingHandler := handlers.NewMappingHandler(store, cfg.VDMatchWindow, logger)

	// Create mux router
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/api/batches", batchHandler.HandleGetBatch)
	mux.HandleFunc("/api/batches/{id}", batchHandler.HandleGetBatch)
	mux.HandleFunc("/api/batches/{id}/outcomes", batchHandler.HandleGetBatchOutcomes)
	mux.HandleFunc("/api/batches/verify", batchHandler.HandleVerifyBatch)
	mux.HandleFunc("/api/batches/prescreen", batchHandler.HandlePrescreenBatch)
	mux.HandleFunc("/api/mappings/{level}/bulk", mappingHandler.HandleBulkSaveMappings)
	mux.HandleFunc("/api/mappings/{level}/{external_id}", mappingHandler.HandleLookupMapping)

	// Add health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Start server
	log.Printf("Server starting on :%s...", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatal(err)
	}
}
