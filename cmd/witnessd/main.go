package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wchain/config"
	"wchain/internal/messaging/producer"
	"wchain/internal/signer"
	"wchain/internal/store"
	ledger "wchain/ledger/client"
	core "wchain/service/core"
	httphandler "wchain/service/http"
	pgstore "wchain/storage/store"
)

const configDir = "./config"

func main() {
	logger := log.New(os.Stdout, "[WITNESSD] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting Witness Service...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		logger.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.Service == nil {
		logger.Fatalf("FATAL: witness.defaults.yml not found in %s", configDir)
	}

	tickInterval, err := time.ParseDuration(cfg.Service.Scheduler.TickInterval)
	if err != nil {
		logger.Fatalf("FATAL: Invalid scheduler.tick_interval: %v", err)
	}
	ledgerTimeout, err := time.ParseDuration(cfg.Service.Scheduler.LedgerTimeout)
	if err != nil {
		logger.Fatalf("FATAL: Invalid scheduler.ledger_timeout: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize dependencies
	logger.Println("Generating witness signing key...")
	sgn, err := signer.New()
	if err != nil {
		logger.Fatalf("FATAL: Failed to generate signing key: %v", err)
	}
	logger.Printf("Witness public key: %s", sgn.PublicKey())

	receiptStore := store.New()

	logger.Println("Initializing ledger client...")
	if cfg.Ledger == nil {
		logger.Fatalf("FATAL: ledger.defaults.yml not found in %s", configDir)
	}
	backendCfg, err := ledger.LoadBackendSpecificConfig(cfg.Ledger.Backend, configDir)
	if err != nil {
		logger.Fatalf("FATAL: Failed to load ledger backend config: %v", err)
	}
	cfg.Ledger.BackendSpecific = backendCfg
	ledgerClient, err := ledger.NewLedgerClient(cfg.Ledger, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize ledger client: %v", err)
	}
	defer ledgerClient.Close()

	// 3. Optional side channels: settled-receipt archive and event stream
	var archive core.Archiver
	if cfg.Service.Database.Enabled() {
		logger.Println("Initializing settled-receipt archive...")
		pg, err := pgstore.NewPostgresStore(ctx, cfg.Service.Database.DSN,
			int32(cfg.Service.Database.MinConnections), int32(cfg.Service.Database.MaxConnections), logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to initialize settled-receipt archive: %v", err)
		}
		defer pg.Close()
		archive = pg
	} else {
		logger.Println("database.dsn not configured, skipping settled-receipt archive.")
	}

	var events core.EventPublisher
	if cfg.Service.Events.Enabled() {
		logger.Println("Initializing settlement-event producer...")
		kafkaProducer, err := producer.NewKafkaProducer(cfg.Service.Events, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to initialize settlement-event producer: %v", err)
		}
		defer kafkaProducer.Close()
		events = kafkaProducer
	} else {
		logger.Println("events.brokers not configured, skipping settlement-event stream.")
	}

	// 4. Core service: witnessing engine, verifier and settlement scheduler
	engine := core.NewEngine(sgn, receiptStore, logger)
	verifier := core.NewVerifier(sgn, receiptStore)
	scheduler := core.NewScheduler(receiptStore, ledgerClient, archive, events, logger, tickInterval, ledgerTimeout)
	defer scheduler.Close()

	handler := httphandler.NewWitnessHandler(engine, verifier, receiptStore, logger)

	// 5. HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/witness", handler.Witness)
	mux.HandleFunc("/v1/verify", handler.Verify)
	mux.HandleFunc("/v1/info", handler.Info)
	mux.HandleFunc("/health", handler.HealthCheck)

	readTimeout := cfg.Service.HttpServer.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 5 * time.Second
	}
	writeTimeout := cfg.Service.HttpServer.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	idleTimeout := cfg.Service.HttpServer.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}
	maxHeaderBytes := cfg.Service.HttpServer.MaxHeaderBytes
	if maxHeaderBytes == 0 {
		maxHeaderBytes = 1 << 20 // 1 MB
	}

	httpServer := &http.Server{
		Addr:           cfg.Service.HttpListenAddr,
		Handler:        mux,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("HTTP server listening on %s", cfg.Service.HttpListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server startup failed: %v", err)
		}
		logger.Println("HTTP server stopped listening.")
	}()

	logger.Println("Witness Service started. Press Ctrl+C to stop.")

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("Received shutdown signal: %s, starting graceful shutdown...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Println("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown failed: %v", err)
	} else {
		logger.Println("HTTP server shutdown.")
	}

	wg.Wait()
	logger.Println("Witness Service shut down gracefully.")
}
