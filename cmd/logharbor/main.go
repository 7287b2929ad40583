package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/logharbor/logharbor/internal/apps"
	"github.com/logharbor/logharbor/internal/config"
	"github.com/logharbor/logharbor/internal/ingest"
	"github.com/logharbor/logharbor/internal/markers"
	"github.com/logharbor/logharbor/internal/query"
	"github.com/logharbor/logharbor/internal/server"
	"github.com/logharbor/logharbor/internal/sources"
	"github.com/logharbor/logharbor/internal/store"
)

var args struct {
	Config        string `arg:"-c,--config,env:LOGHARBOR_CONFIG" help:"path to TOML config file"`
	IngestAddr    string `arg:"--ingest-addr,env:LOGHARBOR_INGEST_ADDR" help:"TCP ingest listen address"`
	HTTPAddr      string `arg:"--http-addr,env:LOGHARBOR_HTTP_ADDR" help:"HTTP API listen address"`
	MaxLogs       int    `arg:"--max-logs,env:LOGHARBOR_MAX_LOGS" help:"in-memory retention window in records"`
	WebDir        string `arg:"--web,env:LOGHARBOR_WEB_DIR" help:"directory of static dashboard files"`
	AdminPassword string `arg:"--admin-password,env:LOGHARBOR_ADMIN_PASSWORD" help:"enable auth with this admin password"`
}

func main() {
	arg.MustParse(&args)

	// Config file first, explicit flags and env on top.
	cfg, err := config.Load(args.Config)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if args.IngestAddr != "" {
		cfg.IngestAddr = args.IngestAddr
	}
	if args.HTTPAddr != "" {
		cfg.HTTPAddr = args.HTTPAddr
	}
	if args.MaxLogs != 0 {
		cfg.MaxLogs = args.MaxLogs
	}
	if args.WebDir != "" {
		cfg.WebDir = args.WebDir
	}
	if args.AdminPassword != "" {
		cfg.AdminPassword = args.AdminPassword
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Println("LogHarbor Receiver v0.1 Started...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Bounded in-memory store
	st := store.New(cfg.MaxLogs)
	st.StartRateTicker(ctx, 1*time.Second)
	log.Printf("Log store initialized. Capacity: %d records", cfg.MaxLogs)

	// 2. Supporting state: source registry, asset markers, dashboard apps
	reg := sources.NewRegistry()

	if dir := filepath.Dir(cfg.MarkersPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	ms := markers.NewStore(cfg.MarkersPath)
	if err := ms.Load(); err != nil {
		log.Fatalf("Failed to load markers: %v", err)
	}
	log.Printf("Markers loaded: %d from %s", ms.Count(), cfg.MarkersPath)

	appReg := apps.BuiltIn()

	// 3. TCP ingest listener
	recv := ingest.NewServer(st, reg, cfg.IdleTimeout)
	if err := recv.Listen(cfg.IngestAddr); err != nil {
		log.Fatalf("Failed to start ingest listener: %v", err)
	}
	log.Printf("Ingest listener on %s", recv.Addr())
	go recv.Serve(ctx)

	// 4. HTTP API server
	api := server.NewAPIServer(st, query.NewEngine(st), reg, ms, appReg, cfg.WebDir, cfg.AdminPassword)
	go func() {
		log.Printf("Listening on %s", cfg.HTTPAddr)
		log.Printf("Dashboard available at http://localhost%s", cfg.HTTPAddr)
		if err := api.Start(cfg.HTTPAddr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 5. Graceful shutdown hook
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	cancel()
	if err := recv.Close(); err != nil {
		log.Printf("Ingest listener close error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("LogHarbor exited gracefully.")
}
