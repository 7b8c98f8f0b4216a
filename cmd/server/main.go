package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventorium/internal/config"
	"inventorium/internal/handler"
	"inventorium/internal/hub"
	"inventorium/internal/inventory"
	"inventorium/internal/repository"
	"inventorium/internal/repository/sqlite"
	"inventorium/internal/service"
	"inventorium/internal/watcher"
)

func main() {
	// Command line flags override the config file
	configPath := flag.String("config", "", "config file path")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path, empty disables persistence")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Inventorium server...")

	cfg, cfgFile, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfgFile != "" {
		log.Printf("Config: %s (%s)", cfgFile, cfg.Summary())
	} else {
		log.Printf("Config: defaults (%s)", cfg.Summary())
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Persistence is optional; an empty path keeps everything in memory
	var repo repository.Repository
	if cfg.Database.Path != "" {
		sqliteRepo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
		log.Printf("Database: %s", cfg.Database.Path)
	} else {
		log.Println("Database: disabled, running in memory")
	}

	// Event bus for change notifications
	eventBus := service.NewEventBus()

	// SSE hub for browser clients
	sseHub := hub.New()
	go sseHub.Run()

	// Bridge events from the bus to SSE clients
	eventChan := make(chan service.Event, 64)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Broadcast(event)
		}
	}()

	var storeOpts []inventory.Option
	if len(cfg.Localhost.Aliases) > 0 {
		storeOpts = append(storeOpts, inventory.WithLocalhostAliases(cfg.Localhost.Aliases))
	}

	svc := service.NewInventoryService(repo, eventBus, storeOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Restore(ctx, storeOpts...); err != nil {
		log.Fatalf("Failed to restore inventory: %v", err)
	}

	if len(cfg.Sources) > 0 {
		if err := svc.LoadSourceFiles(ctx, cfg.Sources); err != nil {
			log.Fatalf("Failed to load sources: %v", err)
		}
		log.Printf("Loaded %d source file(s)", len(cfg.Sources))
	}

	invHandler := handler.NewInventoryHandler(svc)
	if len(cfg.Sources) > 0 {
		invHandler.SetSourceReloader(&sourceReloader{svc: svc, paths: cfg.Sources})

		if cfg.Watch {
			w := watcher.New(cfg.Sources, func(ctx context.Context) error {
				return svc.LoadSourceFiles(ctx, cfg.Sources)
			})
			go func() {
				if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Watcher stopped: %v", err)
				}
			}()
		}
	}

	mux := http.NewServeMux()
	invHandler.Routes(mux)
	mux.Handle("GET /events", sseHub)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Chain(mux, handler.Recover, handler.CORS, handler.Logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	if err := svc.Save(context.Background()); err != nil {
		log.Printf("Failed to persist final snapshot: %v", err)
	}

	log.Println("Server stopped")
	os.Exit(0)
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// sourceReloader re-reads the configured source files on demand.
type sourceReloader struct {
	svc   *service.InventoryService
	paths []string
}

func (r *sourceReloader) Reload(ctx context.Context) error {
	return r.svc.LoadSourceFiles(ctx, r.paths)
}
