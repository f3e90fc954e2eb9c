package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"foodshare-service/internal/adapters/notify"
	"foodshare-service/internal/adapters/repositories"
	"foodshare-service/internal/api"
	"foodshare-service/internal/config"
	"foodshare-service/internal/platform/auth"
	"foodshare-service/internal/ports"
	"foodshare-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters behind ports, resumes dispatch loops for open
// packages, and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/demo.json")
	port := config.Get("PORT", "8080")
	secret := config.Get("SESSION_SECRET", "")
	if secret == "" {
		log.Fatal("SESSION_SECRET is required")
	}

	sessionTTL := time.Duration(config.GetInt("SESSION_TTL_MINUTES", 20)) * time.Minute
	dispatchCfg := services.DispatchConfig{
		Interval:  config.GetDuration("NOTIFY_INTERVAL_SECONDS", 10*time.Second),
		BatchSize: config.GetInt("NOTIFY_BATCH_SIZE", 1),
	}

	db, err := openDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(db, seedPath); err != nil {
		log.Fatal(err)
	}

	store := repositories.NewStore(db)

	var filter services.ClientFilter
	if config.GetBool("NOTIFY_PAYING_ONLY", false) {
		filter = services.PayingOnly
	}
	resolver := services.NewEligibilityResolver(store, filter)

	var transport ports.NoticeTransport = notify.LogTransport{}
	if addr := config.Get("REDIS_ADDR", ""); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		transport = notify.NewRedisTransport(client, config.Get("NOTIFY_QUEUE", notify.DefaultQueue))
	}

	dispatcher := services.NewDispatcher(dispatchCfg, store, store, store, resolver, transport)
	arbiter := services.NewClaimArbiter(store, store, dispatcher)
	sessions := auth.NewSessionManager(secret, sessionTTL, store, store)

	// Packages created before a restart still need their loops.
	if err := resumeLoops(store, dispatcher); err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(arbiter, store, store, sessions)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening addr=:%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dispatcher.StopAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	// SQLite serializes writers; one connection avoids lock contention
	// between dispatch ticks and request handlers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); os.IsNotExist(err) {
		log.Printf("No seed file at %q, skipping", seedPath)
		return nil
	}

	if err := repositories.SeedFromJSON(db, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

func resumeLoops(store ports.PackageStore, dispatcher *services.Dispatcher) error {
	open, err := store.ListOpen(context.Background(), time.Now())
	if err != nil {
		return fmt.Errorf("resume loops: %w", err)
	}

	for _, pkg := range open {
		dispatcher.Start(pkg.PackageID)
	}

	log.Printf("Resumed dispatch loops count=%d", len(open))
	return nil
}
