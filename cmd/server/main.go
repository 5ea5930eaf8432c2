// Package main runs the LP token tracker API server: providers, pool
// snapshot ledger and swap recording over PostgreSQL, with an optional
// ClickHouse balance-history archive and a websocket snapshot feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lp-token-tracker/internal/api"
	"lp-token-tracker/internal/domain"
	"lp-token-tracker/internal/ledger"
	"lp-token-tracker/internal/observability"
	"lp-token-tracker/internal/storage"
	chstore "lp-token-tracker/internal/storage/clickhouse"
	"lp-token-tracker/internal/storage/memory"
	"lp-token-tracker/internal/storage/migrations"
	pgstore "lp-token-tracker/internal/storage/postgres"
	"lp-token-tracker/internal/ws"
)

// stores holds the storage implementations the server runs on.
type stores struct {
	providers storage.ProviderStore
	snapshots storage.PoolSnapshotStore
	swaps     storage.SwapStore
	history   storage.BalanceHistoryStore // nil when no ClickHouse DSN is configured
}

func main() {
	// Load .env file if it exists; system env vars take precedence.
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the balance history archive (optional)")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := ws.NewHub()

	// Every snapshot write fans out to the websocket feed and, when
	// configured, the chart archive.
	notify := func(snap *domain.PoolSnapshot) {
		hub.Broadcast(snap)
		if st.history != nil {
			err := st.history.Insert(context.Background(), &domain.BalancePoint{
				RuneChart: snap.RuneChart,
				WbtcChart: snap.WbtcChart,
				Timestamp: snap.Timestamp,
			})
			observability.RecordBalancePointArchived(err)
			if err != nil {
				logger.Printf("archive balance point: %v", err)
			}
		}
	}

	led := ledger.New(ledger.Options{
		Snapshots: st.snapshots,
		Swaps:     st.swaps,
		OnAppend:  notify,
	})

	server := api.NewServer(api.Options{
		Addr:      *httpAddr,
		Providers: st.providers,
		Snapshots: st.snapshots,
		Swaps:     st.swaps,
		Ledger:    led,
		History:   st.history,
		Hub:       hub,
		Notify:    notify,
	})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go func() {
		logger.Printf("HTTP server listening on %s", *httpAddr)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores builds the storage layer and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*stores, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		st := &stores{
			providers: memory.NewProviderStore(),
			snapshots: memory.NewSnapshotStore(),
			swaps:     memory.NewSwapStore(),
			history:   memory.NewBalanceHistoryStore(),
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	logger.Println("PostgreSQL ready")

	st := &stores{
		providers: pgstore.NewProviderStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
		swaps:     pgstore.NewSwapStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("prepare clickhouse: %w", err)
		}
		st.history = chstore.NewBalanceHistoryStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
		logger.Println("ClickHouse balance history archive ready")
	}

	return st, cleanup, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
