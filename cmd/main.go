package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lavka/internal/auth"
	httpapi "lavka/internal/http"
	"lavka/internal/repository"
	"lavka/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":9091"
	}
	templates := os.Getenv("TEMPLATES_GLOB")
	if templates == "" {
		templates = "web/templates/*.html"
	}
	sessionTTL := 14 * 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sessionTTL = d
		} else {
			logger.Warn("invalid SESSION_TTL, using default", "value", v)
		}
	}

	var (
		products repository.ProductRepository
		orders   repository.OrderRepository
		items    repository.OrderItemRepository
		users    repository.UserRepository
		sessions repository.SessionRepository
		tx       repository.TxManager
	)

	// DATABASE_URL задан — работаем с postgres, иначе всё в памяти
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := repository.NewPostgresStore(ctx, dsn)
		if err != nil {
			cancel()
			logger.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
		cancel()
		defer store.Close()

		products = repository.NewPostgresProducts(store)
		orders = repository.NewPostgresOrders(store)
		items = repository.NewPostgresItems(store)
		users = repository.NewPostgresUsers(store)
		sessions = repository.NewPostgresSessions(store)
		tx = repository.NewPostgresTx(store)
		logger.Info("using postgres store")
	} else {
		store := repository.NewMemoryStore()
		products = store
		orders = repository.NewMemoryOrders(store)
		items = repository.NewMemoryItems(store)
		users = repository.NewMemoryUsers(store)
		sessions = repository.NewMemorySessions(store)
		tx = repository.NewMemoryTx(store)
		logger.Info("using in-memory store")
	}

	ledger := service.NewLedgerService(products, orders, items, tx)
	catalog := service.NewCatalogService(products, ledger, tx)
	authSvc := auth.NewService(users, sessions, sessionTTL)

	srv := httpapi.NewServer(catalog, ledger, authSvc, httpapi.Config{TemplatesGlob: templates})

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
