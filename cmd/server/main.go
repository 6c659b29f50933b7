// Package main initializes and starts the cart HTTP server, setting up
// configuration, logging, database connections, repositories, services
// and handlers.
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/packcart/internal/config"
	"github.com/atinyakov/packcart/internal/db"
	"github.com/atinyakov/packcart/internal/logger"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/repository"
	"github.com/atinyakov/packcart/internal/server/handler/http"
	"github.com/atinyakov/packcart/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartStaleCartCleaner(ctx, postgresDB, options.CleanupInterval, options.Retention, zapLogger)

	// Initialize repositories.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	cartRepo := repository.NewPostgresCartRepository(postgresDB)
	wishlistRepo := repository.NewPostgresWishlistRepository(postgresDB)
	productRepo := repository.NewPostgresProductRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(authRepo)
	cartService := service.NewCartService(cartRepo, zapLogger)
	wishlistService := service.NewWishlistService(wishlistRepo)
	catalogService := service.NewCatalogService(productRepo)

	if options.Products != "" {
		if err := importProducts(ctx, catalogService, options.Products); err != nil {
			zapLogger.Fatal("failed to import products", zap.Error(err))
		}
		zapLogger.Info("products imported", zap.String("file", options.Products))
	}

	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService},
		&http.CartHandler{CartService: cartService},
		&http.WishlistHandler{WishlistService: wishlistService},
		&http.ProductHandler{ProductService: catalogService},
		authService,
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}

// importProducts loads a JSON array of products and stores it.
func importProducts(ctx context.Context, catalog *service.CatalogService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return catalog.Import(ctx, products)
}
