package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/liamcoop/quoting/catalog"
	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/internal/config"
	"github.com/liamcoop/quoting/internal/logger"
	"github.com/liamcoop/quoting/internal/metrics"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/quote"
	"github.com/liamcoop/quoting/rating"
	"github.com/liamcoop/quoting/underwriting"
)

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewServer wires the quoting service to db. The returned cleanup closes the
// Kafka writer, if any; the caller owns db.
func NewServer(ctx context.Context, db *sql.DB, cfg *config.Config) (*Server, func(), error) {
	questions := questionnaire.DefaultRegistry()
	rules := underwriting.DefaultRules()
	if err := questions.CheckRules(rules); err != nil {
		return nil, nil, fmt.Errorf("decline rules do not match questionnaires: %w", err)
	}
	decisions, err := underwriting.NewEngine(rules)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile decline rules: %w", err)
	}

	store := catalog.NewCachedStore(
		catalog.NewPostgresStore(db),
		catalog.NewInMemoryCache(catalog.CacheConfig{TTL: cfg.CatalogCacheTTL}),
	)
	checkCatalog(ctx, store, questions)

	recorders := quote.Recorders{quote.NewPostgresRecorder(db)}
	var kafkaRecorder *quote.KafkaRecorder
	if len(cfg.KafkaBrokers) > 0 {
		kafkaRecorder = quote.NewKafkaRecorder(quote.NewKafkaWriter(cfg.KafkaBrokers, cfg.QuoteTopic))
		recorders = append(recorders, kafkaRecorder)
		logger.Info("publishing quotes to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.QuoteTopic)
	}

	m := metrics.New()
	service := quote.NewService(
		questions,
		decisions,
		store,
		rating.NewEngine(rating.WithCurrencySymbol(cfg.CurrencySymbol)),
		quote.WithRecorder(recorders),
		quote.WithMetrics(m),
		quote.WithValidity(cfg.QuoteValidity),
		quote.WithRecordTimeout(cfg.RecordTimeout),
	)

	s := NewServerWithDeps(Deps{
		DB:             db,
		Service:        service,
		Catalog:        store,
		Questions:      questions,
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	cleanup := func() {
		if kafkaRecorder == nil {
			return
		}
		if err := kafkaRecorder.Close(); err != nil {
			logger.Warn("failed to close kafka writer", "error", err)
		}
	}
	return s, cleanup, nil
}

// checkCatalog loads every active factor once, which also warms the cache,
// and warns about factors the questionnaires cannot satisfy.
func checkCatalog(ctx context.Context, store catalog.Store, questions *questionnaire.Registry) {
	for _, typ := range insurance.Types() {
		factors, err := store.ListActiveFactors(ctx, typ)
		if err != nil {
			logger.WarnStartup("failed to load rating factors", "insurance_type", typ, "error", err)
			continue
		}
		if err := questions.CheckFactors(factors); err != nil {
			logger.WarnStartup("rating factors do not match questionnaire", "insurance_type", typ, "error", err)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	ctx := context.Background()
	if err := logger.Setup(ctx, logger.Options{
		Level:       cfg.LogLevel,
		SampleRate:  cfg.ErrorSampleRate,
		OTELEnabled: cfg.OTELEnabled,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		logger.Warn("logger setup", "error", err)
	}

	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	server, cleanup, err := NewServer(ctx, db, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := server.service.Wait(shutdownCtx); err != nil {
		logger.Warn("pending quote recordings abandoned", "error", err)
	}

	logger.Info("server stopped")
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
}
