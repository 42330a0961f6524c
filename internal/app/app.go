package app

import (
	"fmt"
	"net/http"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/flagday/scorecard/internal/config"
	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/infrastructure/repository/memory"
	"github.com/flagday/scorecard/internal/infrastructure/repository/postgres"
	"github.com/flagday/scorecard/internal/infrastructure/ticker"
	"github.com/flagday/scorecard/internal/interfaces/httpapi"
	"github.com/flagday/scorecard/internal/platform/logging"
	"github.com/flagday/scorecard/internal/platform/resilience"
	"github.com/flagday/scorecard/internal/usecase"
)

// NewHTTPServer wires repository, publisher, service and router into a ready
// to run server. The returned cleanup releases the service worker pool and
// the database handle.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	repo, closeRepo, err := buildRepository(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	service, err := usecase.NewScorecardService(repo, buildPublisher(cfg, logger), logger)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	handler := httpapi.NewHandler(service, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.ScorerToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		service.Close()
		closeRepo()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func() {
		service.Close()
		closeRepo()
	}
	return server, cleanup, nil
}

func buildRepository(cfg config.Config, logger *logging.Logger) (scorecard.Repository, func(), error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Info("scorecard repository", "backend", "memory")
		return memory.NewScorecardRepository(), func() {}, nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Info("scorecard repository", "backend", "postgres", "db_name", dbNameFromURL(dbURL))
	return postgres.NewScorecardRepository(db), func() { _ = db.Close() }, nil
}

func buildPublisher(cfg config.Config, logger *logging.Logger) usecase.SnapshotPublisher {
	if !cfg.TickerEnabled {
		logger.Info("ticker publisher disabled", "reason", "TICKER_ENABLED=false")
		return nil
	}

	return ticker.NewPublisher(ticker.PublisherConfig{
		BaseURL:    cfg.TickerBaseURL,
		Token:      cfg.TickerToken,
		Timeout:    cfg.TickerTimeout,
		MaxRetries: cfg.TickerMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.TickerCircuitEnabled,
			FailureThreshold: cfg.TickerCircuitFailureCount,
			OpenTimeout:      cfg.TickerCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.TickerCircuitHalfOpenMaxReq,
		},
	})
}
