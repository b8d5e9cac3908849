// Command server runs the rebalancing backend: REST API, market data
// feeds, the recommendation engine and the on-chain execution pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"starknet-pilot/internal/config"
	"starknet-pilot/internal/domain"
	"starknet-pilot/internal/gateway"
	"starknet-pilot/internal/httpapi"
	"starknet-pilot/internal/marketdata"
	"starknet-pilot/internal/observability"
	"starknet-pilot/internal/pipeline"
	"starknet-pilot/internal/predict"
	"starknet-pilot/internal/session"
	"starknet-pilot/internal/starknet"
	"starknet-pilot/internal/storage"
	chstore "starknet-pilot/internal/storage/clickhouse"
	"starknet-pilot/internal/storage/memory"
	"starknet-pilot/internal/storage/migrations"
	pgstore "starknet-pilot/internal/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	stores, cleanup, err := createStores(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	client := starknet.NewHTTPClient(cfg.Starknet.RPCURL)

	var registry *gateway.SessionKey
	if cfg.Starknet.SessionRegistryAddress != "" {
		registry = gateway.NewSessionKey(client, cfg.Starknet.SessionRegistryAddress)
	}
	vault := gateway.NewVault(client, cfg.Starknet.VaultAddress)
	positions := gateway.NewPositions(client, cfg.Starknet.PositionAddress)
	rebalance := gateway.NewRebalance(client, cfg.Starknet.RebalanceAddress)

	provider, closeStream, err := createMarketProvider(ctx, cfg.Binance, log)
	if err != nil {
		return fmt.Errorf("create market provider: %w", err)
	}
	defer closeStream()

	engine := predict.NewGeminiEngine(cfg.Gemini.APIKey, cfg.Gemini.Model, log)
	authority := session.NewAuthority(stores.keys, registry, cfg.Starknet.RequiredScope)
	sessions := session.NewService(stores.keys, cfg.SessionKeyTTL, log)

	executor := pipeline.NewExecutor(
		authority,
		provider,
		engine,
		rebalance,
		client,
		stores.ledger,
		stores.archive,
		log,
	)

	api := httpapi.NewServer(executor, sessions, stores.ledger, stores.archive, provider, vault, positions, log)

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown")
	}
	return ctx.Err()
}

// allStores holds the storage implementations behind the pipeline and
// the API.
type allStores struct {
	keys    storage.SessionKeyStore
	ledger  storage.TransactionLogStore
	archive storage.DecisionArchive
}

func createStores(ctx context.Context, cfg config.Storage) (*allStores, func(), error) {
	if cfg.UseMemory {
		stores := &allStores{
			keys:    memory.NewSessionKeyStore(),
			ledger:  memory.NewTransactionLogStore(),
			archive: memory.NewDecisionArchive(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		keys:    pgstore.NewSessionKeyStore(pool),
		ledger:  pgstore.NewTransactionLogStore(pool),
		archive: chstore.NewDecisionArchiveStore(conn),
	}
	cleanup := func() {
		_ = conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

func createMarketProvider(ctx context.Context, cfg config.Binance, log zerolog.Logger) (marketdata.Provider, func(), error) {
	// Public market data endpoints need no API credentials.
	client := binance.NewClient("", "")

	if !cfg.StreamEnabled {
		return marketdata.NewBinanceProvider(client, nil), func() {}, nil
	}

	symbols := []string{
		marketdata.SymbolFor(domain.PairETHUSDC),
		marketdata.SymbolFor(domain.PairBTCUSDC),
	}
	stream, err := marketdata.NewTickerStream(ctx, cfg.WSEndpoint, symbols, nil, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect ticker stream: %w", err)
	}

	provider := marketdata.NewBinanceProvider(client, stream)
	return provider, func() { _ = stream.Close() }, nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return mux
}
