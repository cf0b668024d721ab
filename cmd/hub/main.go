package main

import (
	"context"

	"github.com/crop-up-dev/hub/config"
	"github.com/crop-up-dev/hub/internal/account"
	"github.com/crop-up-dev/hub/internal/api"
	"github.com/crop-up-dev/hub/internal/market"
	"github.com/crop-up-dev/hub/internal/market/feed"
	"github.com/crop-up-dev/hub/internal/trading"
	"github.com/crop-up-dev/hub/logger"
	"github.com/crop-up-dev/hub/pkg/binance"
	"github.com/crop-up-dev/hub/pkg/storage"
	"github.com/crop-up-dev/hub/pkg/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx := context.Background()

	// key-value backend for the account and portfolio repositories
	var store storage.Store
	switch cfg.Storage.Backend {
	case "postgres":
		client, err := postgres.InitializeAndMigrate(cfg.Storage.Postgres, cfg.Log.Environment, true)
		if err != nil {
			log.Fatal("failed to connect to DB", zap.Error(err))
		}
		defer client.Close()
		store = client
	default:
		log.Info("using in-memory storage backend")
		store = storage.NewMemoryStore()
	}

	accounts := account.NewService(store)
	if err := accounts.SeedAdmin(ctx, "cropup4@gmail.com", "Crop@2026"); err != nil {
		log.Fatal("failed to seed admin account", zap.Error(err))
	}
	profiles := account.NewProfileRepository(store)
	portfolio := trading.NewRepository(store)

	// market data pipeline: REST snapshots + shared live streams
	rest := binance.NewRESTClient(cfg.Binance.REST.BaseURL, cfg.Binance.REST.Timeout)
	dialer := binance.NewWSDialer(cfg.Binance.WS.URL)
	feeds := feed.NewManager(func(topic string) (feed.StreamConn, error) {
		return dialer.Dial(topic)
	}, cfg.Market.FeedBuffer, log)

	marketSvc, err := market.NewService(cfg.Market, rest, feeds, log)
	if err != nil {
		log.Fatal("invalid market config", zap.Error(err))
	}
	if err := marketSvc.Start(ctx); err != nil {
		// Degraded start: streams may be live while the candle history is
		// missing. Not fatal; the next interval/symbol switch refetches.
		log.Warn("market service started degraded", zap.Error(err))
	}
	defer marketSvc.Stop()
	defer feeds.Close()

	handler := api.NewHandler(marketSvc, portfolio, accounts, profiles, log)
	if err := handler.Router().Run(cfg.API.Addr); err != nil {
		log.Fatal("api server failed", zap.Error(err))
	}
}
