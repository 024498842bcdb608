package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/application"
	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	auctionhttp "github.com/cristianortiz/multiCurrencyAuction/internal/auction/infra/http"
	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/multiCurrencyAuction/internal/auction/infra/websocket"
	"github.com/cristianortiz/multiCurrencyAuction/internal/ledger/api"
	"github.com/cristianortiz/multiCurrencyAuction/internal/ledger/memory"
	pricing "github.com/cristianortiz/multiCurrencyAuction/internal/pricing/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/config"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/db"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/db/migrations"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/httpserver"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/websocket"
	"go.uber.org/zap"
)

// auctionReaderFunc lets the websocket broadcaster read auctions from a service built after it.
type auctionReaderFunc func(ctx context.Context, id ids.AuctionID) (*application.AuctionStateDTO, error)

func (f auctionReaderFunc) GetAuction(ctx context.Context, id ids.AuctionID) (*application.AuctionStateDTO, error) {
	return f(ctx, id)
}

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Loading configuration failed", zap.Error(err))
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("Invalid LOG_LEVEL, keeping default", zap.String("level", cfg.Log.Level), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting multi-currency auction engine...")

	// Simulated ledger: the engine account holds escrowed funds and assets.
	prices := pricing.NewNormalizer()
	network := api.NewNetwork(memory.NewBank(ids.Engine), memory.NewAssets(ids.Engine), prices)
	if _, err := network.Deploy(api.InstrumentSpec{
		Symbol:   "ETH",
		Decimals: cfg.Auction.NativeDecimals,
		PriceUSD: cfg.Auction.NativePriceUSD,
		Native:   true,
	}); err != nil {
		log.Fatal("Deploying native instrument failed", zap.Error(err))
	}

	hub := websocket.NewHub()
	var service application.AuctionService
	publishers := domain.Publishers{
		auctionws.NewBroadcaster(auctionReaderFunc(func(ctx context.Context, id ids.AuctionID) (*application.AuctionStateDTO, error) {
			return service.GetAuction(ctx, id)
		}), hub),
	}

	var bidRepo domain.BidRepository
	if cfg.DB.Enabled {
		dsn := cfg.PostgresDSN()

		log.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg.DB.MigrationsPath, dsn); err != nil {
			log.Fatal("Database migration failed", zap.Error(err))
		}
		log.Info("Database migrations completed successfully.")

		pool, err := db.GetPostgresDBPool(ctx, dsn)
		if err != nil {
			log.Fatal("Connecting to postgres failed", zap.Error(err))
		}
		defer pool.Close()

		bids := postgres.NewBidRepository(pool)
		projection := postgres.NewProjection(pool, bids)
		go projection.Run(ctx)

		publishers = append(publishers, projection)
		bidRepo = bids
	} else {
		log.Info("Persistence disabled, running in memory only")
	}

	engine := application.NewEngine(application.Deps{
		Valuer:       prices,
		Custody:      network.Assets,
		Payments:     network.Bank,
		Publisher:    publishers,
		MinIncrement: pricing.USD(cfg.Auction.MinIncrementUSD),
	})
	service = application.NewAuctionService(engine, bidRepo)

	go hub.Run(ctx)
	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	go wsHandler.ListenForMessages(ctx)

	server := httpserver.NewServer()
	wsHandler.RegisterRoutes(ctx, server.Router())
	auctionhttp.NewAuctionHandler(service).RegisterRoutes(server.API())
	api.NewHandler(network).RegisterRoutes(server.API())

	if err := server.Start(ctx, cfg.HTTP.Addr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
	log.Info("Auction engine stopped")
}
