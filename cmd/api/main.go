package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plateshare/foodbank-api/internal/adapters/httpapi"
	memdonorrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/donorrepo"
	memledger "github.com/plateshare/foodbank-api/internal/adapters/memory/ledger"
	memngorepo "github.com/plateshare/foodbank-api/internal/adapters/memory/ngorepo"
	memrecipientrepo "github.com/plateshare/foodbank-api/internal/adapters/memory/recipientrepo"
	postgres "github.com/plateshare/foodbank-api/internal/adapters/postgres"
	pgdonorrepo "github.com/plateshare/foodbank-api/internal/adapters/postgres/donorrepo"
	pgledger "github.com/plateshare/foodbank-api/internal/adapters/postgres/ledger"
	pgngorepo "github.com/plateshare/foodbank-api/internal/adapters/postgres/ngorepo"
	pgrecipientrepo "github.com/plateshare/foodbank-api/internal/adapters/postgres/recipientrepo"
	"github.com/plateshare/foodbank-api/internal/app/accounts"
	"github.com/plateshare/foodbank-api/internal/app/bookings"
	"github.com/plateshare/foodbank-api/internal/app/donations"
	platformclock "github.com/plateshare/foodbank-api/internal/platform/clock"
	"github.com/plateshare/foodbank-api/internal/platform/config"
	"github.com/plateshare/foodbank-api/internal/platform/logging"
	"github.com/plateshare/foodbank-api/internal/platform/token"
	donorrepoport "github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
	ledgerport "github.com/plateshare/foodbank-api/internal/ports/out/ledger"
	ngorepoport "github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
	recipientrepoport "github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger depends on config; fall back to stderr for this one case.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Env)
	clk := platformclock.NewSystemClock()
	tokens := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)

	var (
		donorRepo     donorrepoport.Repository
		ngoRepo       ngorepoport.Repository
		recipientRepo recipientrepoport.Repository
		ledgerStore   ledgerport.Store
		cleanup       func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("run migrations")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres pool")
		}
		cleanup = pool.Close

		donorRepo = pgdonorrepo.NewRepo(pool)
		ngoRepo = pgngorepo.NewRepo(pool)
		recipientRepo = pgrecipientrepo.NewRepo(pool)
		ledgerStore = pgledger.NewStore(pool)
	default:
		ngos := memngorepo.NewRepo()
		donorRepo = memdonorrepo.NewRepo()
		ngoRepo = ngos
		recipientRepo = memrecipientrepo.NewRepo()
		ledgerStore = memledger.NewStore(ngos)
	}

	if cleanup != nil {
		defer cleanup()
	}

	accountsSvc := accounts.NewService(donorRepo, ngoRepo, recipientRepo, tokens, clk)
	accountsSvc.NearbyRadiusMeters = cfg.NearbyRadiusMeters
	donationsSvc := donations.NewService(donorRepo, ngoRepo, ledgerStore, clk)
	bookingsSvc := bookings.NewService(recipientRepo, ngoRepo, ledgerStore, clk)

	api := httpapi.NewServer(accountsSvc, donationsSvc, bookingsSvc)
	handler := httpapi.NewRouter(api, tokens, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageBackend).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
