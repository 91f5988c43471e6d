package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/inktoons/inktoons/app/controllers"
	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/cache"
	"github.com/inktoons/inktoons/internal/pkg/database"
	"github.com/inktoons/inktoons/internal/pkg/env"
	"github.com/inktoons/inktoons/internal/pkg/ledger"
	"github.com/inktoons/inktoons/internal/pkg/ledgerstore"
	"github.com/inktoons/inktoons/internal/pkg/metrics/counter"
	"github.com/inktoons/inktoons/internal/pkg/missions"
	"github.com/inktoons/inktoons/internal/pkg/payment"
	"github.com/inktoons/inktoons/internal/pkg/pinet"
	"github.com/inktoons/inktoons/internal/pkg/priceoracle"
	"github.com/inktoons/inktoons/internal/pkg/router"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
	shutdown()
}

// NewApplication wires the full service and returns the app plus a shutdown
// hook that flushes pending state.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	// Payment network client and verifier.
	piClient := pinet.NewClientFromEnv()
	verifier := payment.NewVerifier(piClient, repos.Payment)

	// Ledger with its remote snapshot store. S3 is used when configured,
	// Redis otherwise.
	remote := buildRemoteStore()
	ledgerService := ledger.NewService(repos.Ledger, remote)

	// Daily missions.
	missionEngine := missions.NewEngine(repos.Mission)

	// Price oracle: 60s poll by default, quotes mirrored into the cache.
	oracle := priceoracle.NewOracle(
		priceoracle.NewClientFromEnv(),
		priceoracle.WithInterval(priceoracle.PollIntervalFromEnv()),
		priceoracle.WithMirror(func(q priceoracle.Quote) {
			if err := cache.Set("price:pi_usd", fmt.Sprintf("%f", q.Price), 5*time.Minute); err != nil {
				fiberlog.Warnf("price mirror failed: %v", err)
			}
		}),
	)
	oracleCtx, cancelOracle := context.WithCancel(context.Background())
	oracle.Start(oracleCtx)

	controllers.InitServices(piClient, verifier, ledgerService, missionEngine, oracle)

	// Periodic drain of the Redis economy counters into the daily stats.
	flushStop := make(chan struct{})
	go counterFlushLoop(flushStop)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "inktoons",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	if _, err := os.Stat("docs/openapi.yml"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: "docs/openapi.yml",
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app)

	shutdown := func() {
		close(flushStop)
		cancelOracle()
		oracle.Stop()
		ledgerService.Syncer().Close()
		if err := counter.FlushAll(); err != nil {
			fiberlog.Warnf("final counter flush failed: %v", err)
		}
	}
	return app, shutdown
}

func buildRemoteStore() ledgerstore.RemoteStore {
	cfg, err := ledgerstore.LoadS3Config()
	if err != nil {
		log.Printf("ledger S3 mirror misconfigured, falling back to Redis: %v", err)
	} else if cfg.Enabled {
		store, err := ledgerstore.NewS3Store(cfg)
		if err == nil {
			return store
		}
		log.Printf("ledger S3 mirror unavailable, falling back to Redis: %v", err)
	}
	return ledgerstore.NewRedisStore(cache.GetClient())
}

func counterFlushLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := counter.FlushAll(); err != nil {
				fiberlog.Warnf("counter flush failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}
