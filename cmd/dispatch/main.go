package main

import (
	"context"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/config"
	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/metrics"
	"github.com/okapiride/dispatch/internal/pkg/nsqbus"
	"github.com/okapiride/dispatch/internal/pkg/server"
	"github.com/okapiride/dispatch/internal/pkg/websocket"
	locationhandler "github.com/okapiride/dispatch/services/location/handler"
	locationrepo "github.com/okapiride/dispatch/services/location/repository"
	locationuc "github.com/okapiride/dispatch/services/location/usecase"
	matchrepo "github.com/okapiride/dispatch/services/match/repository"
	matchuc "github.com/okapiride/dispatch/services/match/usecase"
	pricinggw "github.com/okapiride/dispatch/services/pricing/gateway"
	pricinghandler "github.com/okapiride/dispatch/services/pricing/handler"
	pricingrepo "github.com/okapiride/dispatch/services/pricing/repository"
	pricinguc "github.com/okapiride/dispatch/services/pricing/usecase"
	ridesgw "github.com/okapiride/dispatch/services/rides/gateway"
	rideshandler "github.com/okapiride/dispatch/services/rides/handler"
	ridesrepo "github.com/okapiride/dispatch/services/rides/repository"
	ridesuc "github.com/okapiride/dispatch/services/rides/usecase"
)

func main() {
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	appLogger, err := logger.NewAppLogger(cfg.Logger)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}
	defer appLogger.Close()
	logger.SetGlobalLogger(appLogger)

	logger.Info("starting dispatch", logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	pgClient, err := database.NewPostgresClient(cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to postgres")
	}

	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to redis")
	}

	producer, err := nsqbus.NewProducer(cfg.NSQ.Address)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to nsq")
	}

	wsManager := websocket.NewManager(cfg.JWT)

	// location
	presenceRepo := locationrepo.NewPresenceRepository(redisClient, cfg.Dispatch.PresenceTTL, cfg.Dispatch.StoreTimeout)
	driverIndex := locationrepo.NewDriverIndexRepository(pgClient)
	locationUC := locationuc.NewLocationUC(presenceRepo, driverIndex)
	broadcaster := locationuc.NewBroadcaster(presenceRepo, wsManager, cfg.Dispatch.BroadcastInterval)

	// matching
	matchUC := matchuc.NewMatchUC(
		matchrepo.NewPresenceSource(presenceRepo),
		matchrepo.NewDurableSource(pgClient, 3*cfg.Dispatch.PresenceTTL),
		matchrepo.NewStatsRepository(pgClient),
		cfg.Dispatch,
	)

	// pricing
	configRepo := pricingrepo.NewConfigRepository(pgClient, cfg.Pricing.ConfigCacheTTL)
	demandRepo := pricingrepo.NewDemandRepository(redisClient, cfg.Pricing.SurgeLookback, cfg.Pricing.DemandCellDigits)
	routingGW := pricinggw.NewRoutingGateway(cfg.Routing)
	pricingUC := pricinguc.NewPricingUC(configRepo, demandRepo, routingGW, presenceRepo, cfg.Pricing)

	// rides
	rideRepo := ridesrepo.NewRideRepository(pgClient)
	eventGW := ridesgw.NewEventGateway(producer)
	paymentGW := ridesgw.NewPaymentGateway(cfg.Payment, cfg.Pricing.Currency)
	rideUC := ridesuc.NewRideUC(rideRepo, presenceRepo, matchUC, pricingUC, eventGW, paymentGW, broadcaster, cfg.Dispatch, cfg.Pricing.Currency)

	locationConsumer, err := locationhandler.NewLocationConsumer(locationUC, cfg.NSQ.Address)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to subscribe to driver locations")
	}

	broadcaster.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(server.RequestID())
	e.Use(server.RequestLogger())
	e.Use(server.Recover())
	e.Use(metrics.Middleware())

	e.GET("/health", healthHandler(pgClient, redisClient))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	locationhandler.NewLocationHandler(locationUC, wsManager, cfg.Dispatch.MaxRadiusKm).RegisterRoutes(e)
	rideshandler.NewRideHandler(rideUC).RegisterRoutes(e)
	pricinghandler.NewPricingHandler(pricingUC).RegisterRoutes(e)

	shutdown := server.NewShutdownManager()
	shutdown.Register(func(_ context.Context) error {
		locationConsumer.Stop()
		return nil
	})
	shutdown.Register(func(_ context.Context) error {
		broadcaster.Stop()
		return nil
	})
	shutdown.Register(func(_ context.Context) error {
		producer.Stop()
		return nil
	})
	shutdown.Register(func(_ context.Context) error { return redisClient.Close() })
	shutdown.Register(func(_ context.Context) error { return pgClient.Close() })

	srv := server.NewGracefulServer(e, cfg.Server.Port, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	if err := srv.Start(); err != nil {
		appLogger.WithError(err).Error("server stopped with error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	shutdown.Shutdown(ctx)
	logger.Info("dispatch stopped", nil)
}

func healthHandler(pg *database.PostgresClient, rd *database.RedisClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"postgres": "up", "redis": "up"}
		healthy := true
		if err := pg.GetDB().PingContext(ctx); err != nil {
			status["postgres"] = "down"
			healthy = false
		}
		if err := rd.GetClient().Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}

		code := 200
		if !healthy {
			code = 503
		}
		return c.JSON(code, status)
	}
}
