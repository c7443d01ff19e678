package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/cache"
	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
	"github.com/xenking/promo-pricing/internal/domain/purchase"
	"github.com/xenking/promo-pricing/internal/domain/sales"
	"github.com/xenking/promo-pricing/internal/events"
	"github.com/xenking/promo-pricing/internal/handler"
	"github.com/xenking/promo-pricing/internal/repository"
	"github.com/xenking/promo-pricing/pkg/health"
	"github.com/xenking/promo-pricing/pkg/httpmiddleware"
)

const serviceName = "promo-pricing"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	currencyRepo := repository.NewCurrencyRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	promoRepo := repository.NewPromoRepository(pool)
	purchaseStore := repository.NewPurchaseStore(pool)
	salesRepo := repository.NewSalesRepository(pool)

	// Optional sales report cache.
	var reportCache sales.Cache
	if cfg.Redis.Addr != "" {
		c, err := cache.Connect(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.ReportTTL,
		})
		if err != nil {
			return errors.Wrap(err, "connect report cache")
		}
		defer func() { _ = c.Close() }()
		reportCache = c
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(c),
			health.WithThresholds(5, 1))
		lg.Info("Sales report cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	// Domain services.
	productSvc := product.NewService(productRepo, currencyRepo)
	promoSvc := promo.NewService(promoRepo, currencyRepo)
	salesSvc := sales.NewService(salesRepo, reportCache)

	listeners := []purchase.Listener{salesSvc}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return errors.Wrap(err, "create event publisher")
		}
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		listeners = append(listeners, pub)
		healthSvc.AddReadinessCheck("kafka", 10*time.Second, health.KafkaCheck(cfg.Kafka.Brokers),
			health.WithThresholds(5, 1))
		lg.Info("Purchase events enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	purchaseSvc, err := purchase.NewService(productRepo, promoRepo, purchaseStore,
		purchase.WithListeners(listeners...),
		purchase.WithMeterProvider(m.MeterProvider()),
		purchase.WithTracerProvider(m.TracerProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create purchase service")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Router: health endpoints + API routes on one server.
	h := handler.NewHandler(productSvc, promoSvc, purchaseSvc, salesSvc)
	r := chi.NewRouter()
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.Use(
		httpmiddleware.Labeler(httpmiddleware.ChiRoute),
		httpmiddleware.LogRequests(httpmiddleware.ChiRoute),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(r,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.MeterProvider(), m.TracerProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
