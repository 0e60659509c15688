package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/cart"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/store"
	"storefront-service/internal/upstream"
	"storefront-service/internal/upstream/cms"
	"storefront-service/internal/upstream/geocode"
	"storefront-service/internal/upstream/identity"
	"storefront-service/internal/upstream/woocommerce"
)

const (
	defaultAppName = "StorefrontService"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	pflag.Parse()

	bootLog := config.NewLogger("info")
	cfg, err := config.Load(*envFile, bootLog)
	if err != nil {
		bootLog.WithError(err).Fatal("Error loading configuration")
	}
	logger := config.NewLogger(cfg.LogLevel)
	log := logger.WithField("service", defaultAppName)
	log.WithFields(logrus.Fields{"app_env": cfg.AppEnv, "log_level": cfg.LogLevel}).Info("Starting service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Session Store ---
	values, err := openSessionStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize session store")
	}

	// --- Events ---
	publisher := newPublisher(ctx, cfg, log)

	// --- Upstream Clients ---
	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout)
	commerce := woocommerce.New(woocommerce.Config{
		BaseURL:        cfg.WooCommerce.BaseURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
	}, httpClient)
	content := cms.New(cms.Config{BaseURL: cfg.CMS.BaseURL, APIKey: cfg.CMS.APIKey}, httpClient)
	phoneAuth := identity.New(identity.Config{
		BaseURL:  cfg.Identity.BaseURL,
		TokenURL: cfg.Identity.TokenURL,
		APIKey:   cfg.Identity.APIKey,
	}, httpClient)
	geocoder := geocode.New(geocode.Config{BaseURL: cfg.Geocoder.BaseURL, UserAgent: cfg.Geocoder.UserAgent}, httpClient)

	refresher := identity.NewRefresher(phoneAuth, values, cfg.Identity.RefreshInterval, log.WithField("component", "token_refresher"))
	go refresher.Run(ctx)

	// --- Carts ---
	carts := cart.NewSessions(
		func(sessionID string) cart.Persister { return cart.NewSessionPersister(values, sessionID) },
		log.WithField("component", "cart"),
		cart.WithSubscriber(func(sessionID string, snap cart.Snapshot) {
			publisher.CartUpdated(ctx, sessionID, snap.CartCount, snap.WishlistCount)
		}),
		cart.WithIdleTTL(cfg.Session.IdleTTL),
		cart.WithMaxSessions(cfg.Session.MaxCarts),
	)
	go carts.Run(ctx)

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(api.Deps{
		Commerce:      commerce,
		Content:       content,
		Auth:          phoneAuth,
		Geocoder:      geocoder,
		Tracker:       refresher,
		Carts:         carts,
		Values:        values,
		Events:        publisher,
		TopCategories: cfg.Catalog.TopCategories,
		LoginPath:     cfg.AuthLoginPath,
		Session: api.SessionCookie{
			Name:   cfg.Session.CookieName,
			MaxAge: cfg.Session.CookieMaxAge,
			Secure: cfg.Session.CookieSecure,
		},
	})
	grpcAPIHandler := api.NewGRPCHandler(carts, log.WithField("component", "grpc"))

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, log, cfg.HttpServer.RequestTimeout)
	registerHealthCheck(httpRouter, log, values)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.WithField("port", cfg.HttpServer.Port).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server ListenAndServe error")
		}
		log.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(log, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		log.WithError(err).WithField("port", cfg.GrpcServer.Port).Fatal("Failed to listen for gRPC")
	}

	go func() {
		log.WithField("port", cfg.GrpcServer.Port).Info("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Fatal("gRPC server Serve error")
		}
		log.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(log, cancel, httpServer, grpcServer, publisher, values, shutdownComplete)

	<-shutdownComplete
	log.Info("Service shutdown sequence finished")
}

// openSessionStore connects to Postgres when it is configured and falls back to
// process memory otherwise.
func openSessionStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.SessionStorer, error) {
	if !cfg.Postgres.Enabled() {
		log.Warn("POSTGRES_HOST not set, keeping session data in memory")
		return store.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Database connection established")
	return store.NewPostgresStore(db), nil
}

func newPublisher(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) events.Publisher {
	if len(cfg.Kafka.SeedBrokers) == 0 {
		log.Info("KAFKA_SEED_BROKERS not set, storefront events are disabled")
		return events.Nop{}
	}
	cl, err := events.NewProducerClient(ctx, cfg.Kafka.SeedBrokers, cfg.Kafka.EventsTopic)
	if err != nil {
		log.WithError(err).Warn("Kafka unavailable, storefront events are disabled")
		return events.Nop{}
	}
	log.WithField("topic", cfg.Kafka.EventsTopic).Info("Publishing storefront events")
	return events.NewKafkaPublisher(cl, events.NewAvroSerde(), log.WithField("component", "events"))
}

func setupBaseMiddleware(router *chi.Mux, log logrus.FieldLogger, requestTimeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(api.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))
	log.Debug("Base HTTP middleware registered")
}

func registerHealthCheck(router *chi.Mux, log logrus.FieldLogger, values store.SessionStorer) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		storeStatus := "healthy"
		if err := values.Ping(ctx); err != nil {
			storeStatus = "unhealthy"
			log.WithError(err).Warn("Health check store ping failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, the payload carries the details
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       "healthy",
			"serviceName":  defaultAppName,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"sessionStore": storeStatus,
		})
	})
	log.WithField("path", healthPath).Debug("HTTP health check registered")
}

// unaryLogger logs every unary call with its duration and status code.
func unaryLogger(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"grpc.method":  info.FullMethod,
			"grpc.took_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			entry.WithError(err).Warn("gRPC call failed")
		} else {
			entry.Debug("gRPC call complete")
		}
		return resp, err
	}
}

func setupGRPCServer(log logrus.FieldLogger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(log)))

	api.RegisterCartServiceServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	// Reflection lets grpcurl list the services.
	reflection.Register(s)
	log.WithField("service", api.CartServiceName).Info("gRPC services registered")

	return s
}

func waitForShutdown(
	log logrus.FieldLogger,
	stopBackground context.CancelFunc,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	publisher events.Publisher,
	values store.SessionStorer,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	log.WithField("signal", receivedSignal.String()).Info("Starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server graceful shutdown failed")
	} else {
		log.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.WithError(shutdownCtx.Err()).Warn("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	// Stops the token refresher. Cart events still in flight are flushed by Close.
	stopBackground()
	publisher.Close()

	if err := values.Close(); err != nil {
		log.WithError(err).Warn("Error closing session store")
	}
	log.Info("Graceful shutdown sequence completed")
}
