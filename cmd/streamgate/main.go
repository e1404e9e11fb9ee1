package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftline/streamgate/pkg/auth"
	"github.com/driftline/streamgate/pkg/broker"
	"github.com/driftline/streamgate/pkg/gatewayapi"
	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/metrics"
	"github.com/driftline/streamgate/pkg/pubsub"
	"github.com/driftline/streamgate/pkg/store"
	"github.com/driftline/streamgate/pkg/stream"
	"github.com/driftline/streamgate/pkg/telemetry"
	"github.com/driftline/streamgate/pkg/visibility"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := loadConfig()
	log := logging.New(cfg.NodeEnv != "production")

	log.ComponentInfo(logging.ComponentGateway, "starting streamgate",
		zap.String("node_env", cfg.NodeEnv),
		zap.String("listen", cfg.listenAddress()),
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.OtelExporterEndpoint, cfg.OtelServiceName)
	if err != nil {
		log.ComponentError(logging.ComponentGateway, "failed to set up tracing", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.ComponentWarn(logging.ComponentGateway, "tracer shutdown error", zap.Error(err))
		}
	}()

	pool, err := store.Connect(context.Background(), store.Config{DSN: cfg.dsn()})
	if err != nil {
		log.ComponentError(logging.ComponentStore, "failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()
	dataStore := store.New(pool)

	redisOpts := redisOptions(cfg)
	bus := broker.Dial(redisOpts)

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(reg)

	adapter := pubsub.New(bus, log, metricsReg)
	authResolver := auth.New(dataStore)
	streamResolver := stream.New(dataStore, cfg.RedisNamespace)
	filter := visibility.New(dataStore, log, metricsReg)

	gwCfg := gatewayapi.Config{
		AlwaysRequireAuth:     cfg.AlwaysRequireAuth,
		LimitedFederationMode: cfg.LimitedFederationMode,
		WhitelistMode:         cfg.WhitelistMode,
		AuthorizedFetch:       cfg.AuthorizedFetch,
	}
	gw := gatewayapi.New(gwCfg, dataStore, bus, adapter, authResolver, streamResolver, filter, log, metricsReg)
	defer gw.Close()

	server := &http.Server{Handler: gw.Routes()}

	ln, err := net.Listen(cfg.listenNetwork(), cfg.listenAddress())
	if err != nil {
		log.ComponentError(logging.ComponentGateway, "failed to bind listener", zap.Error(err))
		os.Exit(1)
	}
	if cfg.listenNetwork() == "unix" {
		if err := os.Chmod(cfg.listenAddress(), 0o666); err != nil {
			log.ComponentError(logging.ComponentGateway, "failed to chmod unix socket", zap.Error(err))
		}
	}
	log.ComponentInfo(logging.ComponentGateway, "listener bound", zap.String("addr", ln.Addr().String()))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.ComponentInfo(logging.ComponentGateway, "shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serveErrCh:
		if err != nil {
			log.ComponentError(logging.ComponentGateway, "server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.ComponentError(logging.ComponentGateway, "shutdown error", zap.Error(err))
	} else {
		log.ComponentInfo(logging.ComponentGateway, "shutdown complete")
	}
}

func redisOptions(cfg *appConfig) *redis.Options {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			return opts
		}
	}
	return &redis.Options{
		Addr:     cfg.redisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
