package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fk1blow/haplea/adapters/mymdns"
	"github.com/fk1blow/haplea/adapters/myredis"
	"github.com/fk1blow/haplea/adapters/probe"
	"github.com/fk1blow/haplea/api"
	"github.com/fk1blow/haplea/discovery"
	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/handlers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/metrics"
	"github.com/fk1blow/haplea/registry"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const appName = "Haplea"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := LoadConfig()
	if err != nil {
		fallback := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		level.Error(fallback).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger, err := newLogger(os.Stderr, config.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "Starting haplea", "version", version)
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"instance", config.InstanceName,
		"service_type", config.ServiceType(),
		"service_port_http", config.HTTPPort,
		"service_port_grpc", config.GRPCPort,
		"discovery", config.EnableDiscovery,
		"server", config.EnableServer,
		"probe", config.ProbeKind,
		"redis", config.Redis.Addr != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		level.Error(logger).Log("msg", "haplea stopped with errors", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "Server stopped")
}

// run starts every enabled component, blocks until ctx is done, then shuts them down in reverse order.
func run(ctx context.Context, config *Config, logger log.Logger) (err error) {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := handlers.NewEventHub(handlers.DefaultSubscriberBuffer, logger)
	defer hub.Close()

	// gRPC health, advertised to peers through TXT
	if config.GRPCPort > 0 {
		grpcServer, gErr := startGRPCHealth(config.GRPCPort, logger)
		if gErr != nil {
			return gErr
		}
		defer stopGRPC(grpcServer)
	}

	var (
		directory  interfaces.PeerDirectory = registry.New()
		discoverer *discovery.Service
		dispatched = make(chan struct{})
	)
	m := metrics.New(promRegistry,
		func() int {
			if discoverer == nil {
				return 0
			}
			return discoverer.PeerCount()
		},
		func() int {
			if discoverer == nil {
				return 0
			}
			return discoverer.Backlog()
		},
	)

	if !config.EnableDiscovery {
		close(dispatched)
	} else {
		discoverer, err = newDiscovery(config, m, logger)
		if err != nil {
			return err
		}
		directory = discoverer.Registry()

		sinks := []interfaces.EventSink{discovery.NewLogSink(logger), m, hub}
		if config.Redis.Addr != "" {
			mirror, client, mErr := newRedisMirror(ctx, config, logger)
			if mErr != nil {
				return mErr
			}
			defer func() { err = multierr.Append(err, client.Close()) }()
			sinks = append(sinks, mirror)
			go mirror.RunRefresh(ctx, directory)
		}

		if startErr := discoverer.Start(ctx); startErr != nil {
			// the HTTP surface stays up without discovery
			level.Error(logger).Log("msg", "Discovery failed to start", "err", startErr)
		}
		go func() {
			defer close(dispatched)
			discovery.NewDispatcher(logger, sinks...).Run(context.Background(), discoverer.Events())
		}()
	}

	var e *echo.Echo
	if config.EnableServer {
		e, err = newHTTPServer(config, directory, hub, promRegistry, logger)
		if err != nil {
			return err
		}
		go func() {
			addr := ":" + strconv.Itoa(config.HTTPPort)
			level.Info(logger).Log("msg", "Starting HTTP server", "addr", addr)
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				level.Error(logger).Log("msg", "HTTP server error", "err", err)
			}
		}()
	}

	<-ctx.Done()
	level.Info(logger).Log("msg", "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if e != nil {
		err = multierr.Append(err, e.Shutdown(shutdownCtx))
	}
	if discoverer != nil {
		err = multierr.Append(err, discoverer.Close())
	}
	select {
	case <-dispatched:
	case <-shutdownCtx.Done():
		level.Warn(logger).Log("msg", "event sinks did not drain before the shutdown timeout")
	}
	return err
}

func newDiscovery(config *Config, m *metrics.Metrics, logger log.Logger) (*discovery.Service, error) {
	prober, err := probe.New(config.ProbeKind)
	if err != nil {
		return nil, err
	}

	txt := map[string]string{"version": version}
	if config.GRPCPort > 0 {
		txt[probe.TxtGRPCPort] = strconv.Itoa(config.GRPCPort)
	}

	transport := mymdns.NewTransport(config.Transport(), logger)
	return discovery.NewService(discovery.Config{
		InstanceName:        config.InstanceName,
		Port:                config.HTTPPort,
		ServiceType:         config.ServiceType(),
		Domain:              domain.DefaultDomain,
		Txt:                 txt,
		HealthCheckInterval: config.HealthCheckInterval,
		ProbeTimeout:        config.ProbeTimeout,
		EventBacklogLimit:   config.EventBacklogLimit,
	}, transport, prober, logger, discovery.Options{
		Reaper: []discovery.ReaperOption{discovery.WithProbeObserver(m.ObserveProbe)},
	}), nil
}

func newRedisMirror(ctx context.Context, config *Config, logger log.Logger) (*myredis.EventMirror, redis.UniversalClient, error) {
	client, err := myredis.NewRedisUniversalClient(config.Redis.Addr, myredis.WithDialTimeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Redis client, err: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, multierr.Append(service.NewNetworkError("failed to connect to Redis", err), client.Close())
	}
	level.Info(logger).Log("msg", "Connected to Redis")

	cache := myredis.NewCache[domain.PeerInfo](client, myredis.PeerPrefix, myredis.MarshalPeer, myredis.UnmarshalPeer)
	mirror := myredis.NewEventMirror(client, cache, myredis.EventsChannel, config.Redis.PeerTTL, logger)
	if err := mirror.Reset(pingCtx); err != nil {
		level.Warn(logger).Log("msg", "Failed to clear mirrored peers", "err", err)
	}
	return mirror, client, nil
}

func newHTTPServer(config *Config, directory interfaces.PeerDirectory, hub *handlers.EventHub, gatherer prometheus.Gatherer, logger log.Logger) (*echo.Echo, error) {
	router, err := handlers.LoadRouter(api.OpenAPI)
	if err != nil {
		return nil, err
	}

	httpServer := handlers.NewHTTPServer(handlers.AppInfo{
		Name:         appName,
		Version:      version,
		InstanceName: config.InstanceName,
	}, directory, hub, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	service.RegisterErrorHandler(e, logger)
	e.Use(handlers.RequestValidator(router))
	handlers.RegisterHandlers(e, httpServer)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return e, nil
}

func startGRPCHealth(port int, logger log.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, service.NewNetworkError("gRPC listen failed", err)
	}

	srv := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	level.Info(logger).Log("msg", "Starting gRPC health server", "port", port)
	go func() {
		if err := srv.Serve(lis); err != nil {
			level.Error(logger).Log("msg", "gRPC server error", "err", err)
		}
	}()
	return srv, nil
}

// stopGRPC drains in-flight RPCs, forcing the stop when health watchers keep it busy.
func stopGRPC(srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		srv.Stop()
	}
}
