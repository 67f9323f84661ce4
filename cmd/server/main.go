// Command pj-server starts the Portal Jurídico gRPC server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vgents/portaljuridico/internal/config"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/limiter"
	"github.com/vgents/portaljuridico/internal/migrate"
	"github.com/vgents/portaljuridico/internal/repository/postgres"
	grpcserver "github.com/vgents/portaljuridico/internal/server/grpc"
	"github.com/vgents/portaljuridico/internal/server/ops"
	"github.com/vgents/portaljuridico/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const reopenEvery = 10 * time.Second

// main loads configuration, runs migrations and serves gRPC plus the ops endpoints.
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.Stringer("emptyListPolicy", cfg.Policy().EmptyList),
	)

	var creds credentials.TransportCredentials
	if !cfg.Insecure {
		creds, err = credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
	} else {
		logger.Warn("serving gRPC without TLS")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if v, err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Error("migrate up failed; continuing with the current schema", zap.Error(err))
	} else {
		logger.Info("schema ready", zap.Int64("version", v))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("postgres pool", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	groupRepo := postgres.NewGroupRepo(db)
	termRepo := postgres.NewTermRepo(db)
	docRepo := postgres.NewDocumentRepo(db, logger)
	actionRepo := postgres.NewActionRepo(db, logger)

	// The stores answer ErrStoreClosed until Open succeeds; keep retrying in the background.
	for name, open := range map[string]func(context.Context) error{
		"documents": docRepo.Open,
		"actions":   actionRepo.Open,
	} {
		if err := open(ctx); err != nil {
			logger.Error("store unavailable; serving degraded", zap.String("store", name), zap.Error(err))
			go reopen(ctx, logger, name, open)
		}
	}

	lim := limiter.NewPG(db.Pool, cfg.LimiterSettings())
	bus := events.NewBus(logger)

	// Services
	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTKey), cfg.AccessTTL, lim, logger)
	userSvc := service.NewUserService(userRepo)
	historySvc := service.NewHistoryService(actionRepo, logger)
	groupSvc := service.NewGroupService(groupRepo, historySvc, authSvc, cfg.Groups.CacheSize, cfg.Groups.CacheTTL, logger).WithBus(bus)
	groupEvents, _ := bus.Subscribe(16)
	go groupSvc.Follow(ctx, groupEvents)
	termSvc := service.NewTaxonomyService(termRepo, historySvc)
	docSvc := service.NewDocumentService(service.DocumentDeps{
		Docs:    docRepo,
		Groups:  groupSvc,
		History: historySvc,
		Auth:    authSvc,
		Bus:     bus,
		Policy:  cfg.Policy(),
		Log:     logger,
	})

	if cfg.Admin.Password != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error("bootstrap admin", zap.String("email", cfg.Admin.Email), zap.Error(err))
		}
	}

	probes := []ops.Probe{
		{Name: "postgres", Critical: true, Check: db.Ping},
		{Name: "documents", Check: func(context.Context) error { return docRepo.Ready() }},
		{Name: "actions", Check: func(context.Context) error { return actionRepo.Ready() }},
	}

	// Cross-instance events
	if cfg.Redis.Addr != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn("redis unavailable; events stay local", zap.Error(err))
		} else {
			defer rdb.Close()
			probes = append(probes, ops.Probe{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
			go runBridge(ctx, logger, events.NewRedisBridge(bus, rdb, cfg.Redis.Channel, logger), rdb)
		}
	}

	// gRPC server with interceptors
	var opts []grpc.ServerOption
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}
	app := grpcserver.New(grpcserver.Deps{
		Auth:    authSvc,
		Users:   userSvc,
		Docs:    docSvc,
		History: historySvc,
		Groups:  groupSvc,
		Terms:   termSvc,
		Bus:     bus,
		SignKey: []byte(cfg.JWTKey),
		Log:     logger,
	})
	s := grpcserver.NewGRPCServer(app, opts...)

	// Health & reflection (dev)
	hs := health.NewServer()
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	// Listen
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", creds != nil))
		errCh <- s.Serve(lis)
	}()

	var opsSrv *http.Server
	if cfg.OpsAddr != "" {
		opsSrv = &http.Server{
			Addr:              cfg.OpsAddr,
			Handler:           ops.NewHandler(version, probes, 2*time.Second, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops listening", zap.String("addr", cfg.OpsAddr))
			if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ops server: %w", err)
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	// graceful shutdown; closing the bus ends open watch streams
	hs.Shutdown()
	bus.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if opsSrv != nil {
		_ = opsSrv.Shutdown(shutdownCtx)
	}
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.Stop()
	}

	logger.Info("shutdown complete")
}

func reopen(ctx context.Context, log *zap.Logger, name string, open func(context.Context) error) {
	t := time.NewTicker(reopenEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := open(ctx); err != nil {
				log.Debug("store still unavailable", zap.String("store", name), zap.Error(err))
				continue
			}
			log.Info("store opened", zap.String("store", name))
			return
		}
	}
}

func runBridge(ctx context.Context, log *zap.Logger, b *events.RedisBridge, rdb *redis.Client) {
	if err := b.Run(ctx, rdb); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("redis bridge stopped", zap.Error(err))
	}
}
