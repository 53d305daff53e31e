// Command users runs the User authority: the users HTTP API, the existence-check
// RPC server and the cascade retry relay.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/msblog/userpost-system/internal/api"
	"github.com/msblog/userpost-system/internal/api/handler"
	"github.com/msblog/userpost-system/internal/core/ports"
	"github.com/msblog/userpost-system/internal/core/service"
	"github.com/msblog/userpost-system/internal/infrastructure/config"
	"github.com/msblog/userpost-system/internal/infrastructure/db/memory"
	mongodb "github.com/msblog/userpost-system/internal/infrastructure/db/mongo"
	redisdb "github.com/msblog/userpost-system/internal/infrastructure/db/redis"
	"github.com/msblog/userpost-system/internal/infrastructure/messaging"
	"github.com/msblog/userpost-system/internal/infrastructure/rpc/userlookup"
	"github.com/msblog/userpost-system/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.LoadUsers(zerolog.New(os.Stderr).With().Timestamp().Logger())
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "users",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("users service stopped with error")
	}
}

func run(cfg *config.Users, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()
	readiness := []handler.Dependency{{Name: "redis", Pinger: redisdb.NewPinger(rdb)}}

	var (
		repo  ports.UserRepository
		retry ports.PendingNotificationStore
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory user store, data is lost on restart")
		repo = memory.NewUserRepository()
		retry = memory.NewPendingNotificationStore()
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Database, Timeout: cfg.Mongo.Timeout})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		pending := mongodb.NewPendingNotificationRepository(db)
		if err := pending.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mongodb.NewUserRepository(db)
		retry = pending
		readiness = append(readiness, handler.Dependency{Name: "mongodb", Pinger: mongodb.NewPinger(client)})
	}

	publisher := messaging.NewStreamPublisher(rdb, cfg.Cascade.Stream, cfg.Cascade.MaxLen, log)
	users := service.NewUserService(repo, publisher, retry, log)
	relay := messaging.NewRelay(retry, publisher, cfg.RetryInterval, cfg.RetryBatch, log)

	grpcServer := userlookup.NewGRPCServer(log)
	userlookup.NewServer(service.NewLookupService(repo, log), log,
		userlookup.WithCollapsedErrors(cfg.CollapseLookupErrors),
	).Register(grpcServer)

	e := api.NewUsersRouter(users, api.RouterDeps{
		Log:       log,
		JWTSecret: cfg.JWTSecret,
		Readiness: readiness,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("users http api listening")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("user lookup rpc listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error { return relay.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
