// Command posts runs the Post authority: the posts HTTP API and the cascade
// consumer that removes posts of deleted users.
package main

import (
	"context"
	"errors"
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
	"github.com/msblog/userpost-system/internal/infrastructure/queue"
	"github.com/msblog/userpost-system/internal/infrastructure/rpc/userlookup"
	"github.com/msblog/userpost-system/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.LoadPosts(zerolog.New(os.Stderr).With().Timestamp().Logger())
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "posts",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("posts service stopped with error")
	}
}

func run(cfg *config.Posts, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()
	readiness := []handler.Dependency{{Name: "redis", Pinger: redisdb.NewPinger(rdb)}}

	var repo ports.PostRepository
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory post store, data is lost on restart")
		repo = memory.NewPostRepository()
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Database, Timeout: cfg.Mongo.Timeout})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		posts := mongodb.NewPostRepository(db)
		if err := posts.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = posts
		readiness = append(readiness, handler.Dependency{Name: "mongodb", Pinger: mongodb.NewPinger(client)})
	}

	users, err := userlookup.Dial(cfg.UsersRPCAddr, cfg.RPCTimeout, log)
	if err != nil {
		return err
	}
	defer users.Close()

	posts := service.NewPostService(repo, service.NewAdmission(users, log), log)

	dispatcher := queue.NewDispatcher(cfg.CascadeWorkers, service.NewCascadeService(repo, log), log)
	consumer := messaging.NewStreamConsumer(rdb, messaging.ConsumerConfig{
		Stream:    cfg.Cascade.Stream,
		Group:     cfg.Cascade.Group,
		Batch:     cfg.CascadeBatch,
		Block:     cfg.CascadeBlock,
		ClaimIdle: cfg.CascadeClaimIdle,
	}, dispatcher, redisdb.NewDedupChecker(rdb, cfg.Cascade.Stream, cfg.DedupTTL), log)

	e := api.NewPostsRouter(posts, api.RouterDeps{
		Log:       log,
		JWTSecret: cfg.JWTSecret,
		Readiness: readiness,
	})

	g, gctx := errgroup.WithContext(ctx)

	dispatcher.Start(gctx)
	g.Go(func() error { return consumer.Run(gctx) })

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("posts http api listening")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	dispatcher.Wait()
	return err
}
