package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/chord/internal/config"
	"github.com/vedran77/chord/internal/crypto"
	"github.com/vedran77/chord/internal/database"
	"github.com/vedran77/chord/internal/logging"
	"github.com/vedran77/chord/internal/repository"
	"github.com/vedran77/chord/internal/repository/memory"
	postgresrepo "github.com/vedran77/chord/internal/repository/postgres"
	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/router"
	"github.com/vedran77/chord/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	servers       repository.ServerRepository
	members       repository.MemberRepository
	channels      repository.ChannelRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	calls         repository.CallRepository
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.IsDevelopment())

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepos()

	sealer, err := crypto.NewSealer(cfg.MessageKey)
	if err != nil {
		return err
	}

	// Services
	svc := router.Services{
		Servers:       service.NewServerService(repos.servers, repos.members, repos.channels),
		Members:       service.NewMemberService(repos.members),
		Channels:      service.NewChannelService(repos.channels, repos.members),
		Conversations: service.NewConversationService(repos.conversations, repos.members),
		Messages:      service.NewMessageService(repos.messages, repos.channels, repos.conversations, repos.members, sealer),
		Calls:         service.NewCallService(repos.calls, repos.conversations, repos.members),
	}
	tokens := service.NewTokenService(cfg.JWTSecret)
	access := service.NewAccessService(repos.members, repos.channels, repos.conversations)

	// Signaling
	hub := ws.NewHub(access, ws.Options{
		EmitRate:       cfg.EmitRate,
		EmitBurst:      cfg.EmitBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	g, gctx := errgroup.WithContext(ctx)

	var pub ws.Publisher = hub
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}

		relay := ws.NewRedisRelay(rdb, hub, logger)
		hub.SetPublisher(relay)
		pub = relay
		g.Go(func() error { return relay.Run(gctx) })
		logger.Info().Msg("relaying events through redis")
	}

	notifier := ws.NewHubNotifier(pub, logger)
	svc.Channels.SetNotifier(notifier)
	svc.Messages.SetNotifier(notifier)
	svc.Calls.SetNotifier(notifier)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router.New(logger, svc, router.Options{
			Tokens:         tokens,
			Signaling:      ws.ServeWS(hub, tokens),
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repositories, func(), error) {
	if cfg.Storage == "memory" {
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
		return repositories{
			servers:       memory.NewServerRepo(),
			members:       memory.NewMemberRepo(),
			channels:      memory.NewChannelRepo(),
			conversations: memory.NewConversationRepo(),
			messages:      memory.NewMessageRepo(),
			calls:         memory.NewCallRepo(),
		}, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return repositories{}, nil, err
	}
	logger.Info().Msg("connected to database")

	return repositories{
		servers:       postgresrepo.NewServerRepo(pool),
		members:       postgresrepo.NewMemberRepo(pool),
		channels:      postgresrepo.NewChannelRepo(pool),
		conversations: postgresrepo.NewConversationRepo(pool),
		messages:      postgresrepo.NewMessageRepo(pool),
		calls:         postgresrepo.NewCallRepo(pool),
	}, pool.Close, nil
}
