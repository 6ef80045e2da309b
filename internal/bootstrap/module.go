package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"votebot/internal/bootstrap/config"
	"votebot/internal/bootstrap/database"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	cacheinfra "votebot/internal/infrastructure/cache"
	"votebot/internal/infrastructure/livefeed"
	sqliterepo "votebot/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "votebot/internal/infrastructure/persistence/sqlite/uow"
	"votebot/internal/infrastructure/telegram"
	"votebot/internal/ports"
	"votebot/internal/usecase/dialog"
	"votebot/internal/usecase/voting"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideTimePolicy),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewContestRepository,
			fx.As(new(ports.ContestRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideTelegramClient),
	fx.Provide(provideChatPlatform),
	fx.Provide(provideHub),
	fx.Provide(provideVotingService),
	fx.Provide(provideDialogHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideTimePolicy(cfg config.Config) (contest.TimePolicy, error) {
	return cfg.TimePolicy()
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideTelegramClient(cfg config.Config) *telegram.Client {
	return telegram.NewClient(cfg.Bot.Token, cfg.Bot.Username)
}

// provideChatPlatform yields nil without a bot token so offline commands skip chat calls.
func provideChatPlatform(ctx context.Context, cfg config.Config, client *telegram.Client) ports.ChatPlatform {
	if strings.TrimSpace(cfg.Bot.Token) == "" {
		logging.Warn(logging.WithComponent(ctx, "bootstrap.fx"), "bot.token is empty, chat platform disabled")
		return nil
	}
	return client
}

// provideHub runs the live tally hub for the lifetime of the graph.
func provideHub(lc fx.Lifecycle, ctx context.Context) *livefeed.Hub {
	hub := livefeed.NewHub()
	runCtx, cancel := context.WithCancel(logging.WithComponent(context.WithoutCancel(ctx), "livefeed.hub"))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return hub
}

type votingParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Policy    contest.TimePolicy
	Repo      ports.ContestRepository
	UoW       ports.UnitOfWork
	Cache     ports.Cache
	Chat      ports.ChatPlatform
	Hub       *livefeed.Hub
}

// provideVotingService drains pending board syncs on stop, before the database hook closes the pool.
func provideVotingService(p votingParams) *voting.Service {
	svc := voting.NewService(p.Repo, p.UoW, p.Cache, p.Chat, p.Hub, voting.Options{
		BoardChatRef:      p.Config.Bot.ChannelID,
		RateLimitInterval: p.Config.Voting.RateLimitInterval,
		BoardSyncTimeout:  p.Config.Voting.BoardSyncTimeout,
		GateConcurrency:   p.Config.Voting.GateConcurrency,
		SessionTTL:        p.Config.Voting.SessionTTL,
		TimePolicy:        p.Policy,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			svc.WaitBoardSyncs()
			return nil
		},
	})
	return svc
}

func provideDialogHandler(cfg config.Config, svc *voting.Service, client *telegram.Client) *dialog.Handler {
	return dialog.NewHandler(svc, client, cfg.Bot.AdminIDs)
}
