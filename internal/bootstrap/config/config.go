package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Bot      BotConfig      `mapstructure:"bot"`
	Voting   VotingConfig   `mapstructure:"voting"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	// Timezone is an IANA name or a fixed offset such as +05:00.
	Timezone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type BotConfig struct {
	Token    string  `mapstructure:"token"`
	Username string  `mapstructure:"username"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
	// ChannelID is the default chat for published boards.
	ChannelID   string `mapstructure:"channel_id"`
	PollTimeout int    `mapstructure:"poll_timeout"`
	Workers     int    `mapstructure:"workers"`
}

type VotingConfig struct {
	RateLimitInterval time.Duration `mapstructure:"rate_limit_interval"`
	BoardSyncTimeout  time.Duration `mapstructure:"board_sync_timeout"`
	GateConcurrency   int           `mapstructure:"gate_concurrency"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
}

type FeedConfig struct {
	// Addr enables the live tally websocket server when set, e.g. ":8081".
	Addr string `mapstructure:"addr"`
}

func (c Config) TimePolicy() (contest.TimePolicy, error) {
	return contest.NewTimePolicy(c.App.Timezone)
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if _, err := cfg.TimePolicy(); err != nil {
		return Config{}, errs.Wrapf(err, "app.timezone %q", cfg.App.Timezone)
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("timezone", cfg.App.Timezone),
		slog.Int("admins", len(cfg.Bot.AdminIDs)),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "votebot")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.timezone", "Asia/Tashkent")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/votebot.sqlite?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.username", "")
	v.SetDefault("bot.admin_ids", []int64{})
	v.SetDefault("bot.channel_id", "")
	v.SetDefault("bot.poll_timeout", 30)
	v.SetDefault("bot.workers", 8)
	v.SetDefault("voting.rate_limit_interval", time.Second)
	v.SetDefault("voting.board_sync_timeout", 15*time.Second)
	v.SetDefault("voting.gate_concurrency", 4)
	v.SetDefault("voting.session_ttl", 30*time.Minute)
	v.SetDefault("feed.addr", "")
}
