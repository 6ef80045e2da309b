package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"votebot/internal/bootstrap/config"
	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/infrastructure/persistence/schema"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema migrates tables and indexes and returns the recorded schema version.
func (a *App) InitSchema(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration", slog.String("database_driver", a.Config.Database.Driver))

	if err := schema.Migrate(ctx, a.DB); err != nil {
		return "", errs.Wrap(err, "migrate schema")
	}
	version, err := schema.CurrentVersion(ctx, a.DB)
	if err != nil {
		return "", errs.Wrap(err, "read schema version")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("version", version))
	return version, nil
}
