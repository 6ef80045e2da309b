package schema

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/infrastructure/persistence/sqlite/model"
)

const (
	Version    = "4"
	versionKey = "schema_version"
)

// singleActiveIndex allows at most one contest that is active and not archived.
const singleActiveIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_contests_single_active ON contests (is_active) WHERE is_active AND NOT is_archived`

// Models lists every table the bot owns, in creation order.
func Models() []any {
	return []any{
		&SchemaMeta{},
		&model.Contest{},
		&model.Candidate{},
		&model.ChannelRequirement{},
		&model.Vote{},
		&model.VoterActivity{},
		&model.KV{},
	}
}

// Migrate creates or updates all tables and records the schema version.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if db == nil {
		return errors.New("db is required")
	}

	logCtx := logging.WithComponent(ctx, "persistence.schema")
	logging.Info(logCtx, "start schema migration", slog.String("target_version", Version))

	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(Models()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := tx.Exec(singleActiveIndex).Error; err != nil {
		return errs.Wrap(err, "create single active contest index")
	}

	meta := SchemaMeta{Key: versionKey, Value: Version}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error; err != nil {
		return errs.Wrap(err, "record schema version")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("version", Version))
	return nil
}

// CurrentVersion returns the recorded schema version, or "" before the first migration.
func CurrentVersion(ctx context.Context, db *gorm.DB) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	var meta SchemaMeta
	err := db.WithContext(ctx).Where("key = ?", versionKey).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(err, "query schema version")
	}
	return meta.Value, nil
}
