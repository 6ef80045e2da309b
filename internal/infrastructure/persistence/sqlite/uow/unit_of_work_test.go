package uow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"votebot/internal/infrastructure/persistence/schema"
	"votebot/internal/infrastructure/persistence/sqlite/repository"
	"votebot/internal/ports"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "uow.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := schema.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewContestRepository(db)
	unit := NewUnitOfWork(db)
	now := time.Now().UTC()

	if err := unit.WithTx(ctx, func(txCtx context.Context) error {
		if ports.TxFromContext(txCtx) == nil {
			t.Fatalf("WithTx() ctx carries no transaction")
		}
		_, err := repo.CreateContest(txCtx, ports.ContestCreate{Name: "committed", StartAt: now, EndAt: now.Add(time.Hour)})
		return err
	}); err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	active, found, err := repo.GetActiveContest(ctx)
	if err != nil || !found || active.Name != "committed" {
		t.Fatalf("GetActiveContest() = %+v found=%v err=%v", active, found, err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	repo := repository.NewContestRepository(db)
	unit := NewUnitOfWork(db)
	boom := errors.New("boom")
	now := time.Now().UTC()

	err := unit.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.CreateContest(txCtx, ports.ContestCreate{Name: "rolled back", StartAt: now, EndAt: now.Add(time.Hour)}); err != nil {
			return err
		}
		return unit.WithTx(txCtx, func(context.Context) error { return boom })
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	if _, found, err := repo.GetActiveContest(ctx); err != nil || found {
		t.Fatalf("GetActiveContest() after rollback found=%v err=%v", found, err)
	}
}
