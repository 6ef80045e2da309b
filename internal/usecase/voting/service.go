package voting

import (
	"context"
	"log/slog"
	"time"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

const (
	defaultRateLimitInterval = time.Second
	defaultBoardSyncTimeout  = 15 * time.Second
	defaultGateConcurrency   = 4
	defaultSessionTTL        = 30 * time.Minute
)

type Options struct {
	// BoardChatRef is where PublishBoard posts when no chat is given.
	BoardChatRef      string
	RateLimitInterval time.Duration
	BoardSyncTimeout  time.Duration
	GateConcurrency   int
	SessionTTL        time.Duration
	TimePolicy        contest.TimePolicy
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RateLimitInterval <= 0 {
		o.RateLimitInterval = defaultRateLimitInterval
	}
	if o.BoardSyncTimeout <= 0 {
		o.BoardSyncTimeout = defaultBoardSyncTimeout
	}
	if o.GateConcurrency <= 0 {
		o.GateConcurrency = defaultGateConcurrency
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = defaultSessionTTL
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Service struct {
	repo   ports.ContestRepository
	uow    ports.UnitOfWork
	cache  ports.Cache
	chat   ports.ChatPlatform
	feed   ports.TallyFeed
	opts   Options
	now    func() time.Time
	boards *boardScheduler
}

// NewService wires voting usecases. chat and feed may be nil for offline commands;
// board sync is skipped without chat and live publishing without feed.
func NewService(repo ports.ContestRepository, uow ports.UnitOfWork, cache ports.Cache, chat ports.ChatPlatform, feed ports.TallyFeed, opts Options) *Service {
	opts = opts.withDefaults()
	s := &Service{
		repo:  repo,
		uow:   uow,
		cache: cache,
		chat:  chat,
		feed:  feed,
		opts:  opts,
		now:   opts.Clock,
	}
	s.boards = newBoardScheduler(s.opts.BoardSyncTimeout, s.SyncBoard)
	return s
}

func (s *Service) TimePolicy() contest.TimePolicy {
	return s.opts.TimePolicy
}

// WaitBoardSyncs blocks until every scheduled board sync has finished.
func (s *Service) WaitBoardSyncs() {
	s.boards.Wait()
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		logging.Warn(ctx, "cache set failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) deleteCacheBestEffort(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		logging.Warn(ctx, "cache delete failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}
