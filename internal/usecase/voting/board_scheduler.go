package voting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
)

type boardState struct {
	pending bool
	ctx     context.Context
}

// boardScheduler runs at most one sync per contest at a time. Requests that arrive
// during a run collapse into a single follow-up run, so the last run sees the latest tallies.
type boardScheduler struct {
	mu      sync.Mutex
	running map[uint64]*boardState
	wg      sync.WaitGroup
	timeout time.Duration
	syncFn  func(ctx context.Context, contestID uint64) error
}

func newBoardScheduler(timeout time.Duration, syncFn func(ctx context.Context, contestID uint64) error) *boardScheduler {
	return &boardScheduler{
		running: make(map[uint64]*boardState),
		timeout: timeout,
		syncFn:  syncFn,
	}
}

func (b *boardScheduler) Request(ctx context.Context, contestID uint64) {
	b.mu.Lock()
	if state, ok := b.running[contestID]; ok {
		state.pending = true
		state.ctx = ctx
		b.mu.Unlock()
		return
	}
	b.running[contestID] = &boardState{ctx: ctx}
	b.wg.Add(1)
	b.mu.Unlock()

	go b.loop(ctx, contestID)
}

func (b *boardScheduler) loop(ctx context.Context, contestID uint64) {
	defer b.wg.Done()

	for {
		b.runOnce(ctx, contestID)

		b.mu.Lock()
		state := b.running[contestID]
		if !state.pending {
			delete(b.running, contestID)
			b.mu.Unlock()
			return
		}
		state.pending = false
		ctx = state.ctx
		b.mu.Unlock()
	}
}

func (b *boardScheduler) runOnce(ctx context.Context, contestID uint64) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if err := errs.FromPanic(recover()); err != nil {
			logging.Error(runCtx, "board sync panicked", slog.Uint64("contest_id", contestID), slog.Any("err", errs.Loggable(err)))
		}
	}()

	if err := b.syncFn(runCtx, contestID); err != nil {
		logging.Warn(runCtx, "board sync failed", slog.Uint64("contest_id", contestID), slog.Any("err", errs.Loggable(err)))
	}
}

func (b *boardScheduler) Wait() {
	b.wg.Wait()
}
