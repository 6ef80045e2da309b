package voting

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

func boardCacheKey(contestID uint64) string {
	return "board:" + strconv.FormatUint(contestID, 10)
}

// RenderBoardButtons builds one URL button per candidate, each deep-linking into a private vote.
func RenderBoardButtons(botUsername string, contestID uint64, candidates []ports.Candidate) [][]ports.Button {
	rows := make([][]ports.Button, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, []ports.Button{{
			Text: fmt.Sprintf("👤 %s - %s", candidate.Name, contest.FormatCompactCount(candidate.Votes)),
			URL:  contest.StartURL(botUsername, contest.DeepLink{ContestID: contestID, CandidateID: candidate.CandidateID}),
		}})
	}
	return rows
}

// RenderBoardCaption is the text of the public board post.
func RenderBoardCaption(c ports.Contest) string {
	return fmt.Sprintf("🗳 <b>%s</b>", html.EscapeString(c.Name))
}

func boardSignature(rows [][]ports.Button) string {
	var b strings.Builder
	for _, row := range rows {
		for _, button := range row {
			b.WriteString(button.Text)
			b.WriteByte('|')
			b.WriteString(button.URL)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// SyncBoard re-renders the board post's buttons from the current tallies.
// Chat edit failures are logged and swallowed; only store failures are returned.
func (s *Service) SyncBoard(ctx context.Context, contestID uint64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "voting.board"), slog.Uint64("contest_id", contestID))

	current, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return errs.Wrap(err, "load contest")
	}
	candidates, err := s.repo.ListCandidates(ctx, contestID)
	if err != nil {
		return errs.Wrap(err, "load tallies")
	}

	s.publishSnapshot(logCtx, current, candidates)

	if current.Board == nil || s.chat == nil {
		return nil
	}

	rows := RenderBoardButtons(s.chat.BotUsername(), contestID, candidates)
	signature := boardSignature(rows)
	if s.cache != nil {
		if previous, found, err := s.cache.Get(ctx, boardCacheKey(contestID)); err == nil && found && previous == signature {
			logging.Debug(logCtx, "board unchanged, skip edit")
			return nil
		}
	}

	if err := s.chat.EditButtons(ctx, current.Board.ChatRef, current.Board.MessageID, rows); err != nil {
		if !errors.Is(err, ports.ErrMessageNotModified) {
			logging.Warn(logCtx, "board edit failed",
				slog.String("chat", current.Board.ChatRef),
				slog.Int("message_id", current.Board.MessageID),
				slog.Any("err", errs.Loggable(err)),
			)
			return nil
		}
	}

	s.setCacheBestEffort(ctx, boardCacheKey(contestID), signature, 0)
	logging.Debug(logCtx, "board synced", slog.Int("candidates", len(candidates)))
	return nil
}

// RequestBoardSync schedules a board sync that outlives the caller's request.
func (s *Service) RequestBoardSync(ctx context.Context, contestID uint64) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.boards.Request(context.WithoutCancel(ctx), contestID)
}

func (s *Service) publishSnapshot(ctx context.Context, c ports.Contest, candidates []ports.Candidate) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, buildSnapshot(c, candidates, s.now().UTC())); err != nil {
		logging.Warn(ctx, "tally feed publish failed", slog.Any("err", errs.Loggable(err)))
	}
}
