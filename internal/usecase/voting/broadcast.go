package voting

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

// NotifyAdmins sends text to every recipient and returns how many sends succeeded.
// A failed send is logged and the remaining recipients are still tried.
func (s *Service) NotifyAdmins(ctx context.Context, recipients []int64, text string) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if s.chat == nil {
		return 0, errors.New("chat platform is not configured")
	}

	logCtx := logging.WithComponent(ctx, "voting.broadcast")
	sent := 0
	for _, recipient := range recipients {
		if err := ctx.Err(); err != nil {
			return sent, errs.Wrap(err, "check context")
		}
		if _, err := s.chat.SendMessage(ctx, ports.OutgoingMessage{
			ChatRef: strconv.FormatInt(recipient, 10),
			Text:    text,
		}); err != nil {
			logging.Warn(logCtx, "admin notification failed", slog.Int64("admin_id", recipient), slog.Any("err", errs.Loggable(err)))
			continue
		}
		sent++
	}
	return sent, nil
}
