package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

const (
	defaultPollTimeout = 30
	defaultWorkers     = 8
)

type RunnerOptions struct {
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	Workers     int
}

// Runner long-polls updates and dispatches them to a handler with bounded concurrency.
type Runner struct {
	client  *Client
	handler ports.EventHandler
	opts    RunnerOptions
}

func NewRunner(client *Client, handler ports.EventHandler, opts RunnerOptions) *Runner {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Runner{client: client, handler: handler, opts: opts}
}

// Run blocks until ctx is done, then waits for in-flight handlers.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if r.handler == nil {
		return errors.New("event handler is required")
	}
	api, err := r.client.API()
	if err != nil {
		return err
	}

	ctx = logging.WithComponent(ctx, "telegram.runner")
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = r.opts.PollTimeout
	updates := api.GetUpdatesChan(cfg)
	logging.Info(ctx, "polling updates", slog.String("bot", api.Self.UserName), slog.Int("workers", r.opts.Workers))

	var group errgroup.Group
	group.SetLimit(r.opts.Workers)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			event, ok := ConvertUpdate(update)
			if !ok {
				continue
			}
			group.Go(func() error {
				r.dispatch(context.WithoutCancel(ctx), event)
				return nil
			})
		}
	}

	api.StopReceivingUpdates()
	_ = group.Wait()
	logging.Info(ctx, "polling stopped")
	return nil
}

func (r *Runner) dispatch(ctx context.Context, event ports.InboundEvent) {
	ctx = logging.WithTelemetry(ctx, uuid.NewString(), "")
	ctx = logging.WithAttrs(ctx,
		slog.Int("update_id", event.UpdateID),
		slog.String("kind", string(event.Kind)),
		slog.Int64("user_id", event.UserID),
	)

	defer func() {
		if err := errs.FromPanic(recover()); err != nil {
			logging.Error(ctx, "handler panicked", slog.Any("err", errs.Loggable(err)))
		}
	}()

	if err := r.handler.Handle(ctx, event); err != nil {
		logging.Error(ctx, "handle update failed", slog.Any("err", errs.Loggable(err)))
	}
}

// ConvertUpdate maps a Bot API update to an inbound event. Updates without a sender are dropped.
func ConvertUpdate(update tgbotapi.Update) (ports.InboundEvent, bool) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.From == nil {
			return ports.InboundEvent{}, false
		}
		event := ports.InboundEvent{
			Kind:         ports.EventCallback,
			UpdateID:     update.UpdateID,
			UserID:       query.From.ID,
			Username:     query.From.UserName,
			FirstName:    query.From.FirstName,
			LastName:     query.From.LastName,
			CallbackID:   query.ID,
			CallbackData: query.Data,
			ChatID:       query.From.ID,
		}
		if query.Message != nil {
			event.MessageID = query.Message.MessageID
			if query.Message.Chat != nil {
				event.ChatID = query.Message.Chat.ID
			}
		}
		return event, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
			return ports.InboundEvent{}, false
		}
		event := ports.InboundEvent{
			Kind:      ports.EventMessage,
			UpdateID:  update.UpdateID,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Text:      strings.TrimSpace(msg.Text),
		}
		if msg.IsCommand() {
			event.Command = msg.Command()
			event.CommandArgs = strings.TrimSpace(msg.CommandArguments())
		}
		return event, true
	}
	return ports.InboundEvent{}, false
}
