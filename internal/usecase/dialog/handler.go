package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

const (
	deepVotePrefix      = "vote_deep_"
	deepCheckPrefix     = "check_sub_deep_"
	votePrefix          = "vote_"
	confirmPrefix       = "confirm_vote_"
	dataCancelVote      = "cancel_vote"
	dataCheckVote       = "check_subscription_vote"
	stopPrefix          = "stop_contest:"
	stopConfirmPrefix   = "yes:stop:"
	dataStopCancel      = "no:stop"
	dataResetConfirm    = "yes:reset_votes"
	dataResetCancel     = "no:reset_votes"
	archivePrefix       = "archive:"
	archiveListLimit    = 20
	archiveWinnersLimit = 3
)

// Handler is the chat entry layer. Admin capability is checked here; voting operations take no role.
type Handler struct {
	svc    *voting.Service
	chat   ports.ChatPlatform
	admins map[int64]struct{}
}

var _ ports.EventHandler = (*Handler)(nil)

func NewHandler(svc *voting.Service, chat ports.ChatPlatform, adminIDs []int64) *Handler {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Handler{svc: svc, chat: chat, admins: admins}
}

func (h *Handler) IsAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

// callbackAnswer is the acknowledgement sent for a callback once it has been handled.
type callbackAnswer struct {
	text  string
	alert bool
}

// Handle routes one inbound event. Store failures are answered with a generic text and returned.
func (h *Handler) Handle(ctx context.Context, event ports.InboundEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	ctx = logging.WithComponent(ctx, "dialog")

	switch event.Kind {
	case ports.EventMessage:
		if err := h.handleMessage(ctx, event); err != nil {
			h.replyFailure(ctx, event)
			return err
		}
		return nil
	case ports.EventCallback:
		answer, err := h.handleCallback(ctx, event)
		if err != nil {
			answer = callbackAnswer{text: textGenericFailure, alert: true}
		}
		if ackErr := h.chat.AnswerCallback(ctx, event.CallbackID, answer.text, answer.alert); ackErr != nil {
			logging.Warn(ctx, "answer callback failed", slog.Any("err", errs.Loggable(ackErr)))
		}
		return err
	default:
		return nil
	}
}

func (h *Handler) handleMessage(ctx context.Context, event ports.InboundEvent) error {
	if event.Command != "" {
		switch event.Command {
		case "start":
			return h.start(ctx, event)
		case "stats":
			return h.requireAdmin(ctx, event, h.adminStats)
		case "stop":
			return h.requireAdmin(ctx, event, h.adminStopMenu)
		case "reset":
			return h.requireAdmin(ctx, event, h.adminResetPrompt)
		case "archive":
			return h.requireAdmin(ctx, event, h.adminArchive)
		case "report":
			return h.requireAdmin(ctx, event, h.adminReport)
		default:
			return nil
		}
	}

	switch event.Text {
	case menuVote:
		return h.voteMenu(ctx, event)
	case menuResults:
		return h.results(ctx, event)
	case menuInfo:
		return h.info(ctx, event)
	case menuAdmin:
		return h.requireAdmin(ctx, event, h.adminPanel)
	case adminBack:
		return h.requireAdmin(ctx, event, h.backToMain)
	case adminReport:
		return h.requireAdmin(ctx, event, h.adminReport)
	case adminStop:
		return h.requireAdmin(ctx, event, h.adminStopMenu)
	case adminArchive:
		return h.requireAdmin(ctx, event, h.adminArchive)
	case adminReset:
		return h.requireAdmin(ctx, event, h.adminResetPrompt)
	}

	logging.Debug(ctx, "unrouted message", slog.String("text", event.Text))
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, event ports.InboundEvent) (callbackAnswer, error) {
	data := event.CallbackData

	// Longer prefixes first: vote_deep_ also starts with vote_.
	if rest, ok := strings.CutPrefix(data, deepVotePrefix); ok {
		return h.deepVote(ctx, event, rest)
	}
	if rest, ok := strings.CutPrefix(data, deepCheckPrefix); ok {
		return h.deepCheck(ctx, event, rest)
	}
	if rest, ok := strings.CutPrefix(data, confirmPrefix); ok {
		return h.confirmVote(ctx, event, rest)
	}
	if data == dataCancelVote {
		return h.cancelVote(ctx, event)
	}
	if data == dataCheckVote {
		return h.checkVoteSubscription(ctx, event)
	}
	if rest, ok := strings.CutPrefix(data, votePrefix); ok {
		return h.selectCandidate(ctx, event, rest)
	}

	if !h.IsAdmin(event.UserID) {
		switch {
		case strings.HasPrefix(data, stopPrefix), strings.HasPrefix(data, stopConfirmPrefix),
			strings.HasPrefix(data, archivePrefix), data == dataResetConfirm:
			return callbackAnswer{text: textDenied, alert: true}, nil
		}
	}
	if rest, ok := strings.CutPrefix(data, stopConfirmPrefix); ok {
		return h.adminStopExecute(ctx, event, rest)
	}
	if rest, ok := strings.CutPrefix(data, stopPrefix); ok {
		return h.adminStopConfirm(ctx, event, rest)
	}
	if rest, ok := strings.CutPrefix(data, archivePrefix); ok {
		return h.adminArchivedContest(ctx, event, rest)
	}
	switch data {
	case dataResetConfirm:
		return h.adminResetExecute(ctx, event)
	case dataResetCancel, dataStopCancel:
		return callbackAnswer{text: textCancelled}, nil
	}

	logging.Debug(ctx, "unrouted callback", slog.String("data", data))
	return callbackAnswer{}, nil
}

func (h *Handler) requireAdmin(ctx context.Context, event ports.InboundEvent, next func(context.Context, ports.InboundEvent) error) error {
	if !h.IsAdmin(event.UserID) {
		return h.send(ctx, event.ChatID, ports.OutgoingMessage{Text: textNotAdmin})
	}
	return next(ctx, event)
}

func (h *Handler) send(ctx context.Context, chatID int64, msg ports.OutgoingMessage) error {
	msg.ChatRef = strconv.FormatInt(chatID, 10)
	if _, err := h.chat.SendMessage(ctx, msg); err != nil {
		return errs.Wrap(err, "send reply")
	}
	return nil
}

func (h *Handler) sendText(ctx context.Context, event ports.InboundEvent, text string) error {
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{Text: text})
}

func (h *Handler) sendWithMenu(ctx context.Context, event ports.InboundEvent, text string) error {
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{Text: text, MenuButtons: mainMenu(h.IsAdmin(event.UserID))})
}

func (h *Handler) replyFailure(ctx context.Context, event ports.InboundEvent) {
	if err := h.sendText(ctx, event, textGenericFailure); err != nil {
		logging.Warn(ctx, "send failure reply failed", slog.Any("err", errs.Loggable(err)))
	}
}

func voterName(event ports.InboundEvent) string {
	if event.Username != "" {
		return event.Username
	}
	return strings.TrimSpace(event.FirstName + " " + event.LastName)
}

func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseIDPair parses "<a>_<b>".
func parseIDPair(raw string) (uint64, uint64, bool) {
	left, right, ok := strings.Cut(raw, "_")
	if !ok {
		return 0, 0, false
	}
	a, okA := parseID(left)
	b, okB := parseID(right)
	return a, b, okA && okB
}
