package ports

import (
	"context"
	"errors"
)

// ErrMessageNotModified is returned by EditButtons when the new markup equals the current one.
var ErrMessageNotModified = errors.New("message is not modified")

type Membership string

const (
	MembershipMember  Membership = "member"
	MembershipLeft    Membership = "left"
	MembershipKicked  Membership = "kicked"
	MembershipUnknown Membership = "unknown"
)

// Button is an inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// OutgoingMessage is sent as a photo with caption when PhotoRef is set.
// ChatRef is a numeric chat id or an @channel username.
type OutgoingMessage struct {
	ChatRef     string
	Text        string
	PhotoRef    string
	Buttons     [][]Button
	MenuButtons [][]string
}

// OutgoingDocument is a file upload; Caption is HTML.
type OutgoingDocument struct {
	ChatRef  string
	FileName string
	Content  []byte
	Caption  string
}

type SentMessage struct {
	ChatRef   string
	MessageID int
}

type ChatPlatform interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) (SentMessage, error)
	SendDocument(ctx context.Context, doc OutgoingDocument) (SentMessage, error)
	EditButtons(ctx context.Context, chatRef string, messageID int, buttons [][]Button) error
	AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error
	GetMembership(ctx context.Context, channelRef string, userID int64) (Membership, error)
	BotUsername() string
}
