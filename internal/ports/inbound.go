package ports

import "context"

type EventKind string

const (
	EventMessage  EventKind = "message"
	EventCallback EventKind = "callback"
)

// InboundEvent is a chat update reduced to what the dialog needs.
type InboundEvent struct {
	Kind      EventKind
	UpdateID  int
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	FirstName string
	LastName  string

	Text        string
	Command     string
	CommandArgs string

	CallbackID   string
	CallbackData string
}

type EventHandler interface {
	Handle(ctx context.Context, event InboundEvent) error
}
