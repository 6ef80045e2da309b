package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"votebot/internal/errs"
	"votebot/internal/ports"
)

// Client adapts the Bot API to ports.ChatPlatform. The API handle is created on first use
// because creating it performs a network round trip.
type Client struct {
	token    string
	username string

	once    sync.Once
	api     *tgbotapi.BotAPI
	initErr error
}

var _ ports.ChatPlatform = (*Client)(nil)

func NewClient(token string, username string) *Client {
	return &Client{
		token:    strings.TrimSpace(token),
		username: strings.TrimPrefix(strings.TrimSpace(username), "@"),
	}
}

func (c *Client) API() (*tgbotapi.BotAPI, error) {
	c.once.Do(func() {
		if c.token == "" {
			c.initErr = errors.New("bot token is required")
			return
		}
		api, err := tgbotapi.NewBotAPI(c.token)
		if err != nil {
			c.initErr = errs.Wrap(err, "connect bot api")
			return
		}
		c.api = api
	})
	return c.api, c.initErr
}

func (c *Client) BotUsername() string {
	if c.username != "" {
		return c.username
	}
	if api, err := c.API(); err == nil {
		return api.Self.UserName
	}
	return ""
}

func (c *Client) SendMessage(ctx context.Context, msg ports.OutgoingMessage) (ports.SentMessage, error) {
	if err := checkContext(ctx); err != nil {
		return ports.SentMessage{}, err
	}
	api, err := c.API()
	if err != nil {
		return ports.SentMessage{}, err
	}

	chattable, err := buildMessage(msg)
	if err != nil {
		return ports.SentMessage{}, err
	}
	sent, err := api.Send(chattable)
	if err != nil {
		return ports.SentMessage{}, errs.Wrapf(err, "send message to %s", msg.ChatRef)
	}
	return ports.SentMessage{ChatRef: msg.ChatRef, MessageID: sent.MessageID}, nil
}

func (c *Client) SendDocument(ctx context.Context, doc ports.OutgoingDocument) (ports.SentMessage, error) {
	if err := checkContext(ctx); err != nil {
		return ports.SentMessage{}, err
	}
	api, err := c.API()
	if err != nil {
		return ports.SentMessage{}, err
	}

	cfg, err := buildDocument(doc)
	if err != nil {
		return ports.SentMessage{}, err
	}
	sent, err := api.Send(cfg)
	if err != nil {
		return ports.SentMessage{}, errs.Wrapf(err, "send document %s to %s", doc.FileName, doc.ChatRef)
	}
	return ports.SentMessage{ChatRef: doc.ChatRef, MessageID: sent.MessageID}, nil
}

func (c *Client) EditButtons(ctx context.Context, chatRef string, messageID int, buttons [][]ports.Button) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	api, err := c.API()
	if err != nil {
		return err
	}

	edit, err := buildButtonsEdit(chatRef, messageID, buttons)
	if err != nil {
		return err
	}
	if _, err := api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return ports.ErrMessageNotModified
		}
		return errs.Wrapf(err, "edit buttons of %s/%d", chatRef, messageID)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	api, err := c.API()
	if err != nil {
		return err
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := api.Request(cfg); err != nil {
		return errs.Wrap(err, "answer callback")
	}
	return nil
}

func (c *Client) GetMembership(ctx context.Context, channelRef string, userID int64) (ports.Membership, error) {
	if err := checkContext(ctx); err != nil {
		return ports.MembershipUnknown, err
	}
	api, err := c.API()
	if err != nil {
		return ports.MembershipUnknown, err
	}

	target := tgbotapi.ChatConfigWithUser{UserID: userID}
	chatID, username, err := parseChatRef(channelRef)
	if err != nil {
		return ports.MembershipUnknown, err
	}
	if username != "" {
		target.SuperGroupUsername = username
	} else {
		target.ChatID = chatID
	}

	member, err := api.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: target})
	if err != nil {
		return ports.MembershipUnknown, errs.Wrapf(err, "get chat member of %s", channelRef)
	}
	return mapMembership(member.Status, member.IsMember), nil
}

func mapMembership(status string, isMember bool) ports.Membership {
	switch status {
	case "creator", "administrator", "member":
		return ports.MembershipMember
	case "restricted":
		if isMember {
			return ports.MembershipMember
		}
		return ports.MembershipLeft
	case "left":
		return ports.MembershipLeft
	case "kicked":
		return ports.MembershipKicked
	default:
		return ports.MembershipUnknown
	}
}

// parseChatRef splits a chat ref into a numeric id or an @username.
func parseChatRef(ref string) (int64, string, error) {
	trimmed := strings.TrimSpace(ref)
	if strings.HasPrefix(trimmed, "@") {
		return 0, trimmed, nil
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid chat ref %q", ref)
	}
	return id, "", nil
}

func buildMessage(msg ports.OutgoingMessage) (tgbotapi.Chattable, error) {
	chatID, username, err := parseChatRef(msg.ChatRef)
	if err != nil {
		return nil, err
	}

	var markup any
	switch {
	case len(msg.Buttons) > 0:
		markup = inlineMarkup(msg.Buttons)
	case len(msg.MenuButtons) > 0:
		markup = menuMarkup(msg.MenuButtons)
	}

	if photo := strings.TrimSpace(msg.PhotoRef); photo != "" {
		var cfg tgbotapi.PhotoConfig
		if username != "" {
			cfg = tgbotapi.NewPhotoToChannel(username, tgbotapi.FileID(photo))
		} else {
			cfg = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photo))
		}
		cfg.Caption = msg.Text
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = markup
		}
		return cfg, nil
	}

	var cfg tgbotapi.MessageConfig
	if username != "" {
		cfg = tgbotapi.NewMessageToChannel(username, msg.Text)
	} else {
		cfg = tgbotapi.NewMessage(chatID, msg.Text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if markup != nil {
		cfg.ReplyMarkup = markup
	}
	return cfg, nil
}

func buildDocument(doc ports.OutgoingDocument) (tgbotapi.DocumentConfig, error) {
	if strings.TrimSpace(doc.FileName) == "" {
		return tgbotapi.DocumentConfig{}, errors.New("document file name is required")
	}
	chatID, username, err := parseChatRef(doc.ChatRef)
	if err != nil {
		return tgbotapi.DocumentConfig{}, err
	}

	file := tgbotapi.FileBytes{Name: doc.FileName, Bytes: doc.Content}
	var cfg tgbotapi.DocumentConfig
	if username != "" {
		cfg = tgbotapi.DocumentConfig{BaseFile: tgbotapi.BaseFile{
			BaseChat: tgbotapi.BaseChat{ChannelUsername: username},
			File:     file,
		}}
	} else {
		cfg = tgbotapi.NewDocument(chatID, file)
	}
	cfg.Caption = doc.Caption
	cfg.ParseMode = tgbotapi.ModeHTML
	return cfg, nil
}

func buildButtonsEdit(chatRef string, messageID int, buttons [][]ports.Button) (tgbotapi.EditMessageReplyMarkupConfig, error) {
	chatID, username, err := parseChatRef(chatRef)
	if err != nil {
		return tgbotapi.EditMessageReplyMarkupConfig{}, err
	}

	markup := inlineMarkup(buttons)
	if username != "" {
		return tgbotapi.EditMessageReplyMarkupConfig{
			BaseEdit: tgbotapi.BaseEdit{
				ChannelUsername: username,
				MessageID:       messageID,
				ReplyMarkup:     &markup,
			},
		}, nil
	}
	return tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup), nil
}

func inlineMarkup(rows [][]ports.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			if button.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func menuMarkup(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
		}
		keyboard = append(keyboard, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}
