package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"votebot/internal/ports"
)

func TestMapMembership(t *testing.T) {
	tests := []struct {
		status   string
		isMember bool
		want     ports.Membership
	}{
		{"creator", false, ports.MembershipMember},
		{"administrator", false, ports.MembershipMember},
		{"member", false, ports.MembershipMember},
		{"restricted", true, ports.MembershipMember},
		{"restricted", false, ports.MembershipLeft},
		{"left", false, ports.MembershipLeft},
		{"kicked", false, ports.MembershipKicked},
		{"weird", true, ports.MembershipUnknown},
	}
	for _, tt := range tests {
		if got := mapMembership(tt.status, tt.isMember); got != tt.want {
			t.Fatalf("mapMembership(%q, %v) = %q, want %q", tt.status, tt.isMember, got, tt.want)
		}
	}
}

func TestParseChatRef(t *testing.T) {
	id, username, err := parseChatRef("-1001234")
	if err != nil || id != -1001234 || username != "" {
		t.Fatalf("parseChatRef(numeric) = %d %q %v", id, username, err)
	}
	id, username, err = parseChatRef(" @news ")
	if err != nil || id != 0 || username != "@news" {
		t.Fatalf("parseChatRef(username) = %d %q %v", id, username, err)
	}
	if _, _, err := parseChatRef("news"); err == nil {
		t.Fatalf("parseChatRef(bare name) should fail")
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(ports.OutgoingMessage{
		ChatRef: "42",
		Text:    "<b>hi</b>",
		Buttons: [][]ports.Button{
			{{Text: "vote", Data: "vote_1"}},
			{{Text: "open", URL: "https://t.me/bot?start=vote_1_2"}},
		},
	})
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
	cfg, ok := msg.(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("buildMessage() = %T, want MessageConfig", msg)
	}
	if cfg.ChatID != 42 || cfg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	markup, ok := cfg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 2 {
		t.Fatalf("unexpected markup: %#v", cfg.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][0].CallbackData; data == nil || *data != "vote_1" {
		t.Fatalf("callback data = %v", data)
	}
	if url := markup.InlineKeyboard[1][0].URL; url == nil || *url != "https://t.me/bot?start=vote_1_2" {
		t.Fatalf("url = %v", url)
	}

	photo, err := buildMessage(ports.OutgoingMessage{ChatRef: "@board", Text: "caption", PhotoRef: "file-1"})
	if err != nil {
		t.Fatalf("buildMessage(photo) error = %v", err)
	}
	photoCfg, ok := photo.(tgbotapi.PhotoConfig)
	if !ok || photoCfg.ChannelUsername != "@board" || photoCfg.Caption != "caption" {
		t.Fatalf("unexpected photo config: %#v", photo)
	}

	menu, err := buildMessage(ports.OutgoingMessage{ChatRef: "7", Text: "menu", MenuButtons: [][]string{{"a", "b"}}})
	if err != nil {
		t.Fatalf("buildMessage(menu) error = %v", err)
	}
	reply, ok := menu.(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok || !reply.ResizeKeyboard || len(reply.Keyboard[0]) != 2 {
		t.Fatalf("unexpected menu markup: %#v", menu)
	}
}

func TestBuildButtonsEdit(t *testing.T) {
	buttons := [][]ports.Button{{{Text: "x", URL: "https://t.me/x"}}}

	edit, err := buildButtonsEdit("@board", 9, buttons)
	if err != nil {
		t.Fatalf("buildButtonsEdit() error = %v", err)
	}
	if edit.ChannelUsername != "@board" || edit.MessageID != 9 || edit.ReplyMarkup == nil {
		t.Fatalf("unexpected channel edit: %+v", edit.BaseEdit)
	}

	edit, err = buildButtonsEdit("-100", 3, buttons)
	if err != nil {
		t.Fatalf("buildButtonsEdit() error = %v", err)
	}
	if edit.ChatID != -100 || edit.MessageID != 3 {
		t.Fatalf("unexpected chat edit: %+v", edit.BaseEdit)
	}
}

func TestBuildDocument(t *testing.T) {
	doc, err := buildDocument(ports.OutgoingDocument{ChatRef: "42", FileName: "contest_1.csv", Content: []byte("a,b\n"), Caption: "<b>report</b>"})
	if err != nil {
		t.Fatalf("buildDocument() error = %v", err)
	}
	if doc.ChatID != 42 || doc.Caption != "<b>report</b>" || doc.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected document: %+v", doc)
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || file.Name != "contest_1.csv" || string(file.Bytes) != "a,b\n" {
		t.Fatalf("document file = %#v", doc.File)
	}

	doc, err = buildDocument(ports.OutgoingDocument{ChatRef: "@board", FileName: "x.csv"})
	if err != nil {
		t.Fatalf("buildDocument(channel) error = %v", err)
	}
	if doc.ChannelUsername != "@board" {
		t.Fatalf("ChannelUsername = %q", doc.ChannelUsername)
	}

	if _, err := buildDocument(ports.OutgoingDocument{ChatRef: "42"}); err == nil {
		t.Fatalf("buildDocument() without file name should fail")
	}
}

func TestClientWithoutTokenFails(t *testing.T) {
	client := NewClient("", "@votebot")
	if client.BotUsername() != "votebot" {
		t.Fatalf("BotUsername() = %q", client.BotUsername())
	}
	if _, err := client.SendMessage(context.Background(), ports.OutgoingMessage{ChatRef: "1"}); err == nil {
		t.Fatalf("SendMessage() without token should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.AnswerCallback(ctx, "id", "", false); !errors.Is(err, context.Canceled) {
		t.Fatalf("AnswerCallback() error = %v, want context.Canceled", err)
	}
}
