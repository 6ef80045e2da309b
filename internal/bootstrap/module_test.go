package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/fx"

	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

type recordingChat struct {
	mu    sync.Mutex
	edits [][][]ports.Button
}

func (c *recordingChat) SendMessage(_ context.Context, msg ports.OutgoingMessage) (ports.SentMessage, error) {
	return ports.SentMessage{ChatRef: msg.ChatRef, MessageID: 77}, nil
}

func (c *recordingChat) SendDocument(_ context.Context, doc ports.OutgoingDocument) (ports.SentMessage, error) {
	return ports.SentMessage{ChatRef: doc.ChatRef}, nil
}

func (c *recordingChat) EditButtons(_ context.Context, _ string, _ int, buttons [][]ports.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, buttons)
	return nil
}

func (c *recordingChat) AnswerCallback(context.Context, string, string, bool) error { return nil }

func (c *recordingChat) GetMembership(context.Context, string, int64) (ports.Membership, error) {
	return ports.MembershipMember, nil
}

func (c *recordingChat) BotUsername() string { return "contest_bot" }

func (c *recordingChat) lastEditText() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.edits) == 0 {
		return "", 0
	}
	last := c.edits[len(c.edits)-1]
	return last[0][0].Text, len(c.edits)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "votebot.sqlite") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	raw := "app:\n  timezone: UTC\ndatabase:\n  driver: sqlite\n  dsn: \"" + dsn + "\"\nbot:\n  channel_id: \"@board\"\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestStopFlushesPendingBoardSync(t *testing.T) {
	ctx := context.Background()
	configFile := writeTestConfig(t)
	chat := &recordingChat{}

	var app *App
	var svc *voting.Service
	fxApp := fx.New(
		Module,
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		fx.Provide(
			fx.Annotate(
				func() string { return configFile },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Decorate(func(ports.ChatPlatform) ports.ChatPlatform { return chat }),
		fx.Populate(&app, &svc),
	)
	if err := fxApp.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	stopped := false
	t.Cleanup(func() {
		if !stopped {
			_ = fxApp.Stop(context.Background())
		}
	})

	if _, err := app.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	now := time.Now().UTC()
	created, err := svc.CreateContest(ctx, voting.CreateContestInput{
		Name:       "Best doctor 2026",
		StartAt:    now.Add(-time.Hour),
		EndAt:      now.Add(time.Hour),
		Candidates: []string{"A"},
	})
	if err != nil {
		t.Fatalf("CreateContest() error = %v", err)
	}
	contestID := created.Contest.ContestID
	if _, err := svc.PublishBoard(ctx, contestID, ""); err != nil {
		t.Fatalf("PublishBoard() error = %v", err)
	}

	result, err := svc.Admit(ctx, voting.AdmitInput{ContestID: contestID, CandidateID: created.Candidates[0].CandidateID, VoterID: 1})
	if err != nil || !result.Admitted() {
		t.Fatalf("Admit() = %+v, %v", result, err)
	}
	svc.WaitBoardSyncs()
	if text, _ := chat.lastEditText(); text != "👤 A - 1" {
		t.Fatalf("board after vote = %q, want 👤 A - 1", text)
	}

	if _, err := svc.ResetVotes(ctx, contestID); err != nil {
		t.Fatalf("ResetVotes() error = %v", err)
	}
	stopped = true
	if err := fxApp.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	text, edits := chat.lastEditText()
	if text != "👤 A - 0" {
		t.Fatalf("board after reset and stop = %q (edits=%d), want 👤 A - 0", text, edits)
	}
}
