package voting

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	cacheinfra "votebot/internal/infrastructure/cache"
	"votebot/internal/infrastructure/persistence/schema"
	sqliterepo "votebot/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "votebot/internal/infrastructure/persistence/sqlite/uow"
	"votebot/internal/ports"
)

var (
	testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(72 * time.Hour)
)

type editCall struct {
	chatRef   string
	messageID int
	buttons   [][]ports.Button
}

type fakeChat struct {
	mu          sync.Mutex
	memberships map[string]map[int64]ports.Membership
	failing     map[string]bool
	failSendTo  map[string]bool
	editErr     error
	sent        []ports.OutgoingMessage
	edits       []editCall
	callbacks   []string
	membership  int
	nextMessage int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		memberships: make(map[string]map[int64]ports.Membership),
		failing:     make(map[string]bool),
		failSendTo:  make(map[string]bool),
		nextMessage: 100,
	}
}

func (f *fakeChat) setMembership(channel string, userID int64, status ports.Membership) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberships[channel] == nil {
		f.memberships[channel] = make(map[int64]ports.Membership)
	}
	f.memberships[channel][userID] = status
}

func (f *fakeChat) SendMessage(_ context.Context, msg ports.OutgoingMessage) (ports.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSendTo[msg.ChatRef] {
		return ports.SentMessage{}, errors.New("bot was blocked by the user")
	}
	f.sent = append(f.sent, msg)
	f.nextMessage++
	return ports.SentMessage{ChatRef: msg.ChatRef, MessageID: f.nextMessage}, nil
}

func (f *fakeChat) SendDocument(_ context.Context, doc ports.OutgoingDocument) (ports.SentMessage, error) {
	return ports.SentMessage{ChatRef: doc.ChatRef}, nil
}

func (f *fakeChat) EditButtons(_ context.Context, chatRef string, messageID int, buttons [][]ports.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editCall{chatRef: chatRef, messageID: messageID, buttons: buttons})
	return nil
}

func (f *fakeChat) AnswerCallback(_ context.Context, callbackID string, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callbackID)
	return nil
}

func (f *fakeChat) GetMembership(_ context.Context, channelRef string, userID int64) (ports.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.membership++
	if f.failing[channelRef] {
		return ports.MembershipUnknown, errors.New("chat not found")
	}
	status, ok := f.memberships[channelRef][userID]
	if !ok {
		return ports.MembershipLeft, nil
	}
	return status, nil
}

func (f *fakeChat) BotUsername() string { return "contest_bot" }

func (f *fakeChat) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeChat) lastEdit() editCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func (f *fakeChat) membershipCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.membership
}

type fakeFeed struct {
	mu        sync.Mutex
	snapshots []ports.TallySnapshot
}

func (f *fakeFeed) Publish(_ context.Context, snapshot ports.TallySnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

type testEnv struct {
	svc  *Service
	repo *sqliterepo.ContestRepository
	chat *fakeChat
	feed *fakeFeed
}

func setupService(t *testing.T) testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "voting.sqlite") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := schema.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqliterepo.NewContestRepository(db)
	chat := newFakeChat()
	feed := &fakeFeed{}
	svc := NewService(repo, sqliteuow.NewUnitOfWork(db), cacheinfra.NewSQLiteCache(db), chat, feed, Options{
		BoardChatRef: "@contest_channel",
	})
	svc.now = func() time.Time { return testStart.Add(time.Hour) }

	t.Cleanup(func() {
		svc.WaitBoardSyncs()
		_ = sqlDB.Close()
	})
	return testEnv{svc: svc, repo: repo, chat: chat, feed: feed}
}

func (e testEnv) createContest(t *testing.T, candidates []string, channels ...string) CreateContestResult {
	t.Helper()

	inputs := make([]ChannelInput, 0, len(channels))
	for i, channel := range channels {
		inputs = append(inputs, ChannelInput{
			ChannelRef: channel,
			Title:      "Channel " + strconv.Itoa(i+1),
			InviteLink: "https://t.me/" + channel[1:],
		})
	}
	created, err := e.svc.CreateContest(context.Background(), CreateContestInput{
		Name:       "Best doctor 2026",
		StartAt:    testStart,
		EndAt:      testEnd,
		Candidates: candidates,
		Channels:   inputs,
	})
	if err != nil {
		t.Fatalf("CreateContest() error = %v", err)
	}
	return created
}

func (e testEnv) tallies(t *testing.T, contestID uint64) map[string]int64 {
	t.Helper()

	items, err := e.repo.ListCandidates(context.Background(), contestID)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	out := make(map[string]int64, len(items))
	for _, item := range items {
		out[item.Name] = item.Votes
	}
	return out
}
