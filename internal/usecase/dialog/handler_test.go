package dialog

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
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
	"votebot/internal/usecase/voting"
)

const (
	adminID = int64(1)
	voterID = int64(500)
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type answer struct {
	id    string
	text  string
	alert bool
}

type fakeChat struct {
	mu          sync.Mutex
	memberships map[string]map[int64]ports.Membership
	sent        []ports.OutgoingMessage
	docs        []ports.OutgoingDocument
	answers     []answer
}

func (f *fakeChat) SendMessage(_ context.Context, msg ports.OutgoingMessage) (ports.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return ports.SentMessage{ChatRef: msg.ChatRef, MessageID: len(f.sent)}, nil
}

func (f *fakeChat) SendDocument(_ context.Context, doc ports.OutgoingDocument) (ports.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	return ports.SentMessage{ChatRef: doc.ChatRef, MessageID: len(f.sent) + len(f.docs)}, nil
}

func (f *fakeChat) EditButtons(context.Context, string, int, [][]ports.Button) error { return nil }

func (f *fakeChat) AnswerCallback(_ context.Context, callbackID string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{id: callbackID, text: text, alert: alert})
	return nil
}

func (f *fakeChat) GetMembership(_ context.Context, channelRef string, userID int64) (ports.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.memberships[channelRef][userID]; ok {
		return status, nil
	}
	return ports.MembershipLeft, nil
}

func (f *fakeChat) BotUsername() string { return "contest_bot" }

func (f *fakeChat) join(channel string, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberships == nil {
		f.memberships = make(map[string]map[int64]ports.Membership)
	}
	if f.memberships[channel] == nil {
		f.memberships[channel] = make(map[int64]ports.Membership)
	}
	f.memberships[channel][userID] = ports.MembershipMember
}

// drain returns and forgets the messages sent so far.
func (f *fakeChat) drain() []ports.OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeChat) answerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.answers)
}

type testEnv struct {
	handler *Handler
	svc     *voting.Service
	chat    *fakeChat
	clock   *testClock
}

func setupHandler(t *testing.T) testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "dialog.sqlite") + "?_pragma=busy_timeout(5000)"
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

	clock := &testClock{now: testStart.Add(time.Hour)}
	chat := &fakeChat{}
	svc := voting.NewService(
		sqliterepo.NewContestRepository(db),
		sqliteuow.NewUnitOfWork(db),
		cacheinfra.NewSQLiteCache(db),
		chat,
		nil,
		voting.Options{Clock: clock.Now},
	)
	t.Cleanup(func() {
		svc.WaitBoardSyncs()
		_ = sqlDB.Close()
	})
	return testEnv{handler: NewHandler(svc, chat, []int64{adminID}), svc: svc, chat: chat, clock: clock}
}

func (e testEnv) createContest(t *testing.T, channels ...string) voting.CreateContestResult {
	t.Helper()

	inputs := make([]voting.ChannelInput, 0, len(channels))
	for _, channel := range channels {
		inputs = append(inputs, voting.ChannelInput{ChannelRef: channel, Title: channel[1:], InviteLink: "https://t.me/" + channel[1:]})
	}
	created, err := e.svc.CreateContest(context.Background(), voting.CreateContestInput{
		Name:       "Best doctor 2026",
		StartAt:    testStart,
		EndAt:      testStart.Add(48 * time.Hour),
		Candidates: []string{"Aziz", "Zarina"},
		Channels:   inputs,
	})
	if err != nil {
		t.Fatalf("CreateContest() error = %v", err)
	}
	return created
}

func (e testEnv) message(t *testing.T, userID int64, text string) []ports.OutgoingMessage {
	t.Helper()

	event := ports.InboundEvent{Kind: ports.EventMessage, ChatID: userID, UserID: userID, FirstName: "Ann", Text: text}
	if command, args, ok := strings.Cut(strings.TrimPrefix(text, "/"), " "); strings.HasPrefix(text, "/") {
		event.Command = command
		if ok {
			event.CommandArgs = args
		}
	}
	if err := e.handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle(%q) error = %v", text, err)
	}
	return e.chat.drain()
}

func (e testEnv) callback(t *testing.T, userID int64, data string) []ports.OutgoingMessage {
	t.Helper()

	before := e.chat.answerCount()
	event := ports.InboundEvent{Kind: ports.EventCallback, ChatID: userID, UserID: userID, Username: "ann", CallbackID: "cb-" + data, CallbackData: data}
	if err := e.handler.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle(callback %q) error = %v", data, err)
	}
	if got := e.chat.answerCount() - before; got != 1 {
		t.Fatalf("callback %q answered %d times, want 1", data, got)
	}
	return e.chat.drain()
}

func buttonData(msgs []ports.OutgoingMessage) []string {
	var out []string
	for _, msg := range msgs {
		for _, row := range msg.Buttons {
			for _, button := range row {
				if button.Data != "" {
					out = append(out, button.Data)
				}
			}
		}
	}
	return out
}

func containsText(msgs []ports.OutgoingMessage, want string) bool {
	for _, msg := range msgs {
		if strings.Contains(msg.Text, want) {
			return true
		}
	}
	return false
}

func (e testEnv) tally(t *testing.T, contestID uint64) map[string]int64 {
	t.Helper()
	candidates, err := e.svc.ListCandidates(context.Background(), contestID)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	out := make(map[string]int64, len(candidates))
	for _, candidate := range candidates {
		out[candidate.Name] = candidate.Votes
	}
	return out
}

func TestStartShowsMenuByRole(t *testing.T) {
	env := setupHandler(t)

	msgs := env.message(t, voterID, "/start")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Assalomu alaykum, Ann") {
		t.Fatalf("welcome = %+v", msgs)
	}
	if len(msgs[0].MenuButtons) != 2 || msgs[0].ChatRef != strconv.FormatInt(voterID, 10) {
		t.Fatalf("voter menu = %+v", msgs[0].MenuButtons)
	}

	msgs = env.message(t, adminID, "/start")
	if len(msgs[0].MenuButtons) != 3 || msgs[0].MenuButtons[2][0] != menuAdmin {
		t.Fatalf("admin menu = %+v", msgs[0].MenuButtons)
	}
}

func TestMenuVoteFlowWithSubscriptionGate(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t, "@news")
	aziz := created.Candidates[0].CandidateID

	msgs := env.message(t, voterID, menuVote)
	if !containsText(msgs, "obuna bo'ling") {
		t.Fatalf("expected subscription prompt, got %+v", msgs)
	}
	if data := buttonData(msgs); len(data) != 1 || data[0] != dataCheckVote {
		t.Fatalf("subscription prompt buttons = %v", data)
	}
	if url := msgs[0].Buttons[0][0].URL; url != "https://t.me/news" {
		t.Fatalf("invite link = %q", url)
	}

	msgs = env.callback(t, voterID, dataCheckVote)
	if !containsText(msgs, "Obuna bo'lishni unutmang") {
		t.Fatalf("expected retry prompt, got %+v", msgs)
	}

	env.chat.join("@news", voterID)
	msgs = env.callback(t, voterID, dataCheckVote)
	data := buttonData(msgs)
	if len(data) != 2 || data[0] != votePrefix+strconv.FormatUint(aziz, 10) {
		t.Fatalf("candidate buttons = %v", data)
	}

	msgs = env.callback(t, voterID, data[0])
	if !containsText(msgs, "Tasdiqlang") {
		t.Fatalf("expected confirmation prompt, got %+v", msgs)
	}
	confirm := buttonData(msgs)
	if len(confirm) != 2 || confirm[1] != dataCancelVote {
		t.Fatalf("confirm buttons = %v", confirm)
	}

	msgs = env.callback(t, voterID, confirm[0])
	if !containsText(msgs, "Ovozingiz qabul qilindi") || !containsText(msgs, "Aziz") {
		t.Fatalf("expected success, got %+v", msgs)
	}
	if got := env.tally(t, created.Contest.ContestID); got["Aziz"] != 1 || got["Zarina"] != 0 {
		t.Fatalf("tally = %v", got)
	}

	env.clock.Advance(2 * time.Second)
	msgs = env.message(t, voterID, menuVote)
	if !containsText(msgs, "allaqachon ovoz bergansiz") {
		t.Fatalf("expected already voted, got %+v", msgs)
	}
}

func TestDeepLinkOpensConfirmation(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	contestID := created.Contest.ContestID
	zarina := created.Candidates[1].CandidateID

	payload := "vote_" + strconv.FormatUint(contestID, 10) + "_" + strconv.FormatUint(zarina, 10)
	msgs := env.message(t, voterID, "/start "+payload)
	if len(msgs) != 3 {
		t.Fatalf("deep link sent %d messages, want 3: %+v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0].Text, "Best doctor 2026") {
		t.Fatalf("post = %q", msgs[0].Text)
	}
	deep := buttonData(msgs[1:2])
	if len(deep) != 2 || !strings.HasPrefix(deep[0], deepVotePrefix) {
		t.Fatalf("deep buttons = %v", deep)
	}
	if !strings.Contains(msgs[2].Text, "Zarina") {
		t.Fatalf("confirmation = %q", msgs[2].Text)
	}

	msgs = env.callback(t, voterID, confirmPrefix+strconv.FormatUint(zarina, 10))
	if !containsText(msgs, "Ovozingiz qabul qilindi") {
		t.Fatalf("expected success, got %+v", msgs)
	}

	msgs = env.callback(t, voterID, deep[0])
	if !containsText(msgs, textAlreadyVoted) {
		t.Fatalf("expected already voted, got %+v", msgs)
	}
	if got := env.tally(t, contestID); got["Zarina"] != 1 || got["Aziz"] != 0 {
		t.Fatalf("tally = %v", got)
	}

	msgs = env.message(t, voterID+1, "/start vote_999_1")
	if !containsText(msgs, textInactive) {
		t.Fatalf("unknown contest reply = %+v", msgs)
	}
}

func TestDeepCheckRetriesAdmission(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t, "@news", "@sport")
	aziz := created.Candidates[0].CandidateID
	data := deepVotePrefix + strconv.FormatUint(created.Contest.ContestID, 10) + "_" + strconv.FormatUint(aziz, 10)

	env.chat.join("@news", voterID)
	msgs := env.callback(t, voterID, data)
	if len(msgs) != 1 || len(msgs[0].Buttons) != 2 || msgs[0].Buttons[0][0].Text != "📢 1. sport" {
		t.Fatalf("expected only @sport missing, got %+v", msgs)
	}
	retry := msgs[0].Buttons[1][0].Data
	if !strings.HasPrefix(retry, deepCheckPrefix) {
		t.Fatalf("retry data = %q", retry)
	}

	env.chat.join("@sport", voterID)
	msgs = env.callback(t, voterID, retry)
	if !containsText(msgs, "Ovozingiz qabul qilindi") {
		t.Fatalf("expected success, got %+v", msgs)
	}
	if last := env.chat.answers[len(env.chat.answers)-1]; last.text != textSubscribed || !last.alert {
		t.Fatalf("callback answer = %+v", last)
	}
}

func TestCancelVoteClearsSession(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	aziz := strconv.FormatUint(created.Candidates[0].CandidateID, 10)

	env.message(t, voterID, menuVote)
	env.callback(t, voterID, votePrefix+aziz)
	env.callback(t, voterID, dataCancelVote)

	msgs := env.callback(t, voterID, confirmPrefix+aziz)
	if !containsText(msgs, textRestart) {
		t.Fatalf("confirm after cancel = %+v", msgs)
	}
	if got := env.tally(t, created.Contest.ContestID); got["Aziz"] != 0 {
		t.Fatalf("tally = %v", got)
	}
}

func TestVoteMenuRateLimit(t *testing.T) {
	env := setupHandler(t)
	env.createContest(t)

	env.message(t, voterID, menuVote)
	msgs := env.message(t, voterID, menuVote)
	if !containsText(msgs, textRateLimited) {
		t.Fatalf("second press = %+v", msgs)
	}

	env.clock.Advance(2 * time.Second)
	msgs = env.message(t, voterID, menuVote)
	if containsText(msgs, textRateLimited) {
		t.Fatalf("press after interval still limited: %+v", msgs)
	}
}

func TestAdminCommandsRequireAllowlist(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	contestID := strconv.FormatUint(created.Contest.ContestID, 10)

	for _, text := range []string{"/stop", "/reset", "/stats", "/report", "/archive", menuAdmin} {
		msgs := env.message(t, voterID, text)
		if !containsText(msgs, textNotAdmin) {
			t.Fatalf("%q by voter = %+v", text, msgs)
		}
	}
	env.callback(t, voterID, stopConfirmPrefix+contestID)
	if last := env.chat.answers[len(env.chat.answers)-1]; last.text != textDenied {
		t.Fatalf("stop callback by voter answered %+v", last)
	}
	active, found, err := env.svc.GetActiveContest(context.Background())
	if err != nil || !found || active.ContestID != created.Contest.ContestID {
		t.Fatalf("contest should still be active: %+v %v %v", active, found, err)
	}
}

func TestAdminStopAndArchive(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	contestID := strconv.FormatUint(created.Contest.ContestID, 10)

	msgs := env.message(t, adminID, "/stop")
	if data := buttonData(msgs); len(data) != 1 || data[0] != stopPrefix+contestID {
		t.Fatalf("stop menu = %v", data)
	}
	msgs = env.callback(t, adminID, stopPrefix+contestID)
	if data := buttonData(msgs); len(data) != 2 || data[0] != stopConfirmPrefix+contestID {
		t.Fatalf("stop confirm = %v", data)
	}
	msgs = env.callback(t, adminID, stopConfirmPrefix+contestID)
	if !containsText(msgs, "Konkurs to'xtatildi") {
		t.Fatalf("stop result = %+v", msgs)
	}
	if _, found, _ := env.svc.GetActiveContest(context.Background()); found {
		t.Fatalf("contest still active after stop")
	}

	msgs = env.message(t, adminID, "/archive")
	if data := buttonData(msgs); len(data) != 1 || data[0] != archivePrefix+contestID {
		t.Fatalf("archive list = %v", data)
	}
	msgs = env.callback(t, adminID, archivePrefix+contestID)
	if !containsText(msgs, "Arxivlangan Konkurs") || !containsText(msgs, "Best doctor 2026") {
		t.Fatalf("archived contest = %+v", msgs)
	}

	msgs = env.message(t, adminID, menuVote)
	if !containsText(msgs, textNoActiveContest) {
		t.Fatalf("vote after stop = %+v", msgs)
	}
}

func TestAdminResetVotes(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	aziz := strconv.FormatUint(created.Candidates[0].CandidateID, 10)

	env.callback(t, voterID, deepVotePrefix+strconv.FormatUint(created.Contest.ContestID, 10)+"_"+aziz)
	if got := env.tally(t, created.Contest.ContestID); got["Aziz"] != 1 {
		t.Fatalf("tally before reset = %v", got)
	}

	msgs := env.message(t, adminID, adminReset)
	if data := buttonData(msgs); len(data) != 2 || data[0] != dataResetConfirm {
		t.Fatalf("reset prompt = %v", data)
	}
	msgs = env.callback(t, adminID, dataResetConfirm)
	if !containsText(msgs, "Ovozlar tozalandi") {
		t.Fatalf("reset result = %+v", msgs)
	}
	if got := env.tally(t, created.Contest.ContestID); got["Aziz"] != 0 {
		t.Fatalf("tally after reset = %v", got)
	}
}

func TestAdminReportAttachesVotesCSV(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	contestID := strconv.FormatUint(created.Contest.ContestID, 10)
	aziz := strconv.FormatUint(created.Candidates[0].CandidateID, 10)

	env.callback(t, voterID, deepVotePrefix+contestID+"_"+aziz)

	msgs := env.message(t, adminID, "/report")
	if !containsText(msgs, "Batafsil Hisobot") {
		t.Fatalf("report = %+v", msgs)
	}
	if len(env.chat.docs) != 1 {
		t.Fatalf("documents sent = %d, want 1", len(env.chat.docs))
	}
	doc := env.chat.docs[0]
	if doc.ChatRef != strconv.FormatInt(adminID, 10) || doc.FileName != "contest_"+contestID+"_votes.csv" {
		t.Fatalf("document = %s %s", doc.ChatRef, doc.FileName)
	}
	lines := strings.Split(strings.TrimSpace(string(doc.Content)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "vote_id,") {
		t.Fatalf("csv = %q", doc.Content)
	}
	if !strings.Contains(lines[1], ","+aziz+",Aziz,"+strconv.FormatInt(voterID, 10)+",") {
		t.Fatalf("csv vote row = %q", lines[1])
	}

	env.message(t, voterID, "/report")
	if len(env.chat.docs) != 1 {
		t.Fatalf("voter /report sent a document")
	}
}

func TestResultsAndStatsTexts(t *testing.T) {
	env := setupHandler(t)
	created := env.createContest(t)
	contestID := strconv.FormatUint(created.Contest.ContestID, 10)
	zarina := strconv.FormatUint(created.Candidates[1].CandidateID, 10)

	env.callback(t, voterID, deepVotePrefix+contestID+"_"+zarina)

	msgs := env.message(t, voterID, menuResults)
	if !containsText(msgs, "🥇 <b>Zarina</b>") || !containsText(msgs, "100% (1 ovoz)") || !containsText(msgs, "🥈 <b>Aziz</b>") {
		t.Fatalf("results = %+v", msgs)
	}

	msgs = env.message(t, voterID, menuInfo)
	if !containsText(msgs, "Ishtirokchilar: 1") || !containsText(msgs, "01.03.2026 09:00") {
		t.Fatalf("info = %+v", msgs)
	}

	msgs = env.message(t, adminID, "/stats")
	if !containsText(msgs, "Yetakchi: <b>Zarina</b>") || !containsText(msgs, "Konkurslar: 1 (faol: 1)") {
		t.Fatalf("stats = %+v", msgs)
	}
}

func TestResultsTextWithoutCandidates(t *testing.T) {
	text := ResultsText(voting.ContestResults{Contest: ports.Contest{Name: "A & B"}})
	if !strings.Contains(text, "A &amp; B") || !strings.Contains(text, "Hozircha ovozlar yo'q") {
		t.Fatalf("ResultsText() = %q", text)
	}
}
