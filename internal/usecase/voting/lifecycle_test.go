package voting

import (
	"context"
	"errors"
	"testing"

	"votebot/internal/domain/contest"
)

func TestCreateContestSupersedesActiveContest(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	first := env.createContest(t, []string{"Aziz"})
	second := env.createContest(t, []string{" Bekzod ", "", "Zarina"}, "@news")

	if second.Superseded != 1 {
		t.Fatalf("CreateContest() superseded = %d, want 1", second.Superseded)
	}
	if len(second.Candidates) != 2 || second.Candidates[0].Name != "Bekzod" || second.Candidates[1].Position != 1 {
		t.Fatalf("CreateContest() candidates = %+v", second.Candidates)
	}
	if len(second.Channels) != 1 || second.Channels[0].Title != "Channel 1" {
		t.Fatalf("CreateContest() channels = %+v", second.Channels)
	}

	active, found, err := env.svc.GetActiveContest(ctx)
	if err != nil || !found || active.ContestID != second.Contest.ContestID {
		t.Fatalf("GetActiveContest() = %+v found=%v err=%v", active, found, err)
	}

	old, err := env.svc.GetContest(ctx, first.Contest.ContestID)
	if err != nil {
		t.Fatalf("GetContest() error = %v", err)
	}
	if old.IsActive || !old.IsArchived {
		t.Fatalf("superseded contest = %+v", old)
	}

	archived, err := env.svc.ListContests(ctx, true, 0)
	if err != nil || len(archived) != 1 {
		t.Fatalf("ListContests(archived) = %+v, %v", archived, err)
	}
}

func TestCreateContestValidation(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateContestInput
		want  error
	}{
		{name: "no name", input: CreateContestInput{Name: " ", StartAt: testStart, EndAt: testEnd, Candidates: []string{"a"}}, want: contest.ErrNameRequired},
		{name: "no candidates", input: CreateContestInput{Name: "x", StartAt: testStart, EndAt: testEnd, Candidates: []string{" "}}, want: contest.ErrCandidatesRequired},
		{name: "reversed window", input: CreateContestInput{Name: "x", StartAt: testEnd, EndAt: testStart, Candidates: []string{"a"}}, want: contest.ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.CreateContest(ctx, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("CreateContest() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResetVotesKeepsCandidates(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	created := env.createContest(t, []string{"Aziz", "Zarina"})
	contestID := created.Contest.ContestID

	for voterID := int64(1); voterID <= 3; voterID++ {
		if _, err := env.svc.Admit(ctx, AdmitInput{ContestID: contestID, CandidateID: created.Candidates[0].CandidateID, VoterID: voterID}); err != nil {
			t.Fatalf("Admit() error = %v", err)
		}
	}

	deleted, err := env.svc.ResetVotes(ctx, contestID)
	if err != nil || deleted != 3 {
		t.Fatalf("ResetVotes() = %d, %v", deleted, err)
	}
	got := env.tallies(t, contestID)
	if len(got) != 2 || got["Aziz"] != 0 || got["Zarina"] != 0 {
		t.Fatalf("tallies after reset = %v", got)
	}

	result, err := env.svc.Admit(ctx, AdmitInput{ContestID: contestID, CandidateID: created.Candidates[1].CandidateID, VoterID: 1})
	if err != nil || !result.Admitted() {
		t.Fatalf("Admit() after reset = %+v, %v", result, err)
	}

	if _, err := env.svc.ResetVotes(ctx, 999); err == nil {
		t.Fatalf("ResetVotes() on a missing contest should fail")
	}
}

func TestArchiveContest(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	created := env.createContest(t, []string{"Aziz"})

	if err := env.svc.ArchiveContest(ctx, created.Contest.ContestID); err != nil {
		t.Fatalf("ArchiveContest() error = %v", err)
	}
	archived, err := env.svc.GetContest(ctx, created.Contest.ContestID)
	if err != nil {
		t.Fatalf("GetContest() error = %v", err)
	}
	if archived.IsActive || !archived.IsArchived || !archived.EndAt.Equal(testEnd) {
		t.Fatalf("ArchiveContest() = %+v", archived)
	}
}
