package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrContestNotFound       = errors.New("contest not found")
	ErrCandidateNotFound     = errors.New("candidate not found")
	ErrActiveContestConflict = errors.New("another contest is already active")
)

type Contest struct {
	ContestID  uint64     `json:"contest_id"`
	Name       string     `json:"name"`
	ImageRef   string     `json:"image_ref,omitempty"`
	StartAt    time.Time  `json:"start_at"`
	EndAt      time.Time  `json:"end_at"`
	IsActive   bool       `json:"is_active"`
	IsArchived bool       `json:"is_archived"`
	Board      *BoardPost `json:"board,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ContestCreate struct {
	Name     string
	ImageRef string
	StartAt  time.Time
	EndAt    time.Time
}

type ContestFilter struct {
	OnlyArchived bool
	Limit        int
}

type Candidate struct {
	CandidateID uint64
	ContestID   uint64
	Name        string
	Position    int
	Votes       int64
}

type CandidateCreate struct {
	ContestID uint64
	Name      string
	Position  int
}

// ChannelRequirement is a channel a voter must have joined before voting.
type ChannelRequirement struct {
	RequirementID uint64 `json:"requirement_id"`
	ContestID     uint64 `json:"contest_id"`
	ChannelRef    string `json:"channel_ref"`
	Title         string `json:"title"`
	InviteLink    string `json:"invite_link,omitempty"`
}

type ChannelRequirementCreate struct {
	ContestID  uint64
	ChannelRef string
	Title      string
	InviteLink string
}

type Vote struct {
	VoteID      uint64    `json:"vote_id"`
	ContestID   uint64    `json:"contest_id"`
	CandidateID uint64    `json:"candidate_id"`
	VoterID     int64     `json:"voter_id"`
	VoterName   string    `json:"voter_name"`
	VotedAt     time.Time `json:"voted_at"`
}

type VoteCreate struct {
	ContestID   uint64
	CandidateID uint64
	VoterID     int64
	VoterName   string
	VotedAt     time.Time
}

// BoardPost locates the public message that mirrors a contest's tallies.
type BoardPost struct {
	ChatRef   string `json:"chat_ref"`
	MessageID int    `json:"message_id"`
}

type VoterActivity struct {
	VoterID      int64
	Username     string
	FirstName    string
	LastName     string
	LastActionAt time.Time
}

type VoteStats struct {
	TotalVoters int64
	TotalVotes  int64
}

type GlobalStats struct {
	TotalContests  int64
	ActiveContests int64
	TotalVotes     int64
	TotalVoters    int64
}

type ContestReadRepository interface {
	GetContest(ctx context.Context, contestID uint64) (Contest, error)
	GetActiveContest(ctx context.Context) (Contest, bool, error)
	ListContests(ctx context.Context, filter ContestFilter) ([]Contest, error)
	ListChannelRequirements(ctx context.Context, contestID uint64) ([]ChannelRequirement, error)
	ListCandidates(ctx context.Context, contestID uint64) ([]Candidate, error)
	GetCandidate(ctx context.Context, contestID uint64, candidateID uint64) (Candidate, error)
	HasVoted(ctx context.Context, contestID uint64, voterID int64) (bool, error)
	ListVotes(ctx context.Context, contestID uint64) ([]Vote, error)
	GetBoardPost(ctx context.Context, contestID uint64) (BoardPost, bool, error)
	GetVoteStats(ctx context.Context, contestID uint64) (VoteStats, error)
	GetGlobalStats(ctx context.Context) (GlobalStats, error)
}

type ContestRepository interface {
	ContestReadRepository
	CreateContest(ctx context.Context, input ContestCreate) (Contest, error)
	AddChannelRequirement(ctx context.Context, input ChannelRequirementCreate) (ChannelRequirement, error)
	AddCandidate(ctx context.Context, input CandidateCreate) (Candidate, error)
	// InsertVote reports false when the voter already has a vote in the contest.
	InsertVote(ctx context.Context, input VoteCreate) (bool, error)
	StopContest(ctx context.Context, contestID uint64, stoppedAt time.Time) error
	ArchiveContest(ctx context.Context, contestID uint64) error
	ArchiveActiveContests(ctx context.Context) (int64, error)
	ResetVotes(ctx context.Context, contestID uint64) (int64, error)
	SaveBoardPost(ctx context.Context, contestID uint64, post BoardPost) error
	UpsertVoterActivity(ctx context.Context, activity VoterActivity) error
	// CheckRateLimit reports true when the voter acted after now-window.
	CheckRateLimit(ctx context.Context, voterID int64, window time.Duration, now time.Time) (bool, error)
}
