package ports

import (
	"context"
	"time"
)

type TallyEntry struct {
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"name"`
	Votes       int64  `json:"votes"`
}

type TallySnapshot struct {
	ContestID  uint64       `json:"contest_id"`
	Name       string       `json:"name"`
	TotalVotes int64        `json:"total_votes"`
	Candidates []TallyEntry `json:"candidates"`
	At         time.Time    `json:"at"`
}

// TallyFeed pushes tally snapshots to live subscribers.
type TallyFeed interface {
	Publish(ctx context.Context, snapshot TallySnapshot) error
}
