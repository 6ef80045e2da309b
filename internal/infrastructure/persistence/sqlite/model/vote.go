package model

import "time"

// Vote is unique per (contest_id, voter_id); the index is what makes admission exactly-once.
type Vote struct {
	VoteID      uint64    `gorm:"column:vote_id;primaryKey;autoIncrement"`
	ContestID   uint64    `gorm:"column:contest_id;not null;uniqueIndex:idx_votes_contest_voter,priority:1"`
	CandidateID uint64    `gorm:"column:candidate_id;not null;index"`
	VoterID     int64     `gorm:"column:voter_id;not null;uniqueIndex:idx_votes_contest_voter,priority:2"`
	VoterName   string    `gorm:"column:voter_name;type:text;not null"`
	VotedAt     time.Time `gorm:"column:voted_at;not null"`

	Contest   *Contest   `gorm:"foreignKey:ContestID;references:ContestID;constraint:OnDelete:CASCADE"`
	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnDelete:CASCADE"`
}

func (Vote) TableName() string {
	return "votes"
}
