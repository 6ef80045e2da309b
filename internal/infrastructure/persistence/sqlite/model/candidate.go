package model

type Candidate struct {
	CandidateID uint64 `gorm:"column:candidate_id;primaryKey;autoIncrement"`
	ContestID   uint64 `gorm:"column:contest_id;not null;index:idx_candidates_contest_position,priority:1"`
	Name        string `gorm:"column:name;type:text;not null"`
	Position    int    `gorm:"column:position;not null;index:idx_candidates_contest_position,priority:2"`

	Contest *Contest `gorm:"foreignKey:ContestID;references:ContestID;constraint:OnDelete:CASCADE"`
}

func (Candidate) TableName() string {
	return "candidates"
}
