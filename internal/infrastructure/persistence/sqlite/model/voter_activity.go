package model

import "time"

type VoterActivity struct {
	VoterID      int64     `gorm:"column:voter_id;primaryKey;autoIncrement:false"`
	Username     string    `gorm:"column:username;type:text;not null"`
	FirstName    string    `gorm:"column:first_name;type:text;not null"`
	LastName     string    `gorm:"column:last_name;type:text;not null"`
	LastActionAt time.Time `gorm:"column:last_action_at;not null"`
}

func (VoterActivity) TableName() string {
	return "voter_activity"
}
