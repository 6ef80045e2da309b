package model

import "time"

type Contest struct {
	ContestID      uint64    `gorm:"column:contest_id;primaryKey;autoIncrement"`
	Name           string    `gorm:"column:name;type:text;not null"`
	ImageRef       string    `gorm:"column:image_ref;type:text;not null"`
	StartAt        time.Time `gorm:"column:start_at;not null"`
	EndAt          time.Time `gorm:"column:end_at;not null"`
	IsActive       bool      `gorm:"column:is_active;not null;index"`
	IsArchived     bool      `gorm:"column:is_archived;not null"`
	BoardChatRef   *string   `gorm:"column:board_chat_ref;type:text"`
	BoardMessageID *int      `gorm:"column:board_message_id"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Contest) TableName() string {
	return "contests"
}
