package model

type ChannelRequirement struct {
	RequirementID uint64 `gorm:"column:requirement_id;primaryKey;autoIncrement"`
	ContestID     uint64 `gorm:"column:contest_id;not null;index"`
	ChannelRef    string `gorm:"column:channel_ref;type:text;not null"`
	Title         string `gorm:"column:title;type:text;not null"`
	InviteLink    string `gorm:"column:invite_link;type:text;not null"`

	Contest *Contest `gorm:"foreignKey:ContestID;references:ContestID;constraint:OnDelete:CASCADE"`
}

func (ChannelRequirement) TableName() string {
	return "contest_channels"
}
