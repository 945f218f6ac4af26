package models

import (
	"time"
)

// InviteLink is the single invite link issued to an inviter for a group.
type InviteLink struct {
	InviterID int64     `gorm:"primaryKey;autoIncrement:false"`
	Inviter   *User     `gorm:"foreignKey:InviterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GroupID   int64     `gorm:"primaryKey;autoIncrement:false;index:idx_invites_group_link,priority:1"`
	Link      string    `gorm:"size:512;not null;index:idx_invites_group_link,priority:2"`
	CreatedAt time.Time
}

func (InviteLink) TableName() string {
	return "invites"
}

// JoinRecord credits one joined user in a group to exactly one inviter.
// There is no foreign key to invites: links may be re-issued while old
// joins stay with the original inviter.
type JoinRecord struct {
	GroupID      int64 `gorm:"primaryKey;autoIncrement:false;index:idx_joins_group_inviter,priority:1"`
	JoinedUserID int64 `gorm:"primaryKey;autoIncrement:false"`
	InviterID    int64 `gorm:"not null;index:idx_joins_group_inviter,priority:2"`
	CreatedAt    time.Time
}

func (JoinRecord) TableName() string {
	return "joins"
}
