package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedUser is a directed edge: UserBlocking hides content by BlockedUser.
// A nil BlockedUser is a reserved row and never matches.
type BlockedUser struct {
	ID           string    `gorm:"primaryKey;size:36" json:"uid"`
	BlockedUser  *string   `gorm:"column:blocked_user;size:128;uniqueIndex:idx_block_edge" json:"blocked_user"`
	UserBlocking string    `gorm:"column:user_blocking;size:128;not null;index;uniqueIndex:idx_block_edge" json:"user_blocking"`
	CreatedAt    time.Time `json:"created_at"`
}

func (BlockedUser) TableName() string { return "blocked_users" }

func (b *BlockedUser) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Matches reports whether this edge blocks target on behalf of blocking.
func (b BlockedUser) Matches(blocking, target string) bool {
	if b.BlockedUser == nil {
		return false
	}
	return b.UserBlocking == blocking && *b.BlockedUser == target
}
