package models

import (
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"not null;index" json:"review_id"`
	AuthorUID string    `gorm:"size:128;not null;index" json:"author_uid"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // nil for top-level comments
	Content   string    `gorm:"type:text;not null" json:"content"`
	Score     int       `gorm:"default:0" json:"score"` // last recomputed tally
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
