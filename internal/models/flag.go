package models

import (
	"time"
)

// ReviewFlag 举报记录，(review, flagger) 唯一
type ReviewFlag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReviewID   uint      `gorm:"not null;index;uniqueIndex:idx_review_flagger" json:"review_id"`
	FlaggerUID string    `gorm:"size:128;not null;uniqueIndex:idx_review_flagger" json:"flagger_uid"`
	Reason     string    `gorm:"size:200" json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ReviewFlag) TableName() string { return "review_flags" }
