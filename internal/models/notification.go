package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeWatchedReview NotificationType = "watched_review"
	NotificationTypeReplyComment  NotificationType = "reply_comment"
	NotificationTypeSystem        NotificationType = "system"
)

type Notification struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RecipientUID string           `gorm:"size:128;not null;index" json:"recipient_uid"`
	ActorUID     string           `gorm:"size:128" json:"actor_uid"`
	Type         NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title        string           `gorm:"size:200" json:"title"`
	Message      string           `gorm:"type:text" json:"message"`
	Plate        string           `gorm:"size:6" json:"plate"`
	ReviewID     uint             `gorm:"index" json:"review_id"`
	IsRead       bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
