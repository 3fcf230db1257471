package models

import (
	"time"
)

// WatchedCar 用户关注车辆 - 记录存在即表示关注
type WatchedCar struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;not null;index;uniqueIndex:idx_user_plate" json:"user_id"`
	Plate     string    `gorm:"size:6;not null;index;uniqueIndex:idx_user_plate" json:"plate"`
	CreatedAt time.Time `json:"created_at"`
}

func (WatchedCar) TableName() string { return "watched_cars" }
