package models

import (
	"time"
)

// Car 车辆参考数据，以标准化车牌为主键，只通过 upsert 写入
type Car struct {
	Plate         string    `gorm:"primaryKey;size:6" json:"plate"`
	Make          string    `gorm:"size:64" json:"make"`
	Model         string    `gorm:"size:64" json:"model"`
	Year          int       `json:"year"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Car) TableName() string { return "cars" }

// IsStale reports whether the enrichment data is older than maxAge.
func (c *Car) IsStale(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return c.LastCheckedAt.IsZero() || now.Sub(c.LastCheckedAt) > maxAge
}
