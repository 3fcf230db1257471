package models

import (
	"time"
)

// AnonymousName is shown in place of an opted-out author.
const AnonymousName = "Anonymous"

type User struct {
	UID         string    `gorm:"primaryKey;size:128" json:"uid"` // identity provider uid
	Name        string    `gorm:"size:100" json:"name"`
	Nickname    string    `gorm:"size:50" json:"nickname"`
	Email       string    `gorm:"size:255;index" json:"email"`
	PictureURL  string    `json:"picture_url"`
	IsModerator bool      `gorm:"default:false" json:"is_moderator"`
	OptedOut    bool      `gorm:"default:false;index" json:"opted_out"` // 匿名化其所有内容
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the nickname over the provider name.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

// Public returns the author record as other users may see it.
// Opted-out users collapse to an anonymous placeholder.
func (u User) Public() User {
	if !u.OptedOut {
		return User{
			UID:        u.UID,
			Name:       u.Name,
			Nickname:   u.Nickname,
			PictureURL: u.PictureURL,
		}
	}
	return User{Name: AnonymousName, OptedOut: true}
}
