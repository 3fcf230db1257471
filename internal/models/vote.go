package models

import (
	"time"
)

const (
	VoteUp   = 1
	VoteDown = -1
)

// CommentVote 每个 (comment, voter) 仅一行，重复投票覆盖 value
type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index;uniqueIndex:idx_comment_voter" json:"comment_id"`
	VoterUID  string    `gorm:"size:128;not null;uniqueIndex:idx_comment_voter" json:"voter_uid"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CommentVote) TableName() string { return "comment_votes" }

func ValidVote(v int) bool {
	return v == VoteUp || v == VoteDown
}

// Tally sums vote values.
func Tally(votes []CommentVote) int {
	sum := 0
	for _, v := range votes {
		sum += v.Value
	}
	return sum
}
