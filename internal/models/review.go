package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"platerate/internal/utils"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID          uint                        `gorm:"primaryKey" json:"id"` // 0 until persisted
	Plate       string                      `gorm:"size:6;not null;index" json:"plate"`
	CreatedBy   string                      `gorm:"size:128;not null;index" json:"created_by"`
	Rating      int                         `gorm:"not null" json:"rating" validate:"min=1,max=5"`
	Title       string                      `gorm:"size:100;not null" json:"title" validate:"required,max=100"`
	Description string                      `gorm:"type:text" json:"description" validate:"max=2000"`
	Labels      datatypes.JSONSlice[string] `json:"labels"`
	IsFlagged   bool                        `gorm:"default:false;index" json:"is_flagged"`
	Hidden      bool                        `gorm:"default:false;index" json:"hidden"` // 管理员隐藏，不删除
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

// NewReview builds an unpersisted review. A rating outside 1..5, an invalid
// plate or a blank title is rejected here, before any I/O.
func NewReview(plate, author string, rating int, title, description string, labels []string) (*Review, error) {
	normalized, err := utils.ValidatePlate(plate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%w: review needs an author", ErrValidation)
	}

	r := &Review{
		Plate:       normalized,
		CreatedBy:   author,
		Rating:      rating,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Labels:      normalizeLabels(labels),
	}
	if err := validateStruct(r); err != nil {
		return nil, err
	}
	return r, nil
}

func normalizeLabels(labels []string) datatypes.JSONSlice[string] {
	seen := make(map[string]bool, len(labels))
	out := make(datatypes.JSONSlice[string], 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
