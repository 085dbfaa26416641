package models

import "time"

// Comment represents a comment on a post.
type Comment struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Text      string       `gorm:"type:text;not null" json:"text"`
	PostID    uint         `gorm:"not null;index" json:"postId"`
	UserID    uint         `gorm:"not null;index" json:"userId"`
	User      *UserSummary `gorm:"-" json:"user,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
