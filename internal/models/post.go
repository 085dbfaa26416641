package models

import "time"

// Post represents a thread published by a user.
type Post struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Text      string       `gorm:"type:text" json:"text"`
	Image     *string      `json:"image"`
	AuthorID  uint         `gorm:"not null;index" json:"authorId"`
	Author    *UserSummary `gorm:"-" json:"author,omitempty"`
	Likes     []Like       `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes"`
	Comments  []Comment    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
