package models

import "time"

// User represents an account. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username  string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `gorm:"size:100" json:"fullName"`
	Bio       string    `gorm:"size:500" json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships, declared for foreign keys only.
	Posts     []Post    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Comments  []Comment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Likes     []Like    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Following []Follow  `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followers []Follow  `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserSummary is the public projection of a User embedded in lists, posts and comments.
type UserSummary struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Summary projects the user to its public summary.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		FullName: u.FullName,
		Username: u.Username,
		Avatar:   u.Avatar,
	}
}

// Profile is a User together with its follow graph cardinalities.
type Profile struct {
	User
	FollowingCount int64 `json:"followingCount"`
	FollowerCount  int64 `json:"followerCount"`
}
