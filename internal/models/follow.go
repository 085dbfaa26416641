package models

import "time"

// Follow is a directed edge meaning "follower follows following".
// Each ordered pair is unique and self-loops are rejected by a check constraint.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follower_following" json:"followerId"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follower_following;index;check:chk_follows_not_self,follower_id <> following_id" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// FollowState is the outcome of a toggle.
type FollowState string

const (
	// FollowStateFollowed means the edge exists after the toggle.
	FollowStateFollowed FollowState = "followed"
	// FollowStateUnfollowed means the edge was removed by the toggle.
	FollowStateUnfollowed FollowState = "unfollowed"
)
