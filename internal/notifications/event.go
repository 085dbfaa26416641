package notifications

import (
	"encoding/json"
	"time"

	"threads/internal/models"
)

// Event types delivered to users.
const (
	EventFollow  = "follow"
	EventLike    = "like"
	EventComment = "comment"
)

// Event is the JSON payload pushed to a user's notification channel.
type Event struct {
	Type      string              `json:"type"`
	Actor     *models.UserSummary `json:"actor,omitempty"`
	ActorID   uint                `json:"actorId"`
	PostID    uint                `json:"postId,omitempty"`
	CommentID uint                `json:"commentId,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Encode marshals the event for publishing.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
