package service

import (
	"context"

	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/observability"
	"threads/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowService maintains the directed follow graph between users.
type FollowService struct {
	follows  repository.FollowRepository
	users    repository.UserRepository
	notifier *notifications.Notifier
	audit    *observability.AuditLogger
}

// NewFollowService returns a new FollowService. notifier may be nil.
func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	notifier *notifications.Notifier,
	audit *observability.AuditLogger,
) *FollowService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &FollowService{
		follows:  follows,
		users:    users,
		notifier: notifier,
		audit:    audit,
	}
}

func errNotFollowing() *models.AppError {
	return &models.AppError{Code: models.CodeNotFound, Message: "You are not following this user"}
}

func edgeAttrs(followerID, followingID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("follow.follower_id", int64(followerID)),
		attribute.Int64("follow.following_id", int64(followingID)),
	}
}

// Follow creates the edge followerID -> followingID.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "follow", "follow", edgeAttrs(followerID, followingID)...)
	defer func() { span.End(err) }()

	if followerID == followingID {
		return models.NewSelfFollowError()
	}
	if err := s.requireUsers(ctx, followerID, followingID); err != nil {
		return err
	}

	exists, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if exists {
		return models.NewConflictError("You are already following this user")
	}

	if err := s.follows.Create(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID}); err != nil {
		return err
	}
	s.followed(ctx, followerID, followingID)
	return nil
}

// Unfollow removes the edge followerID -> followingID, which must exist.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "follow", "unfollow", edgeAttrs(followerID, followingID)...)
	defer func() { span.End(err) }()

	deleted, err := s.follows.Delete(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !deleted {
		return errNotFollowing()
	}
	s.audit.FollowEvent(ctx, "unfollow", followerID, followingID)
	return nil
}

// ToggleFollow removes the edge when present and creates it otherwise.
// A concurrent insert of the same edge resolves to followed; a concurrent
// delete resolves to unfollowed.
func (s *FollowService) ToggleFollow(ctx context.Context, followerID, followingID uint) (state models.FollowState, err error) {
	ctx, span := observability.StartSpan(ctx, "follow", "toggle", edgeAttrs(followerID, followingID)...)
	defer func() { span.End(err) }()

	if followerID == followingID {
		return "", models.NewSelfFollowError()
	}

	exists, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return "", err
	}

	if exists {
		if _, err := s.follows.Delete(ctx, followerID, followingID); err != nil {
			return "", err
		}
		s.audit.FollowEvent(ctx, "unfollow", followerID, followingID)
		return models.FollowStateUnfollowed, nil
	}

	if err := s.requireUsers(ctx, followerID, followingID); err != nil {
		return "", err
	}
	if err := s.follows.Create(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID}); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return models.FollowStateFollowed, nil
		}
		return "", err
	}
	s.followed(ctx, followerID, followingID)
	return models.FollowStateFollowed, nil
}

// ListFollowing returns the users userID follows.
func (s *FollowService) ListFollowing(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	return s.follows.ListFollowing(ctx, userID)
}

// ListFollowers returns the users following userID.
func (s *FollowService) ListFollowers(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	return s.follows.ListFollowers(ctx, userID)
}

// FollowingIDs returns the ids of the users userID follows.
func (s *FollowService) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.follows.FollowingIDs(ctx, userID)
}

func (s *FollowService) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowing(ctx, userID)
}

func (s *FollowService) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowers(ctx, userID)
}

// Counts returns both cardinalities of userID's follow edges.
func (s *FollowService) Counts(ctx context.Context, userID uint) (following, followers int64, err error) {
	if following, err = s.follows.CountFollowing(ctx, userID); err != nil {
		return 0, 0, err
	}
	if followers, err = s.follows.CountFollowers(ctx, userID); err != nil {
		return 0, 0, err
	}
	return following, followers, nil
}

// requireUsers fails with NotFound unless every id names an existing user.
// A session can outlive its user, so the follower is checked too.
func (s *FollowService) requireUsers(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		ok, err := s.users.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewNotFoundError("User", nil)
		}
	}
	return nil
}

func (s *FollowService) followed(ctx context.Context, followerID, followingID uint) {
	s.audit.FollowEvent(ctx, "follow", followerID, followingID)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, followingID, notifications.Event{
		Type:    notifications.EventFollow,
		ActorID: followerID,
		Actor:   actorSummary(ctx, s.users, followerID),
	})
}

// actorSummary looks up the public profile attached to a notification.
// Lookup failures leave the actor out rather than failing the mutation.
func actorSummary(ctx context.Context, users repository.UserRepository, id uint) *models.UserSummary {
	summaries, err := users.Summaries(ctx, []uint{id})
	if err != nil {
		return nil
	}
	if s, ok := summaries[id]; ok {
		return &s
	}
	return nil
}
