package service

import (
	"context"
	"log/slog"
	"strings"

	"threads/internal/cache"
	"threads/internal/models"
	"threads/internal/observability"
	"threads/internal/repository"
	"threads/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Search result bounds.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	cache   *cache.Cache
	images  ImageRemover
	audit   *observability.AuditLogger
}

// UpdateProfileInput carries the profile fields to change. Nil fields are left as they are.
type UpdateProfileInput struct {
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

// NewUserService returns a new UserService. cache and images may be nil.
func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	c *cache.Cache,
	images ImageRemover,
	audit *observability.AuditLogger,
) *UserService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &UserService{
		users:   users,
		follows: follows,
		cache:   c,
		images:  images,
		audit:   audit,
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx, 0, 0)
}

// SearchUsers matches query against usernames case-insensitively, prefix matches first.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.users.Search(ctx, query, limit)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", nil)
	}
	return user, nil
}

// GetProfile returns the user with follow counts. The user record is served
// from the cache when present.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (profile *models.Profile, err error) {
	ctx, span := observability.StartSpan(ctx, "user", "get_profile", attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	var user models.User
	err = s.cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	following, err := s.follows.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.Profile{User: user, FollowingCount: following, FollowerCount: followers}, nil
}

// UpdateProfile applies in to targetID. Only the user itself may update its profile.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, targetID uint, in UpdateProfileInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "user", "update_profile", attribute.Int64("user.id", int64(targetID)))
	defer func() { span.End(err) }()

	if callerID != targetID {
		return nil, models.NewForbiddenError("You can only update your own profile")
	}

	user, err = s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	previousAvatar := user.Avatar

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Bio != nil {
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil && strings.TrimSpace(*in.Avatar) != "" {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if err := validation.ValidateProfileText(user.FullName, user.Bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.cache.InvalidateUser(ctx, targetID)

	if user.Avatar != previousAvatar && s.images != nil {
		if err := s.images.Delete(previousAvatar); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to remove previous avatar",
				slog.Uint64("user_id", uint64(targetID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return user, nil
}

// DeleteUser removes the user and everything attached to it: follow edges in
// both directions, its posts, and every like and comment by it or on its posts.
func (s *UserService) DeleteUser(ctx context.Context, userID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "user", "delete", attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	if err := s.users.DeleteCascade(ctx, userID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	s.audit.ContentEvent(ctx, "user_deleted", slog.Uint64("user_id", uint64(userID)))
	return nil
}
