package service

import (
	"context"
	"log/slog"
	"strings"

	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/observability"
	"threads/internal/repository"
	"threads/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// MaxPageSize caps an explicit page size. A zero limit lists everything.
const MaxPageSize = 100

// ImageRemover deletes a stored upload by its public path.
type ImageRemover interface {
	Delete(publicPath string) error
}

type PostService struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	follows  repository.FollowRepository
	users    repository.UserRepository
	images   ImageRemover
	notifier *notifications.Notifier
	audit    *observability.AuditLogger
}

type CreatePostInput struct {
	Text  string  `json:"text"`
	Image *string `json:"image"`
}

// NewPostService returns a new PostService. images and notifier may be nil.
func NewPostService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	follows repository.FollowRepository,
	users repository.UserRepository,
	images ImageRemover,
	notifier *notifications.Notifier,
	audit *observability.AuditLogger,
) *PostService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &PostService{
		posts:    posts,
		likes:    likes,
		follows:  follows,
		users:    users,
		images:   images,
		notifier: notifier,
		audit:    audit,
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		return 0, 0
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *PostService) CreatePost(ctx context.Context, authorID uint, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post", "create", attribute.Int64("user.id", int64(authorID)))
	defer func() { span.End(err) }()

	text := strings.TrimSpace(in.Text)
	var image *string
	if in.Image != nil && strings.TrimSpace(*in.Image) != "" {
		trimmed := strings.TrimSpace(*in.Image)
		image = &trimmed
	}
	if err := validation.ValidatePostText(text, image != nil); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{Text: text, Image: image, AuthorID: authorID}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.audit.ContentEvent(ctx, "post_created", slog.Uint64("post_id", uint64(post.ID)))
	return post, nil
}

// ListPosts returns posts newest first. limit 0 returns all of them.
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = normalizePage(limit, offset)
	return s.posts.List(ctx, limit, offset)
}

func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// GetPostsFromFollowing returns the feed of userID: posts by the users it
// follows, newest first. Following nobody yields an empty feed.
func (s *PostService) GetPostsFromFollowing(ctx context.Context, userID uint, limit, offset int) (posts []*models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post", "feed", attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	ids, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int("feed.authors", len(ids)))
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}

	limit, offset = normalizePage(limit, offset)
	return s.posts.ListByAuthors(ctx, ids, limit, offset)
}

// DeletePost removes a post owned by userID together with its likes, comments and image.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "post", "delete", attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	if post.Image != nil && s.images != nil {
		if err := s.images.Delete(*post.Image); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to remove post image",
				slog.Uint64("post_id", uint64(postID)),
				slog.String("error", err.Error()),
			)
		}
	}
	s.audit.ContentEvent(ctx, "post_deleted", slog.Uint64("post_id", uint64(postID)))
	return nil
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (like *models.Like, err error) {
	ctx, span := observability.StartSpan(ctx, "post", "like", attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	authorID, err := s.posts.AuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked, err := s.likes.Exists(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		return nil, models.NewConflictError("Post already liked by this user")
	}

	like = &models.Like{UserID: userID, PostID: postID}
	if err := s.likes.Create(ctx, like); err != nil {
		return nil, err
	}

	s.audit.ContentEvent(ctx, "post_liked", slog.Uint64("post_id", uint64(postID)))
	if s.notifier != nil {
		s.notifier.Notify(ctx, authorID, notifications.Event{
			Type:    notifications.EventLike,
			ActorID: userID,
			Actor:   actorSummary(ctx, s.users, userID),
			PostID:  postID,
		})
	}
	return like, nil
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "post", "unlike", attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	deleted, err := s.likes.Delete(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !deleted {
		return &models.AppError{Code: models.CodeNotFound, Message: "No like found for this post by this user"}
	}
	s.audit.ContentEvent(ctx, "post_unliked", slog.Uint64("post_id", uint64(postID)))
	return nil
}
