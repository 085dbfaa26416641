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

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	notifier *notifications.Notifier
	audit    *observability.AuditLogger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	notifier *notifications.Notifier,
	audit *observability.AuditLogger,
) *CommentService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		notifier: notifier,
		audit:    audit,
	}
}

// CreateComment adds a comment by userID to postID and notifies the post author.
func (s *CommentService) CreateComment(ctx context.Context, userID, postID uint, text string) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "comment", "create", attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	text = strings.TrimSpace(text)
	if err := validation.ValidateCommentText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	authorID, err := s.posts.AuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment = &models.Comment{Text: text, PostID: postID, UserID: userID}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.audit.ContentEvent(ctx, "comment_created",
		slog.Uint64("post_id", uint64(postID)),
		slog.Uint64("comment_id", uint64(comment.ID)),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, authorID, notifications.Event{
			Type:      notifications.EventComment,
			ActorID:   userID,
			Actor:     comment.User,
			PostID:    postID,
			CommentID: comment.ID,
		})
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.posts.AuthorID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// DeleteComment removes a comment. Its author and the owner of the post may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "comment", "delete", attribute.Int64("comment.id", int64(commentID)))
	defer func() { span.End(err) }()

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.UserID != userID {
		postOwner, err := s.posts.AuthorID(ctx, comment.PostID)
		if err != nil && !models.HasCode(err, models.CodeNotFound) {
			return err
		}
		if postOwner != userID {
			return models.NewForbiddenError("You can only delete your own comments")
		}
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	s.audit.ContentEvent(ctx, "comment_deleted", slog.Uint64("comment_id", uint64(commentID)))
	return nil
}
