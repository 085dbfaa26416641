package repository

import (
	"context"
	"errors"

	"threads/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	AuthorID(ctx context.Context, id uint) (uint, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByAuthors(ctx context.Context, authorIDs []uint, limit, offset int) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	summaries, err := loadSummaries(ctx, r.db, []uint{post.AuthorID})
	if err != nil {
		return err
	}
	post.Author = summaryPtr(summaries, post.AuthorID)
	if post.Likes == nil {
		post.Likes = []models.Like{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", nil)
		}
		return nil, models.NewInternalError(err)
	}
	if err := r.enrich(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// AuthorID returns the author of post id, or a NotFoundError.
func (r *postRepository) AuthorID(ctx context.Context, id uint) (uint, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Select("id", "author_id").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Post", nil)
		}
		return 0, models.NewInternalError(err)
	}
	return post.AuthorID, nil
}

// List returns posts newest first with author, likes and comments.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, r.db.WithContext(ctx), limit, offset)
}

// ListByAuthors returns posts written by any of authorIDs, newest first.
func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []uint, limit, offset int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}
	return r.find(ctx, r.db.WithContext(ctx).Where("author_id IN ?", authorIDs), limit, offset)
}

func (r *postRepository) find(ctx context.Context, q *gorm.DB, limit, offset int) ([]*models.Post, error) {
	posts := []*models.Post{}
	q = r.withDetails(q).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.enrich(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete removes the post with its likes and comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", nil)
		}
		return nil
	})
}

func (r *postRepository) withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		})
}

// enrich attaches author summaries to posts and their comments with one lookup.
func (r *postRepository) enrich(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
		for _, c := range p.Comments {
			ids = append(ids, c.UserID)
		}
	}

	summaries, err := loadSummaries(ctx, r.db, ids)
	if err != nil {
		return err
	}

	for _, p := range posts {
		p.Author = summaryPtr(summaries, p.AuthorID)
		if p.Likes == nil {
			p.Likes = []models.Like{}
		}
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
		for i := range p.Comments {
			p.Comments[i].User = summaryPtr(summaries, p.Comments[i].UserID)
		}
	}
	return nil
}
