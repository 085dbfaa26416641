// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"threads/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options tune the generated data.
type Options struct {
	// SkipBcrypt stores a cheap hash. Seeded users can still log in.
	SkipBcrypt bool
	// MaxDays spreads post timestamps over the last MaxDays days.
	MaxDays int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	rng   *rand.Rand
	hash  string
}

// NewFactory returns a Factory writing to db.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}

	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	return &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewPCG(uint64(seed), 0x7468726561647321)),
		hash:  string(hash),
	}, nil
}

// CreateUser persists a fake user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)),
		Email:    f.faker.Email(),
		Password: f.hash,
		FullName: f.faker.Name(),
		Bio:      f.faker.Sentence(10),
		Avatar:   "https://i.pravatar.cc/150?u=" + f.faker.UUID(),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post by author with a timestamp in the seeding window.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	post := &models.Post{
		AuthorID:  author.ID,
		Text:      f.faker.Sentence(f.rng.IntN(20) + 5),
		CreatedAt: f.pastTime(),
	}
	if f.rng.IntN(4) == 0 {
		image := fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
		post.Image = &image
	}
	return post
}

// CreatePostsBatch persists posts in a single insert.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a fake comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Text:   f.faker.Sentence(f.rng.IntN(12) + 3),
		PostID: post.ID,
		UserID: user.ID,
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.IntN(f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}
