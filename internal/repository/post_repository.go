package repository

import (
	"context"
	"strings"
	"time"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	postsTable      = "posts"
	carDetailsTable = "car_details"
)

// PostRepository stores listings and their car details. Every list and count
// query except CountAllByUser only sees active posts.
type PostRepository interface {
	CreatePost(ctx context.Context, p *models.Post, details *models.CarDetails) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetCarDetails(ctx context.Context, postID int64) (*models.CarDetails, error)
	UpdatePost(ctx context.Context, p *models.Post, details *models.CarDetails) error
	DeactivatePost(ctx context.Context, id int64) error
	DeletePost(ctx context.Context, p *models.Post) error

	ListActive(ctx context.Context) ([]models.Post, error)
	ListByCategory(ctx context.Context, c models.PostCategory) ([]models.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Post, error)
	ListAllByUser(ctx context.Context, userID int64) ([]models.Post, error)
	Search(ctx context.Context, q string) ([]models.Post, error)
	ListByPriceRange(ctx context.Context, min, max float64) ([]models.Post, error)

	WatchActive(ctx context.Context) *live.Stream[[]models.Post]
	WatchByCategory(ctx context.Context, c models.PostCategory) *live.Stream[[]models.Post]
	WatchByUser(ctx context.Context, userID int64) *live.Stream[[]models.Post]
	WatchSearch(ctx context.Context, q string) *live.Stream[[]models.Post]
	WatchPriceRange(ctx context.Context, min, max float64) *live.Stream[[]models.Post]

	CountActive(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	CountAllByUser(ctx context.Context, userID int64) (int64, error)
}

type postRepository struct {
	*baseRepository[models.Post]
}

func NewPostRepository(db *gorm.DB, n *live.Notifier) PostRepository {
	return &postRepository{baseRepository: newBaseRepository[models.Post](db, n, postsTable, "id")}
}

func validatePost(p *models.Post) error {
	if !p.Category.Valid() {
		return appErr.New(appErr.CodeInvalid, "unknown category").WithMeta("category", p.Category)
	}
	if p.Price <= 0 {
		return appErr.New(appErr.CodeInvalid, "price must be positive").WithMeta("price", p.Price)
	}
	return nil
}

func (r *postRepository) CreatePost(ctx context.Context, p *models.Post, details *models.CarDetails) (int64, error) {
	if err := validatePost(p); err != nil {
		return 0, err
	}
	p.ID = 0
	p.IsActive = true
	withDetails := p.Category == models.CategoryCar && details != nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create post failed")
		}
		if withDetails {
			details.PostID = p.ID
			if err := tx.Create(details).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "create car details failed")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if withDetails {
		r.changed(carDetailsTable)
	} else {
		r.changed()
	}
	logger.L().Info("post created",
		zap.Int64("post_id", p.ID),
		zap.Int64("user_id", p.UserID),
		zap.String("category", string(p.Category)),
	)
	return p.ID, nil
}

func (r *postRepository) GetCarDetails(ctx context.Context, postID int64) (*models.CarDetails, error) {
	var d models.CarDetails
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Limit(1).Find(&d)
	if res.Error != nil {
		return nil, appErr.Wrap(res.Error, appErr.CodeInternal, "get car details failed")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *postRepository) UpdatePost(ctx context.Context, p *models.Post, details *models.CarDetails) error {
	if err := validatePost(p); err != nil {
		return err
	}
	withDetails := p.Category == models.CategoryCar && details != nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p.UpdatedAt = time.Now()
		res := tx.Model(&models.Post{}).Where("id = ?", p.ID).
			Select("title", "description", "price", "category", "images", "location",
				"contact_phone", "contact_email", "is_active", "updated_at").
			Updates(p)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "update post failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "post not found").WithMeta("post_id", p.ID)
		}
		switch {
		case withDetails:
			details.PostID = p.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(details).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "update car details failed")
			}
		case p.Category != models.CategoryCar:
			if err := tx.Where("post_id = ?", p.ID).Delete(&models.CarDetails{}).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "delete car details failed")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.changed(carDetailsTable)
	return nil
}

func (r *postRepository) DeactivatePost(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "deactivate post failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "post not found").WithMeta("post_id", id)
	}
	r.changed()
	logger.L().Info("post deactivated", zap.Int64("post_id", id))
	return nil
}

func (r *postRepository) DeletePost(ctx context.Context, p *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", p.ID).Delete(&models.CarDetails{}).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete car details failed")
		}
		res := tx.Delete(&models.Post{}, "id = ?", p.ID)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "delete post failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "post not found").WithMeta("post_id", p.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.changed(carDetailsTable)
	logger.L().Info("post deleted", zap.Int64("post_id", p.ID))
	return nil
}

func active(q *gorm.DB) *gorm.DB { return q.Where("is_active = ?", true) }

func newestFirst(q *gorm.DB) *gorm.DB { return q.Order("created_at DESC").Order("id DESC") }

func (r *postRepository) ListActive(ctx context.Context) ([]models.Post, error) {
	return r.list(ctx, "list active posts failed", func(q *gorm.DB) *gorm.DB {
		return newestFirst(active(q))
	})
}

func (r *postRepository) ListByCategory(ctx context.Context, c models.PostCategory) ([]models.Post, error) {
	return r.list(ctx, "list posts by category failed", func(q *gorm.DB) *gorm.DB {
		return newestFirst(active(q).Where("category = ?", c))
	})
}

func (r *postRepository) ListByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	return r.list(ctx, "list posts by user failed", func(q *gorm.DB) *gorm.DB {
		return newestFirst(active(q).Where("user_id = ?", userID))
	})
}

func (r *postRepository) ListAllByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	return r.list(ctx, "list posts by user failed", func(q *gorm.DB) *gorm.DB {
		return newestFirst(q.Where("user_id = ?", userID))
	})
}

func (r *postRepository) Search(ctx context.Context, query string) ([]models.Post, error) {
	pattern := likePattern(strings.ToLower(strings.TrimSpace(query)))
	return r.list(ctx, "search posts failed", func(q *gorm.DB) *gorm.DB {
		return newestFirst(active(q).Where(
			"(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern))
	})
}

func (r *postRepository) ListByPriceRange(ctx context.Context, min, max float64) ([]models.Post, error) {
	return r.list(ctx, "list posts by price failed", func(q *gorm.DB) *gorm.DB {
		return active(q).Where("price BETWEEN ? AND ?", min, max).Order("price ASC").Order("id ASC")
	})
}

func (r *postRepository) WatchActive(ctx context.Context) *live.Stream[[]models.Post] {
	return watch(ctx, r.notifier, r.ListActive, postsTable)
}

func (r *postRepository) WatchByCategory(ctx context.Context, c models.PostCategory) *live.Stream[[]models.Post] {
	return watch(ctx, r.notifier, func(ctx context.Context) ([]models.Post, error) {
		return r.ListByCategory(ctx, c)
	}, postsTable)
}

func (r *postRepository) WatchByUser(ctx context.Context, userID int64) *live.Stream[[]models.Post] {
	return watch(ctx, r.notifier, func(ctx context.Context) ([]models.Post, error) {
		return r.ListByUser(ctx, userID)
	}, postsTable)
}

func (r *postRepository) WatchSearch(ctx context.Context, q string) *live.Stream[[]models.Post] {
	return watch(ctx, r.notifier, func(ctx context.Context) ([]models.Post, error) {
		return r.Search(ctx, q)
	}, postsTable)
}

func (r *postRepository) WatchPriceRange(ctx context.Context, min, max float64) *live.Stream[[]models.Post] {
	return watch(ctx, r.notifier, func(ctx context.Context) ([]models.Post, error) {
		return r.ListByPriceRange(ctx, min, max)
	}, postsTable)
}

func (r *postRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, "count active posts failed", active)
}

func (r *postRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, "count posts by user failed", func(q *gorm.DB) *gorm.DB {
		return active(q).Where("user_id = ?", userID)
	})
}

func (r *postRepository) CountAllByUser(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, "count posts by user failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}
