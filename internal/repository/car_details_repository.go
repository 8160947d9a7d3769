package repository

import (
	"context"
	"strings"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"gorm.io/gorm"
)

// CarDetailsRepository queries car details directly. Rows are written through
// PostRepository so they stay tied to their post.
type CarDetailsRepository interface {
	GetByPostID(ctx context.Context, postID int64) (*models.CarDetails, error)
	GetByVIN(ctx context.Context, vin string) (*models.CarDetails, error)
	ExistsByVIN(ctx context.Context, vin string) (bool, error)
	ListByMake(ctx context.Context, name string) ([]models.CarDetails, error)
	ListByModel(ctx context.Context, name string) ([]models.CarDetails, error)
	ListByYearRange(ctx context.Context, from, to int) ([]models.CarDetails, error)
	ListByFuelType(ctx context.Context, fuelType string) ([]models.CarDetails, error)
	ListByTransmission(ctx context.Context, transmission string) ([]models.CarDetails, error)
	Count(ctx context.Context) (int64, error)
}

type carDetailsRepository struct {
	*baseRepository[models.CarDetails]
}

func NewCarDetailsRepository(db *gorm.DB, n *live.Notifier) CarDetailsRepository {
	return &carDetailsRepository{baseRepository: newBaseRepository[models.CarDetails](db, n, carDetailsTable, "post_id")}
}

func (r *carDetailsRepository) GetByPostID(ctx context.Context, postID int64) (*models.CarDetails, error) {
	return r.GetByID(ctx, postID)
}

func (r *carDetailsRepository) GetByVIN(ctx context.Context, vin string) (*models.CarDetails, error) {
	return r.first(ctx, "get car details by vin failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("vin = ?", strings.TrimSpace(vin))
	})
}

func (r *carDetailsRepository) ExistsByVIN(ctx context.Context, vin string) (bool, error) {
	n, err := r.count(ctx, "check vin failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("vin = ?", strings.TrimSpace(vin))
	})
	return n > 0, err
}

func (r *carDetailsRepository) ListByMake(ctx context.Context, name string) ([]models.CarDetails, error) {
	return r.likeColumn(ctx, "make", name)
}

func (r *carDetailsRepository) ListByModel(ctx context.Context, name string) ([]models.CarDetails, error) {
	return r.likeColumn(ctx, "model", name)
}

func (r *carDetailsRepository) likeColumn(ctx context.Context, col, v string) ([]models.CarDetails, error) {
	pattern := likePattern(strings.ToLower(strings.TrimSpace(v)))
	return r.list(ctx, "list car details by "+col+" failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("LOWER("+col+") LIKE ? ESCAPE '\\'", pattern).Order("post_id DESC")
	})
}

func (r *carDetailsRepository) ListByYearRange(ctx context.Context, from, to int) ([]models.CarDetails, error) {
	return r.list(ctx, "list car details by year failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("year BETWEEN ? AND ?", from, to).Order("year DESC").Order("post_id DESC")
	})
}

func (r *carDetailsRepository) ListByFuelType(ctx context.Context, fuelType string) ([]models.CarDetails, error) {
	return r.list(ctx, "list car details by fuel type failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("fuel_type = ?", fuelType).Order("post_id DESC")
	})
}

func (r *carDetailsRepository) ListByTransmission(ctx context.Context, transmission string) ([]models.CarDetails, error) {
	return r.list(ctx, "list car details by transmission failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("transmission = ?", transmission).Order("post_id DESC")
	})
}
