package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/stage-app/engine/internal/live"
	appErr "github.com/stage-app/engine/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines common CRUD operations keyed by a numeric primary key.
// GetByID reports absence as (nil, nil).
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id int64) (*T, error)
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

type baseRepository[T any] struct {
	db       *gorm.DB
	notifier *live.Notifier
	table    string
	pk       string
}

func newBaseRepository[T any](db *gorm.DB, n *live.Notifier, table, pk string) *baseRepository[T] {
	return &baseRepository[T]{db: db, notifier: n, table: table, pk: pk}
}

// NewBaseRepository returns CRUD over T stored in table with an "id" primary key.
func NewBaseRepository[T any](db *gorm.DB, n *live.Notifier, table string) BaseRepository[T] {
	return newBaseRepository[T](db, n, table, "id")
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "create entity failed")
	}
	r.changed()
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	var dest T
	if err := r.db.WithContext(ctx).First(&dest, r.pk+" = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return &dest, nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "update entity failed")
	}
	r.changed()
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id int64) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, r.pk+" = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete entity failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("entity %v not found", id))
	}
	r.changed()
	return nil
}

func (r *baseRepository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count entities failed")
	}
	return n, nil
}

// list runs q against T and wraps failures with msg.
func (r *baseRepository[T]) list(ctx context.Context, msg string, q func(*gorm.DB) *gorm.DB) ([]T, error) {
	out := []T{}
	if err := q(r.db.WithContext(ctx).Model(new(T))).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, msg)
	}
	return out, nil
}

// first is list for a single row; absence is (nil, nil).
func (r *baseRepository[T]) first(ctx context.Context, msg string, q func(*gorm.DB) *gorm.DB) (*T, error) {
	var dest T
	if err := q(r.db.WithContext(ctx)).First(&dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, msg)
	}
	return &dest, nil
}

func (r *baseRepository[T]) count(ctx context.Context, msg string, q func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	if err := q(r.db.WithContext(ctx).Model(new(T))).Count(&n).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, msg)
	}
	return n, nil
}

// changed publishes a mutation of this repository's table, plus any extra tables.
func (r *baseRepository[T]) changed(extra ...string) {
	if r.notifier != nil {
		r.notifier.Publish(append([]string{r.table}, extra...)...)
	}
}

// watch wraps a list query as a live stream on this repository's tables.
func watch[T any](ctx context.Context, n *live.Notifier, fetch func(context.Context) ([]T, error), tables ...string) *live.Stream[[]T] {
	if n == nil {
		n = live.NewNotifier()
	}
	return live.Watch(ctx, n, fetch, tables...)
}

// likePattern escapes q for a LIKE match anywhere in a column.
func likePattern(q string) string {
	r := []rune{'%'}
	for _, c := range q {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(append(r, '%'))
}
