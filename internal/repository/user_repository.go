package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/utils"
	"gorm.io/gorm"
)

// NoID is returned by Register when the email is already taken.
const NoID int64 = -1

const usersTable = "users"

type UserRepository interface {
	BaseRepository[models.User]
	Register(ctx context.Context, u *models.User) (int64, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListAll(ctx context.Context) ([]models.User, error)
	WatchAll(ctx context.Context) *live.Stream[[]models.User]
}

type userRepository struct {
	*baseRepository[models.User]
	hasher utils.PasswordHasher
}

// NewUserRepository builds the user store. A nil hasher keeps passwords as given.
func NewUserRepository(db *gorm.DB, n *live.Notifier, hasher utils.PasswordHasher) UserRepository {
	if hasher == nil {
		hasher = utils.PlainHasher{}
	}
	return &userRepository{
		baseRepository: newBaseRepository[models.User](db, n, usersTable, "id"),
		hasher:         hasher,
	}
}

func (r *userRepository) Register(ctx context.Context, u *models.User) (int64, error) {
	u.Email = strings.TrimSpace(u.Email)
	exists, err := r.ExistsByEmail(ctx, u.Email)
	if err != nil {
		return 0, err
	}
	if exists {
		return NoID, nil
	}

	stored, err := r.hasher.Hash(u.Password)
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}
	u.Password = stored

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return NoID, nil
		}
		return 0, appErr.Wrap(err, appErr.CodeInternal, "register user failed")
	}
	r.changed()
	return u.ID, nil
}

func (r *userRepository) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	if !r.hasher.Matches(u.Password, password) {
		return nil, nil
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "get user by email failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("email = ?", strings.TrimSpace(email))
	})
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.count(ctx, "check email failed", func(q *gorm.DB) *gorm.DB {
		return q.Where("email = ?", strings.TrimSpace(email))
	})
	return n > 0, err
}

func (r *userRepository) ListAll(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, "list users failed", func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at DESC").Order("id DESC")
	})
}

func (r *userRepository) WatchAll(ctx context.Context) *live.Stream[[]models.User] {
	return watch(ctx, r.notifier, r.ListAll, usersTable)
}

// Update saves profile fields. The stored password is never overwritten here.
func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).
		Select("email", "name", "phone", "profile_image").
		Updates(u)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return appErr.Wrap(res.Error, appErr.CodeAlreadyExists, "email already exists")
		}
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update user failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "user not found")
	}
	r.changed()
	return nil
}
