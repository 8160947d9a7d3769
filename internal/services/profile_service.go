package services

import (
	"context"
	"strings"
	"sync"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/state"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

const msgProfileNotLoaded = "profile not loaded"

// ProfileService shows one user's profile, their listings and counts.
type ProfileService struct {
	users repository.UserRepository
	posts repository.PostRepository
	life  *lifetime

	mu     sync.Mutex
	user   *models.User
	stream *live.Stream[[]models.Post]

	profile   *state.Holder[*models.User]
	userPosts *state.Holder[[]models.Post]
	update    *state.Holder[*models.User]
	stats     *live.Subject[*models.UserStats]
}

func NewProfileService(ctx context.Context, users repository.UserRepository, posts repository.PostRepository) *ProfileService {
	return &ProfileService{
		users:     users,
		posts:     posts,
		life:      newLifetime(ctx),
		profile:   state.NewHolder(state.Loading[*models.User]()),
		userPosts: state.NewHolder(state.Loading[[]models.Post]()),
		update:    state.NewHolder(state.Idle[*models.User]()),
		stats:     live.NewSubjectWith[*models.UserStats](nil),
	}
}

func (s *ProfileService) Profile() *state.Holder[*models.User]     { return s.profile }
func (s *ProfileService) UserPosts() *state.Holder[[]models.Post]  { return s.userPosts }
func (s *ProfileService) UpdateState() *state.Holder[*models.User] { return s.update }

// Stats is nil until a profile is loaded.
func (s *ProfileService) Stats() *models.UserStats { return s.stats.Value() }

func (s *ProfileService) WatchStats() *live.Subscription[*models.UserStats] {
	return s.stats.Subscribe()
}

// User returns the loaded profile, or nil.
func (s *ProfileService) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// LoadProfile reads the user and starts following their active listings.
func (s *ProfileService) LoadProfile(ctx context.Context, userID int64) state.State[*models.User] {
	s.profile.Set(state.Loading[*models.User]())

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.L().Error("load profile failed", zap.Int64("user_id", userID), zap.Error(err))
		st := state.Failure[*models.User]("error loading profile: " + appErr.MessageOf(err))
		s.profile.Set(st)
		return st
	}
	if u == nil {
		st := state.Failure[*models.User](MsgUserNotFound)
		s.profile.Set(st)
		return st
	}

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	st := state.Success(u)
	s.profile.Set(st)

	s.watchPosts(userID)
	if _, err := s.refreshStats(ctx, userID); err != nil {
		logger.L().Warn("load stats failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return st
}

func (s *ProfileService) watchPosts(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.Close()
	}
	stream := s.posts.WatchByUser(s.life.ctx, userID)
	s.stream = stream
	s.userPosts.Set(state.Loading[[]models.Post]())

	s.life.goRun(func(ctx context.Context) {
		sub := stream.Subscribe()
		defer sub.Close()
		for r := range sub.C() {
			if !s.owns(stream) {
				return
			}
			if r.Err != nil {
				s.userPosts.Set(state.Failure[[]models.Post]("error loading posts: " + appErr.MessageOf(r.Err)))
				continue
			}
			s.userPosts.Set(state.Success(r.Value))
			if _, err := s.refreshStats(ctx, userID); err != nil && ctx.Err() == nil {
				logger.L().Warn("refresh stats failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
	})
}

func (s *ProfileService) owns(stream *live.Stream[[]models.Post]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream == stream
}

// ComputeStats counts every listing of userID and how many are active.
func (s *ProfileService) ComputeStats(ctx context.Context, userID int64) (models.UserStats, error) {
	total, err := s.posts.CountAllByUser(ctx, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	active, err := s.posts.CountByUser(ctx, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	return models.UserStats{TotalPosts: total, ActivePosts: active, InactivePosts: total - active}, nil
}

func (s *ProfileService) refreshStats(ctx context.Context, userID int64) (models.UserStats, error) {
	st, err := s.ComputeStats(ctx, userID)
	if err != nil {
		return st, err
	}
	s.stats.Set(&st)
	return st, nil
}

// UpdateProfile changes the loaded user's name, phone and image. Blank
// optional values are cleared.
func (s *ProfileService) UpdateProfile(ctx context.Context, name string, phone, image *string) state.State[*models.User] {
	cur := s.User()
	if cur == nil {
		st := state.Failure[*models.User](msgProfileNotLoaded)
		s.update.Set(st)
		return st
	}
	if strings.TrimSpace(name) == "" {
		st := state.Failure[*models.User](MsgNameRequired)
		s.update.Set(st)
		return st
	}
	s.update.Set(state.Loading[*models.User]())

	next := *cur
	next.Name = strings.TrimSpace(name)
	next.Phone = optionalPtr(phone)
	next.ProfileImage = optionalPtr(image)

	if err := s.users.Update(ctx, &next); err != nil {
		logger.L().Error("update profile failed", zap.Int64("user_id", cur.ID), zap.Error(err))
		st := state.Failure[*models.User]("error updating profile: " + appErr.MessageOf(err))
		s.update.Set(st)
		return st
	}

	s.mu.Lock()
	s.user = &next
	s.mu.Unlock()
	s.profile.Set(state.Success(&next))
	st := state.Success(&next)
	s.update.Set(st)
	logger.L().Info("profile updated", zap.Int64("user_id", next.ID))
	return st
}

// DeletePost removes one of the loaded user's listings. The listing feed
// updates through the live query.
func (s *ProfileService) DeletePost(ctx context.Context, p *models.Post) error {
	if err := s.checkOwner(p); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, p); err != nil {
		logger.L().Error("delete post failed", zap.Int64("post_id", p.ID), zap.Error(err))
		return err
	}
	return nil
}

// DeactivatePost hides a listing without removing it.
func (s *ProfileService) DeactivatePost(ctx context.Context, postID int64) error {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if p == nil {
		return appErr.New(appErr.CodeNotFound, "post not found")
	}
	if err := s.checkOwner(p); err != nil {
		return err
	}
	if err := s.posts.DeactivatePost(ctx, postID); err != nil {
		logger.L().Error("deactivate post failed", zap.Int64("post_id", postID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ProfileService) checkOwner(p *models.Post) error {
	if p == nil {
		return appErr.New(appErr.CodeNotFound, "post not found")
	}
	u := s.User()
	if u == nil {
		return appErr.New(appErr.CodeInvalid, msgProfileNotLoaded)
	}
	if p.UserID != u.ID {
		return appErr.New(appErr.CodeForbidden, "post belongs to another user")
	}
	return nil
}

func (s *ProfileService) ResetUpdateState() { s.update.Reset() }

// Refresh reloads the current profile.
func (s *ProfileService) Refresh(ctx context.Context) state.State[*models.User] {
	u := s.User()
	if u == nil {
		return state.Failure[*models.User](msgProfileNotLoaded)
	}
	return s.LoadProfile(ctx, u.ID)
}

func (s *ProfileService) Close() {
	s.life.close()
	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
	}
	s.mu.Unlock()
	s.profile.Close()
	s.userPosts.Close()
	s.update.Close()
	s.stats.Close()
}
