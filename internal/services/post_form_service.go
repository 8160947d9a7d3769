package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/state"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

// PostForm is the raw input of the add-listing form. Numbers stay strings
// until the listing is built.
type PostForm struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Price        string              `json:"price"`
	Category     models.PostCategory `json:"category"`
	Images       []string            `json:"images"`
	Location     string              `json:"location"`
	ContactPhone string              `json:"contact_phone"`
	ContactEmail string              `json:"contact_email"`

	VIN          string `json:"vin"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	Mileage      string `json:"mileage"`
	FuelType     string `json:"fuel_type"`
	Transmission string `json:"transmission"`
	EngineSize   string `json:"engine_size"`
	Color        string `json:"color"`
	Condition    string `json:"condition"`
}

// EmptyPostForm is a blank form for a car listing.
func EmptyPostForm() PostForm {
	return PostForm{Category: models.CategoryCar, Images: []string{}}
}

// Build validates the form and turns it into a post and, for cars, its details.
func (f PostForm) Build(userID int64) (*models.Post, *models.CarDetails, error) {
	price, err := ValidateListing(f.Title, f.Description, f.Price)
	if err != nil {
		return nil, nil, err
	}
	category := f.Category
	if category == "" {
		category = models.CategoryCar
	}
	images := make([]string, 0, len(f.Images))
	images = append(images, f.Images...)

	p := &models.Post{
		UserID:       userID,
		Title:        strings.TrimSpace(f.Title),
		Description:  strings.TrimSpace(f.Description),
		Price:        price,
		Category:     category,
		Images:       images,
		Location:     optional(f.Location),
		ContactPhone: optional(f.ContactPhone),
		ContactEmail: optional(f.ContactEmail),
		IsActive:     true,
	}
	if category != models.CategoryCar {
		return p, nil, nil
	}
	return p, &models.CarDetails{
		VIN:          optional(f.VIN),
		Make:         optional(f.Make),
		Model:        optional(f.Model),
		Year:         optionalInt(f.Year),
		Mileage:      optionalInt(f.Mileage),
		FuelType:     optional(f.FuelType),
		Transmission: optional(f.Transmission),
		EngineSize:   optional(f.EngineSize),
		Color:        optional(f.Color),
		Condition:    optional(f.Condition),
	}, nil
}

// PostFormService holds the add-listing form and the state of its submission.
type PostFormService struct {
	posts repository.PostRepository
	life  *lifetime

	mu     sync.Mutex
	form   PostForm
	submit *state.Holder[int64]
}

func NewPostFormService(ctx context.Context, posts repository.PostRepository) *PostFormService {
	return &PostFormService{
		posts:  posts,
		life:   newLifetime(ctx),
		form:   EmptyPostForm(),
		submit: state.NewHolder(state.Idle[int64]()),
	}
}

func (s *PostFormService) update(fn func(f *PostForm)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
}

func (s *PostFormService) SetTitle(v string)       { s.update(func(f *PostForm) { f.Title = v }) }
func (s *PostFormService) SetDescription(v string) { s.update(func(f *PostForm) { f.Description = v }) }
func (s *PostFormService) SetPrice(v string)       { s.update(func(f *PostForm) { f.Price = v }) }
func (s *PostFormService) SetCategory(c models.PostCategory) {
	s.update(func(f *PostForm) { f.Category = c })
}
func (s *PostFormService) SetImages(v []string) {
	s.update(func(f *PostForm) { f.Images = slices.Clone(v) })
}
func (s *PostFormService) SetLocation(v string)     { s.update(func(f *PostForm) { f.Location = v }) }
func (s *PostFormService) SetContactPhone(v string) { s.update(func(f *PostForm) { f.ContactPhone = v }) }
func (s *PostFormService) SetContactEmail(v string) { s.update(func(f *PostForm) { f.ContactEmail = v }) }
func (s *PostFormService) SetVIN(v string)          { s.update(func(f *PostForm) { f.VIN = v }) }
func (s *PostFormService) SetMake(v string)         { s.update(func(f *PostForm) { f.Make = v }) }
func (s *PostFormService) SetModel(v string)        { s.update(func(f *PostForm) { f.Model = v }) }
func (s *PostFormService) SetYear(v string)         { s.update(func(f *PostForm) { f.Year = v }) }
func (s *PostFormService) SetMileage(v string)      { s.update(func(f *PostForm) { f.Mileage = v }) }
func (s *PostFormService) SetFuelType(v string)     { s.update(func(f *PostForm) { f.FuelType = v }) }
func (s *PostFormService) SetTransmission(v string) { s.update(func(f *PostForm) { f.Transmission = v }) }
func (s *PostFormService) SetEngineSize(v string)   { s.update(func(f *PostForm) { f.EngineSize = v }) }
func (s *PostFormService) SetColor(v string)        { s.update(func(f *PostForm) { f.Color = v }) }
func (s *PostFormService) SetCondition(v string)    { s.update(func(f *PostForm) { f.Condition = v }) }

// Fill replaces the whole form.
func (s *PostFormService) Fill(f PostForm) { s.update(func(cur *PostForm) { *cur = f }) }

// Form returns a copy of the current input.
func (s *PostFormService) Form() PostForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.form
	f.Images = slices.Clone(s.form.Images)
	return f
}

func (s *PostFormService) State() *state.Holder[int64] { return s.submit }

// CreatePost validates the form and stores the listing for userID. Validation
// failures never reach the repository.
func (s *PostFormService) CreatePost(ctx context.Context, userID int64) state.State[int64] {
	p, details, err := s.Form().Build(userID)
	if err != nil {
		st := state.Failure[int64](err.Error())
		s.submit.Set(st)
		return st
	}
	s.submit.Set(state.Loading[int64]())

	id, err := s.posts.CreatePost(ctx, p, details)
	if err != nil {
		logger.L().Error("create post failed", zap.Int64("user_id", userID), zap.Error(err))
		st := state.Failure[int64]("error creating post: " + appErr.MessageOf(err))
		s.submit.Set(st)
		return st
	}
	st := state.Success(id)
	s.submit.Set(st)
	return st
}

// Submit runs CreatePost on the holder's lifetime.
func (s *PostFormService) Submit(userID int64) {
	s.life.goRun(func(ctx context.Context) { s.CreatePost(ctx, userID) })
}

func (s *PostFormService) ResetState() { s.submit.Reset() }

// ResetForm clears every field; the category returns to CAR.
func (s *PostFormService) ResetForm() { s.Fill(EmptyPostForm()) }

func (s *PostFormService) Close() {
	s.life.close()
	s.submit.Close()
}
