package types

import (
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/services"
)

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,pwd"`
	Phone    *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PostRequest is the add and edit listing payload. Numbers arrive as
// strings, the way the form collects them.
type PostRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required"`
	Price        string   `json:"price" validate:"required"`
	Category     string   `json:"category" validate:"omitempty,category"`
	Images       []string `json:"images" validate:"max=20,dive,required"`
	Location     string   `json:"location"`
	ContactPhone string   `json:"contact_phone"`
	ContactEmail string   `json:"contact_email" validate:"omitempty,email"`

	VIN          string `json:"vin" validate:"max=17"`
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

// Form maps the payload onto the listing form.
func (r PostRequest) Form() services.PostForm {
	f := services.EmptyPostForm()
	f.Title, f.Description, f.Price = r.Title, r.Description, r.Price
	if r.Category != "" {
		f.Category = models.PostCategory(r.Category)
	}
	if r.Images != nil {
		f.Images = r.Images
	}
	f.Location, f.ContactPhone, f.ContactEmail = r.Location, r.ContactPhone, r.ContactEmail
	f.VIN, f.Make, f.Model, f.Year, f.Mileage = r.VIN, r.Make, r.Model, r.Year, r.Mileage
	f.FuelType, f.Transmission, f.EngineSize = r.FuelType, r.Transmission, r.EngineSize
	f.Color, f.Condition = r.Color, r.Condition
	return f
}

type ProfileUpdateRequest struct {
	Name         string  `json:"name" validate:"required"`
	Phone        *string `json:"phone"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,max=2048"`
}
