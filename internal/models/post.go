package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PostCategory classifies a listing.
type PostCategory string

const (
	CategoryCar   PostCategory = "CAR"
	CategoryParts PostCategory = "PARTS"
)

// Categories lists every category in display order.
func Categories() []PostCategory { return []PostCategory{CategoryCar, CategoryParts} }

func (c PostCategory) Valid() bool {
	return c == CategoryCar || c == CategoryParts
}

// DisplayName is the label shown next to a category filter.
func (c PostCategory) DisplayName() string {
	switch c {
	case CategoryCar:
		return "Cars"
	case CategoryParts:
		return "Parts"
	default:
		return string(c)
	}
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (PostCategory, error) {
	c := PostCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Post is a classified listing. Prices are stored in the base currency.
type Post struct {
	ID           int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64                       `gorm:"index;not null" json:"user_id"`
	Title        string                      `gorm:"not null" json:"title" validate:"required"`
	Description  string                      `gorm:"type:text;not null" json:"description" validate:"required"`
	Price        float64                     `gorm:"not null;check:chk_posts_price,price > 0" json:"price" validate:"gt=0"`
	Category     PostCategory                `gorm:"type:varchar(16);index;not null" json:"category" validate:"required,oneof=CAR PARTS"`
	Images       datatypes.JSONSlice[string] `json:"images"`
	Location     *string                     `json:"location,omitempty"`
	ContactPhone *string                     `json:"contact_phone,omitempty"`
	ContactEmail *string                     `json:"contact_email,omitempty"`
	IsActive     bool                        `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }
