package models

import "time"

// User is a registered account. Email is the login key.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name" validate:"required"`
	Phone        *string   `json:"phone,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// UserStats summarises a user's listings.
type UserStats struct {
	TotalPosts    int64 `json:"total_posts"`
	ActivePosts   int64 `json:"active_posts"`
	InactivePosts int64 `json:"inactive_posts"`
}
