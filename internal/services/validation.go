package services

import (
	"math"
	"strconv"
	"strings"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

const (
	msgLoginRequired    = "email and password are required"
	MsgInvalidLogin     = "invalid email or password"
	msgRegisterRequired = "all fields are required"
	msgPasswordTooShort = "password must be at least 6 characters"
	msgPasswordTooLong  = "password must be at most 72 bytes"
	MsgEmailExists      = "email already exists"
	msgTitleRequired    = "title is required"
	msgDescRequired     = "description is required"
	msgPriceInvalid     = "price must be a positive number"
	MsgNameRequired     = "name is required"
	MsgUserNotFound     = "user not found"
)

// ValidationError is an input problem caught before any repository call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ValidateLogin checks that both credentials are present.
func ValidateLogin(email, password string) error {
	if blank(email) || blank(password) {
		return invalid(msgLoginRequired)
	}
	return nil
}

// ValidateRegistration checks required fields and password length.
func ValidateRegistration(name, email, password string) error {
	if blank(name) || blank(email) || blank(password) {
		return invalid(msgRegisterRequired)
	}
	if len(password) < MinPasswordLength {
		return invalid(msgPasswordTooShort)
	}
	if len(password) > MaxPasswordLength {
		return invalid(msgPasswordTooLong)
	}
	return nil
}

// ValidateListing checks title, description and price and returns the parsed price.
func ValidateListing(title, description, price string) (float64, error) {
	if blank(title) {
		return 0, invalid(msgTitleRequired)
	}
	if blank(description) {
		return 0, invalid(msgDescRequired)
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, invalid(msgPriceInvalid)
	}
	return p, nil
}

// optional trims s and maps blank to nil.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// optionalInt parses s, mapping blank or unparsable input to nil.
func optionalInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func optionalPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
