package types

import "github.com/stage-app/engine/internal/models"

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Currency  string `json:"currency,omitempty"`
	RatesLive *bool  `json:"rates_live,omitempty"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"user"`
}

// PostView is a listing with its price in the requested currency.
type PostView struct {
	models.PostWithDetails
	DisplayPrice    float64 `json:"display_price"`
	DisplayCurrency string  `json:"display_currency"`
}
