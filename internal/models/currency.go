package models

import (
	"strings"
	"time"
)

// Currency is a display currency for prices.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// BaseCurrency is the denomination every stored price uses.
const BaseCurrency = "RON"

var supportedCurrencies = []Currency{
	{Code: "RON", Symbol: "lei", Name: "Romanian Leu"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "GBP", Symbol: "£", Name: "British Pound"},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc"},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
}

// SupportedCurrencies returns the currencies prices can be shown in.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

// LookupCurrency finds a supported currency by code, case-insensitively.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range supportedCurrencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// ParseCurrency is LookupCurrency falling back to the base currency.
func ParseCurrency(code string) Currency {
	if c, ok := LookupCurrency(code); ok {
		return c
	}
	return supportedCurrencies[0]
}

// ExchangeRateSnapshot is a set of rates relative to Base. Success is false
// when the rates come from the fallback table.
type ExchangeRateSnapshot struct {
	Base      string             `json:"base"`
	Date      string             `json:"date,omitempty"`
	Rates     map[string]float64 `json:"rates"`
	Timestamp time.Time          `json:"timestamp"`
	Success   bool               `json:"success"`
}

// Conversion is the outcome of converting an amount between two currencies.
type Conversion struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
	Rate      float64   `json:"rate"`
	Result    float64   `json:"result"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}
