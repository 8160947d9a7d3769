// Package exchange fetches currency rates and converts listing prices.
package exchange

import (
	"context"

	"github.com/stage-app/engine/internal/models"
)

// RateSource provides exchange rates. Client talks to the rate service;
// FallbackTable answers from static data.
type RateSource interface {
	Latest(ctx context.Context, base string) (models.ExchangeRateSnapshot, error)
	Symbols(ctx context.Context, base string, targets []string) (models.ExchangeRateSnapshot, error)
	Convert(ctx context.Context, from, to string, amount float64) (models.Conversion, error)
}
