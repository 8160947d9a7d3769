package exchange

import (
	"context"

	"github.com/stage-app/engine/internal/models"
	"go.uber.org/zap"
)

// Repository serves rates from a primary source and substitutes the fallback
// source when the primary fails. There is no retry and no caching.
type Repository struct {
	primary  RateSource
	fallback RateSource
	log      *zap.Logger
}

// NewRepository wires primary over fallback. A nil fallback means FallbackTable.
func NewRepository(primary, fallback RateSource, log *zap.Logger) *Repository {
	if fallback == nil {
		fallback = FallbackTable{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{primary: primary, fallback: fallback, log: log}
}

// LatestRates returns every rate for base.
func (r *Repository) LatestRates(ctx context.Context, base string) models.ExchangeRateSnapshot {
	if base == "" {
		base = models.BaseCurrency
	}
	snap, err := r.primary.Latest(ctx, base)
	if err == nil {
		return snap
	}
	r.log.Warn("latest rates unavailable, using fallback table", zap.String("base", base), zap.Error(err))
	snap, _ = r.fallback.Latest(ctx, base)
	snap.Success = false
	return snap
}

// SpecificRates returns the rates for targets only.
func (r *Repository) SpecificRates(ctx context.Context, base string, targets []string) models.ExchangeRateSnapshot {
	snap, err := r.primary.Symbols(ctx, base, targets)
	if err == nil {
		return snap
	}
	r.log.Warn("specific rates unavailable, using fallback table",
		zap.String("base", base), zap.Strings("targets", targets), zap.Error(err))
	snap, _ = r.fallback.Symbols(ctx, base, targets)
	snap.Success = false
	return snap
}

// Convert converts amount through the rate service's convert endpoint.
func (r *Repository) Convert(ctx context.Context, from, to string, amount float64) models.Conversion {
	conv, err := r.primary.Convert(ctx, from, to, amount)
	if err == nil {
		return conv
	}
	r.log.Warn("conversion unavailable, using fallback rate",
		zap.String("from", from), zap.String("to", to), zap.Error(err))
	conv, _ = r.fallback.Convert(ctx, from, to, amount)
	conv.Success = false
	return conv
}

// SupportedCurrencies lists the display currencies.
func (r *Repository) SupportedCurrencies() []models.Currency {
	return models.SupportedCurrencies()
}

// ConvertWithRates converts amount using an already fetched rate map. A
// missing rate falls back to FallbackRate.
func ConvertWithRates(amount float64, from, to string, rates map[string]float64) float64 {
	if from == to {
		return amount
	}
	rate, ok := rates[to]
	if !ok {
		rate = FallbackRate(from, to)
	}
	return amount * rate
}

// ConvertWithRates is the package-level ConvertWithRates.
func (r *Repository) ConvertWithRates(amount float64, from, to string, rates map[string]float64) float64 {
	return ConvertWithRates(amount, from, to, rates)
}
