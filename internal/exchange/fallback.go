package exchange

import (
	"context"
	"time"

	"github.com/stage-app/engine/internal/models"
)

var (
	ronRates = map[string]float64{
		"EUR": 0.20, "USD": 0.22, "GBP": 0.16, "CHF": 0.19,
		"JPY": 24.0, "CAD": 0.28, "AUD": 0.30,
	}
	eurRates = map[string]float64{
		"USD": 1.1, "GBP": 0.8, "CHF": 0.95, "JPY": 120.0,
		"CAD": 1.4, "AUD": 1.5, "RON": 5.0,
	}
	genericRates = map[string]float64{
		"EUR": 0.9, "USD": 1.0, "GBP": 0.73, "CHF": 0.86,
		"JPY": 110.0, "CAD": 1.27, "AUD": 1.36, "RON": 4.5,
	}

	pairRates = map[[2]string]float64{
		{"RON", "EUR"}: 0.20,
		{"RON", "USD"}: 0.22,
		{"EUR", "RON"}: 5.0,
		{"USD", "RON"}: 4.5,
	}
)

// FallbackRates returns a copy of the static table for base. RON and EUR
// have their own tables, every other base gets the generic one.
func FallbackRates(base string) map[string]float64 {
	src := genericRates
	switch base {
	case "RON":
		src = ronRates
	case "EUR":
		src = eurRates
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// FallbackRate is the static rate for one pair: 1 for identical currencies,
// a handful of known RON/EUR/USD pairs, and 1 for anything else.
func FallbackRate(from, to string) float64 {
	if from == to {
		return 1.0
	}
	if r, ok := pairRates[[2]string{from, to}]; ok {
		return r
	}
	return 1.0
}

// FallbackTable is a RateSource over the static tables. It never fails and
// marks every result unsuccessful.
type FallbackTable struct{}

func (FallbackTable) Latest(_ context.Context, base string) (models.ExchangeRateSnapshot, error) {
	if base == "" {
		base = models.BaseCurrency
	}
	return models.ExchangeRateSnapshot{
		Base:      base,
		Rates:     FallbackRates(base),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (FallbackTable) Symbols(_ context.Context, base string, targets []string) (models.ExchangeRateSnapshot, error) {
	rates := make(map[string]float64, len(targets))
	for _, t := range targets {
		rates[t] = FallbackRate(base, t)
	}
	return models.ExchangeRateSnapshot{
		Base:      base,
		Rates:     rates,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (FallbackTable) Convert(_ context.Context, from, to string, amount float64) (models.Conversion, error) {
	rate := FallbackRate(from, to)
	return models.Conversion{
		From:      from,
		To:        to,
		Amount:    amount,
		Rate:      rate,
		Result:    amount * rate,
		Timestamp: time.Now().UTC(),
	}, nil
}
