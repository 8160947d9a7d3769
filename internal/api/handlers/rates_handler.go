package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/models"
	appErr "github.com/stage-app/engine/pkg/errors"
)

type RatesHandler struct {
	rates *exchange.Repository
}

func NewRatesHandler(rates *exchange.Repository) *RatesHandler { return &RatesHandler{rates: rates} }

// Latest answers rates for base, optionally narrowed to symbols. Meta
// rates_live is false when the fallback table answered.
func (h *RatesHandler) Latest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := strings.ToUpper(q.Get("base"))
	if base == "" {
		base = models.BaseCurrency
	}
	var snap models.ExchangeRateSnapshot
	if symbols := q.Get("symbols"); symbols != "" {
		var targets []string
		for _, s := range strings.Split(symbols, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				targets = append(targets, s)
			}
		}
		snap = h.rates.SpecificRates(r.Context(), base, targets)
	} else {
		snap = h.rates.LatestRates(r.Context(), base)
	}
	writeData(w, r, http.StatusOK, snap, &types.Meta{Currency: base, RatesLive: &snap.Success})
}

func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := strings.ToUpper(q.Get("from")), strings.ToUpper(q.Get("to"))
	if from == "" || to == "" {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "from and to are required")
		return
	}
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "amount must be a number")
		return
	}
	conv := h.rates.Convert(r.Context(), from, to, amount)
	writeData(w, r, http.StatusOK, conv, &types.Meta{Currency: to, RatesLive: &conv.Success})
}

func (h *RatesHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	cs := h.rates.SupportedCurrencies()
	writeData(w, r, http.StatusOK, cs, &types.Meta{Total: int64(len(cs))})
}
