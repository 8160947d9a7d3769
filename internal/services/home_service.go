package services

import (
	"context"
	"time"

	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/settings"
	"github.com/stage-app/engine/internal/state"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

const msgRatesUnavailable = "could not load exchange rates"

// HomeService feeds the listing feed: active posts narrowed by the current
// filter, plus the rates used to show prices in the selected currency.
type HomeService struct {
	posts  repository.PostRepository
	rates  *exchange.Repository
	prefs  *settings.Preferences
	life   *lifetime
	stream *live.Stream[[]models.Post]

	category   *live.Subject[*models.PostCategory]
	query      *live.Subject[string]
	priceRange *live.Subject[PriceRange]
	currency   *live.Subject[models.Currency]
	rateMap    *live.Subject[map[string]float64]

	postsState    *state.Holder[[]models.Post]
	currencyState *state.Holder[map[string]float64]
}

// NewHomeService starts watching active posts and loads rates once. The
// category and currency are restored from prefs when prefs is not nil.
func NewHomeService(ctx context.Context, posts repository.PostRepository, rates *exchange.Repository, prefs *settings.Preferences) *HomeService {
	var filter ListingFilter
	currency, _ := models.LookupCurrency(models.BaseCurrency)
	if prefs != nil {
		filter.Category = prefs.SelectedCategory(ctx)
		currency = prefs.SelectedCurrency(ctx)
	}
	return newHomeService(ctx, posts, rates, prefs, filter, currency)
}

// NewFilteredHomeService starts with filter and currency applied and
// persists nothing.
func NewFilteredHomeService(ctx context.Context, posts repository.PostRepository, rates *exchange.Repository, filter ListingFilter, currency models.Currency) *HomeService {
	return newHomeService(ctx, posts, rates, nil, filter, currency)
}

func newHomeService(ctx context.Context, posts repository.PostRepository, rates *exchange.Repository, prefs *settings.Preferences, filter ListingFilter, currency models.Currency) *HomeService {
	life := newLifetime(ctx)
	s := &HomeService{
		posts:         posts,
		rates:         rates,
		prefs:         prefs,
		life:          life,
		stream:        posts.WatchActive(life.ctx),
		category:      live.NewSubjectWith(filter.Category),
		query:         live.NewSubjectWith(filter.Query),
		priceRange:    live.NewSubjectWith(filter.Range),
		currency:      live.NewSubjectWith(currency),
		rateMap:       live.NewSubjectWith(map[string]float64{}),
		postsState:    state.NewHolder(state.Loading[[]models.Post]()),
		currencyState: state.NewHolder(state.Idle[map[string]float64]()),
	}
	life.goRun(s.combine)
	life.goRun(s.loadRates)
	return s
}

func (s *HomeService) Posts() *state.Holder[[]models.Post]             { return s.postsState }
func (s *HomeService) CurrencyState() *state.Holder[map[string]float64] { return s.currencyState }

// Filter returns the filter currently applied.
func (s *HomeService) Filter() ListingFilter {
	return ListingFilter{Category: s.category.Value(), Query: s.query.Value(), Range: s.priceRange.Value()}
}

func (s *HomeService) SelectedCurrency() models.Currency { return s.currency.Value() }
func (s *HomeService) Rates() map[string]float64         { return s.rateMap.Value() }

// combine recomputes the visible posts whenever the result set or any
// filter input changes.
func (s *HomeService) combine(ctx context.Context) {
	postsSub := s.stream.Subscribe()
	defer postsSub.Close()
	catSub := s.category.Subscribe()
	defer catSub.Close()
	querySub := s.query.Subscribe()
	defer querySub.Close()
	rangeSub := s.priceRange.Subscribe()
	defer rangeSub.Close()

	var (
		latest live.Result[[]models.Post]
		have   bool
	)
	filter := s.Filter()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-postsSub.C():
			if !ok {
				return
			}
			latest, have = r, true
		case c, ok := <-catSub.C():
			if !ok {
				return
			}
			filter.Category = c
		case q, ok := <-querySub.C():
			if !ok {
				return
			}
			filter.Query = q
		case pr, ok := <-rangeSub.C():
			if !ok {
				return
			}
			filter.Range = pr
		}

		if !have {
			continue
		}
		if latest.Err != nil {
			logger.L().Error("load posts failed", zap.Error(latest.Err))
			s.postsState.Set(state.Failure[[]models.Post]("error loading posts: " + appErr.MessageOf(latest.Err)))
			continue
		}
		s.postsState.Set(state.Success(FilterPosts(latest.Value, filter)))
	}
}

func (s *HomeService) loadRates(ctx context.Context) {
	s.currencyState.Set(state.Loading[map[string]float64]())
	snap := s.rates.LatestRates(ctx, models.BaseCurrency)
	if ctx.Err() != nil {
		return
	}
	if !snap.Success {
		s.currencyState.Set(state.Failure[map[string]float64](msgRatesUnavailable))
		return
	}
	s.rateMap.Set(snap.Rates)
	s.currencyState.Set(state.Success(snap.Rates))
}

// SetCategory filters by c; nil shows every category.
func (s *HomeService) SetCategory(ctx context.Context, c *models.PostCategory) {
	s.category.Set(c)
	if s.prefs != nil {
		if err := s.prefs.SetSelectedCategory(ctx, c); err != nil {
			logger.L().Warn("save category failed", zap.Error(err))
		}
	}
}

func (s *HomeService) SetSearchQuery(q string)    { s.query.Set(q) }
func (s *HomeService) SetPriceRange(r PriceRange) { s.priceRange.Set(r) }

// SetCurrency changes the display currency.
func (s *HomeService) SetCurrency(ctx context.Context, c models.Currency) {
	s.currency.Set(c)
	if s.prefs != nil {
		if err := s.prefs.SetSelectedCurrency(ctx, c.Code); err != nil {
			logger.L().Warn("save currency failed", zap.String("currency", c.Code), zap.Error(err))
		}
	}
}

// ResetFilters clears category, query and price range. The currency stays.
func (s *HomeService) ResetFilters(ctx context.Context) {
	s.SetCategory(ctx, nil)
	s.query.Set("")
	s.priceRange.Set(PriceRange{})
}

// Refresh re-runs the posts query and reloads rates.
func (s *HomeService) Refresh() {
	s.stream.Refresh()
	s.life.goRun(s.loadRates)
}

// ConvertPrice returns the post price in the selected currency.
func (s *HomeService) ConvertPrice(p models.Post) float64 {
	return s.ConvertAmount(p.Price, s.currency.Value().Code)
}

// ConvertAmount converts a base-currency amount to code using the loaded rates.
func (s *HomeService) ConvertAmount(amount float64, code string) float64 {
	if code == models.BaseCurrency {
		return amount
	}
	return exchange.ConvertWithRates(amount, models.BaseCurrency, code, s.rateMap.Value())
}

func (s *HomeService) SupportedCurrencies() []models.Currency { return s.rates.SupportedCurrencies() }

// StartAutoRefresh refreshes every interval while the auto refresh
// preference is on. A non-positive interval uses the stored one.
func (s *HomeService) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		interval = settings.DefaultRefreshMinutes * time.Minute
		if s.prefs != nil {
			interval = s.prefs.RefreshInterval(s.life.ctx)
		}
	}
	s.life.goRun(func(ctx context.Context) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if s.prefs == nil || s.prefs.AutoRefreshEnabled(ctx) {
					s.Refresh()
				}
			}
		}
	})
}

// Close stops the query and every background task, then ends subscriptions.
func (s *HomeService) Close() {
	s.life.close()
	s.stream.Close()
	s.category.Close()
	s.query.Close()
	s.priceRange.Close()
	s.currency.Close()
	s.rateMap.Close()
	s.postsState.Close()
	s.currencyState.Close()
}
