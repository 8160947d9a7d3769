package services

import (
	"math"
	"strings"

	"github.com/stage-app/engine/internal/models"
)

// PriceRange bounds a listing price. Either end may be open.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ListingFilter narrows the active listings shown on the home screen.
type ListingFilter struct {
	Category *models.PostCategory `json:"category,omitempty"`
	Query    string               `json:"query,omitempty"`
	Range    PriceRange           `json:"range"`
}

// FilterPosts applies f to posts and keeps their order. Category must match
// exactly; a non-blank query must appear in the title or description,
// ignoring case; the price range is inclusive.
func FilterPosts(posts []models.Post, f ListingFilter) []models.Post {
	query := strings.ToLower(f.Query)
	checkQuery := strings.TrimSpace(f.Query) != ""
	checkRange := f.Range.Min != nil || f.Range.Max != nil
	lo, hi := math.Inf(-1), math.Inf(1)
	if f.Range.Min != nil {
		lo = *f.Range.Min
	}
	if f.Range.Max != nil {
		hi = *f.Range.Max
	}

	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if f.Category != nil && p.Category != *f.Category {
			continue
		}
		if checkQuery &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		if checkRange && (p.Price < lo || p.Price > hi) {
			continue
		}
		out = append(out, p)
	}
	return out
}
