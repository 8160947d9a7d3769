package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	appErr "github.com/stage-app/engine/pkg/errors"
)

// CarsHandler serves car details of active listings.
type CarsHandler struct {
	cars  repository.CarDetailsRepository
	posts repository.PostRepository
}

func NewCarsHandler(cars repository.CarDetailsRepository, posts repository.PostRepository) *CarsHandler {
	return &CarsHandler{cars: cars, posts: posts}
}

type carQuery func(ctx context.Context) ([]models.CarDetails, error)

// carFilter picks the single filter given in the query string: make, model,
// fuel_type, transmission, or a year range from year_from and year_to.
func (h *CarsHandler) carFilter(r *http.Request) (carQuery, error) {
	q := r.URL.Query()
	var picked []carQuery
	if v := q.Get("make"); v != "" {
		picked = append(picked, func(ctx context.Context) ([]models.CarDetails, error) { return h.cars.ListByMake(ctx, v) })
	}
	if v := q.Get("model"); v != "" {
		picked = append(picked, func(ctx context.Context) ([]models.CarDetails, error) { return h.cars.ListByModel(ctx, v) })
	}
	if v := q.Get("fuel_type"); v != "" {
		picked = append(picked, func(ctx context.Context) ([]models.CarDetails, error) { return h.cars.ListByFuelType(ctx, v) })
	}
	if v := q.Get("transmission"); v != "" {
		picked = append(picked, func(ctx context.Context) ([]models.CarDetails, error) {
			return h.cars.ListByTransmission(ctx, v)
		})
	}
	if q.Get("year_from") != "" || q.Get("year_to") != "" {
		from, to := 0, 9999
		for _, b := range []struct {
			key string
			dst *int
		}{{"year_from", &from}, {"year_to", &to}} {
			v := q.Get(b.key)
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, appErr.New(appErr.CodeInvalid, b.key+" must be an integer")
			}
			*b.dst = n
		}
		if from > to {
			return nil, appErr.New(appErr.CodeInvalid, "year_from must not exceed year_to")
		}
		picked = append(picked, func(ctx context.Context) ([]models.CarDetails, error) {
			return h.cars.ListByYearRange(ctx, from, to)
		})
	}
	if len(picked) != 1 {
		return nil, appErr.New(appErr.CodeInvalid, "exactly one of make, model, fuel_type, transmission or year range is required")
	}
	return picked[0], nil
}

func (h *CarsHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := h.carFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	details, err := query(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := h.activeIDs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]models.CarDetails, 0, len(details))
	for _, d := range details {
		if active[d.PostID] {
			out = append(out, d)
		}
	}
	writeData(w, r, http.StatusOK, out, &types.Meta{Total: int64(len(out))})
}

// ByVIN answers the car details registered under a VIN.
func (h *CarsHandler) ByVIN(w http.ResponseWriter, r *http.Request) {
	vin := strings.TrimSpace(chi.URLParam(r, "vin"))
	if vin == "" {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "vin is required")
		return
	}
	d, err := h.cars.GetByVIN(r.Context(), vin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d == nil {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "no car with vin "+vin))
		return
	}
	active, err := h.activeIDs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !active[d.PostID] {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "no car with vin "+vin))
		return
	}
	writeData(w, r, http.StatusOK, d, nil)
}

func (h *CarsHandler) activeIDs(ctx context.Context) (map[int64]bool, error) {
	posts, err := h.posts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool, len(posts))
	for _, p := range posts {
		ids[p.ID] = true
	}
	return ids, nil
}
