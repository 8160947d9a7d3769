package handlers

import (
	"net/http"
	"strconv"

	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/services"
	appErr "github.com/stage-app/engine/pkg/errors"
)

type PostsHandler struct {
	posts repository.PostRepository
	rates *exchange.Repository
}

func NewPostsHandler(posts repository.PostRepository, rates *exchange.Repository) *PostsHandler {
	return &PostsHandler{posts: posts, rates: rates}
}

// listingQuery reads category, q, min, max and currency from the query string.
func listingQuery(r *http.Request) (services.ListingFilter, models.Currency, error) {
	q := r.URL.Query()
	var f services.ListingFilter
	if v := q.Get("category"); v != "" {
		c, err := models.ParseCategory(v)
		if err != nil {
			return f, models.Currency{}, appErr.New(appErr.CodeInvalid, "category must be CAR or PARTS")
		}
		f.Category = &c
	}
	f.Query = q.Get("q")
	for _, b := range []struct {
		key string
		dst **float64
	}{{"min", &f.Range.Min}, {"max", &f.Range.Max}} {
		v := q.Get(b.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, models.Currency{}, appErr.New(appErr.CodeInvalid, b.key+" must be a number")
		}
		*b.dst = &n
	}
	cur, _ := models.LookupCurrency(models.BaseCurrency)
	if v := q.Get("currency"); v != "" {
		c, ok := models.LookupCurrency(v)
		if !ok {
			return f, models.Currency{}, appErr.New(appErr.CodeInvalid, "unsupported currency "+v)
		}
		cur = c
	}
	return f, cur, nil
}

// views prices posts in cur. Rates are fetched only for a foreign currency;
// an unsuccessful snapshot is ignored and the pair rates apply, as on the
// event stream.
func (h *PostsHandler) views(r *http.Request, posts []models.Post, cur models.Currency) ([]types.PostView, *types.Meta) {
	meta := &types.Meta{Total: int64(len(posts)), Currency: cur.Code}
	var rates map[string]float64
	if cur.Code != models.BaseCurrency {
		snap := h.rates.LatestRates(r.Context(), models.BaseCurrency)
		if snap.Success {
			rates = snap.Rates
		}
		meta.RatesLive = &snap.Success
	}
	out := make([]types.PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, types.PostView{
			PostWithDetails: models.PostWithDetails{Post: p},
			DisplayPrice:    exchange.ConvertWithRates(p.Price, models.BaseCurrency, cur.Code, rates),
			DisplayCurrency: cur.Code,
		})
	}
	return out, meta
}

func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, cur, err := listingQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := h.posts.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, meta := h.views(r, services.FilterPosts(posts, filter), cur)
	writeData(w, r, http.StatusOK, out, meta)
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	_, cur, err := listingQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.load(r, id, cur)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, view, nil)
}

func (h *PostsHandler) load(r *http.Request, id int64, cur models.Currency) (*types.PostView, error) {
	p, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, appErr.New(appErr.CodeNotFound, "post not found")
	}
	views, _ := h.views(r, []models.Post{*p}, cur)
	view := views[0]
	if p.Category == models.CategoryCar {
		if view.CarDetails, err = h.posts.GetCarDetails(r.Context(), id); err != nil {
			return nil, err
		}
	}
	return &view, nil
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req types.PostRequest
	if !decode(w, r, &req) {
		return
	}
	form := req.Form()
	if _, _, err := form.Build(uid); err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
		return
	}

	svc := services.NewPostFormService(r.Context(), h.posts)
	defer svc.Close()
	svc.Fill(form)
	st := svc.CreatePost(r.Context(), uid)
	if st.IsError() {
		writeError(w, r, appErr.New(appErr.CodeInternal, st.Message))
		return
	}
	view, err := h.load(r, st.Value, models.Currency{Code: models.BaseCurrency})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, view, nil)
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	existing, err := h.owned(r, id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.PostRequest
	if !decode(w, r, &req) {
		return
	}
	p, details, err := req.Form().Build(uid)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
		return
	}
	p.ID = id
	p.IsActive = existing.IsActive
	if err := h.posts.UpdatePost(r.Context(), p, details); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.load(r, id, models.Currency{Code: models.BaseCurrency})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, view, nil)
}

func (h *PostsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.owned(r, id, uid); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.posts.DeactivatePost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "is_active": false}, nil)
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.owned(r, id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.posts.DeletePost(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostsHandler) owned(r *http.Request, id, uid int64) (*models.Post, error) {
	p, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, appErr.New(appErr.CodeNotFound, "post not found")
	}
	if p.UserID != uid {
		return nil, appErr.New(appErr.CodeForbidden, "post belongs to another user")
	}
	return p, nil
}
