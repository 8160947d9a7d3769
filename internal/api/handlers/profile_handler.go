package handlers

import (
	"net/http"

	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/services"
	appErr "github.com/stage-app/engine/pkg/errors"
)

type ProfileHandler struct {
	users repository.UserRepository
	posts repository.PostRepository
}

func NewProfileHandler(users repository.UserRepository, posts repository.PostRepository) *ProfileHandler {
	return &ProfileHandler{users: users, posts: posts}
}

// open loads the caller's profile into a request-scoped service.
func (h *ProfileHandler) open(w http.ResponseWriter, r *http.Request) (*services.ProfileService, int64, bool) {
	uid, ok := currentUser(w, r)
	if !ok {
		return nil, 0, false
	}
	svc := services.NewProfileService(r.Context(), h.users, h.posts)
	st := svc.LoadProfile(r.Context(), uid)
	if st.IsError() {
		svc.Close()
		code := appErr.CodeInternal
		if st.Message == services.MsgUserNotFound {
			code = appErr.CodeNotFound
		}
		writeError(w, r, appErr.New(code, st.Message))
		return nil, 0, false
	}
	return svc, uid, true
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.open(w, r)
	if !ok {
		return
	}
	defer svc.Close()
	writeData(w, r, http.StatusOK, map[string]any{
		"user":  svc.User(),
		"stats": svc.Stats(),
	}, nil)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.ProfileUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	svc, _, ok := h.open(w, r)
	if !ok {
		return
	}
	defer svc.Close()
	st := svc.UpdateProfile(r.Context(), req.Name, req.Phone, req.ProfileImage)
	if st.IsError() {
		code := appErr.CodeInternal
		if st.Message == services.MsgNameRequired {
			code = appErr.CodeInvalid
		}
		writeError(w, r, appErr.New(code, st.Message))
		return
	}
	writeData(w, r, http.StatusOK, st.Value, nil)
}

// Posts lists every listing of the caller, inactive ones included.
func (h *ProfileHandler) Posts(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	posts, err := h.posts.ListAllByUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, posts, &types.Meta{Total: int64(len(posts))})
}

func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	svc, uid, ok := h.open(w, r)
	if !ok {
		return
	}
	defer svc.Close()
	stats, err := svc.ComputeStats(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, stats, nil)
}
