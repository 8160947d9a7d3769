package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/stage-app/engine/internal/api/middleware"
	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/services"
	"github.com/stage-app/engine/internal/state"
	appErr "github.com/stage-app/engine/pkg/errors"
)

type AuthHandler struct {
	users      repository.UserRepository
	hmacSecret []byte
	ttl        time.Duration
}

func NewAuthHandler(users repository.UserRepository, secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, hmacSecret: secret, ttl: ttl}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.ValidateRegistration(req.Name, req.Email, req.Password); err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
		return
	}

	auth := services.NewAuthService(r.Context(), h.users, nil)
	defer auth.Close()
	st := auth.Register(r.Context(), strings.TrimSpace(req.Name), req.Email, req.Password, req.Phone)
	if st.IsError() {
		status, code := http.StatusInternalServerError, appErr.CodeInternal
		if st.Message == services.MsgEmailExists {
			status, code = http.StatusConflict, appErr.CodeAlreadyExists
		}
		writeErrorStr(w, status, code, st.Message)
		return
	}
	h.issue(w, r, http.StatusCreated, st)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := services.ValidateLogin(req.Email, req.Password); err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
		return
	}

	auth := services.NewAuthService(r.Context(), h.users, nil)
	defer auth.Close()
	st := auth.Login(r.Context(), req.Email, req.Password)
	if st.IsError() {
		status, code := http.StatusInternalServerError, appErr.CodeInternal
		if st.Message == services.MsgInvalidLogin {
			status, code = http.StatusUnauthorized, appErr.CodeUnauthorized
		}
		writeErrorStr(w, status, code, st.Message)
		return
	}
	h.issue(w, r, http.StatusOK, st)
}

// Logout is a no-op for bearer tokens; clients drop the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, nil, nil)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, st state.State[*models.User]) {
	tok, err := middleware.IssueToken(h.hmacSecret, st.Value.ID, h.ttl)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInternal, "sign token failed"))
		return
	}
	writeData(w, r, status, types.TokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.ttl.Seconds()),
		User:        st.Value,
	}, nil)
}
