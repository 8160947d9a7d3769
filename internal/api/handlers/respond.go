package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stage-app/engine/internal/api/middleware"
	"github.com/stage-app/engine/internal/api/types"
	"github.com/stage-app/engine/internal/api/validators"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any, meta *types.Meta) {
	if meta == nil {
		meta = &types.Meta{}
	}
	meta.RequestID = middleware.GetRequestID(r.Context())
	writeJSON(w, status, types.APIResponse{Success: true, Data: data, Meta: meta})
}

// writeError maps an AppError code to its status. Internal failures are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := appErr.CodeOf(err)
	status := appErr.HTTPStatus(code)
	apiErr := types.FromAppError(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		apiErr = &types.APIError{Code: string(code), Message: http.StatusText(status)}
	}
	writeJSON(w, status, types.APIResponse{Error: apiErr, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

func writeErrorStr(w http.ResponseWriter, status int, code appErr.Code, msg string) {
	writeJSON(w, status, types.APIResponse{Error: &types.APIError{Code: string(code), Message: msg}})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid json"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, msg)
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, types.APIResponse{Error: &types.APIError{
			Code:    string(appErr.CodeInvalid),
			Message: validators.Summary(err),
			Details: validators.ToDetails(err),
		}})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "invalid id")
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeErrorStr(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "unauthorized")
	}
	return uid, ok
}
