package handlers

import (
	"context"
	"net/http"
	"time"

	appErr "github.com/stage-app/engine/pkg/errors"
)

// Pinger reports whether backing stores are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler takes the readiness check; nil means always ready.
func NewHealthHandler(p Pinger) *HealthHandler { return &HealthHandler{pinger: p} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]string{"status": "ok"}, nil)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "not ready"))
			return
		}
	}
	writeData(w, r, http.StatusOK, map[string]string{"status": "ready"}, nil)
}
