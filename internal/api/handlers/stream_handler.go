package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/services"
	"github.com/stage-app/engine/internal/state"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

const heartbeatEvery = 25 * time.Second

// StreamHandler pushes the filtered listing feed as server-sent events.
type StreamHandler struct {
	posts     repository.PostRepository
	rates     *exchange.Repository
	heartbeat time.Duration
}

func NewStreamHandler(posts repository.PostRepository, rates *exchange.Repository) *StreamHandler {
	return &StreamHandler{posts: posts, rates: rates, heartbeat: heartbeatEvery}
}

type feedEvent struct {
	State    string     `json:"state"`
	Message  string     `json:"message,omitempty"`
	Currency string     `json:"currency"`
	Posts    []feedPost `json:"posts"`
}

type feedPost struct {
	models.Post
	DisplayPrice float64 `json:"display_price"`
}

// Posts keeps one HomeService alive for the request and writes an event
// each time the visible listings change.
func (h *StreamHandler) Posts(w http.ResponseWriter, r *http.Request) {
	filter, cur, err := listingQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rc := http.NewResponseController(w)

	home := services.NewFilteredHomeService(r.Context(), h.posts, h.rates, filter, cur)
	defer home.Close()

	sub := home.Posts().Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.L().Warn("stream flush unsupported", zap.Error(err))
		return
	}

	beat := time.NewTicker(h.heartbeat)
	defer beat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-beat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case st, ok := <-sub.C():
			if !ok {
				return
			}
			if st.IsLoading() {
				continue
			}
			if err := writeEvent(w, "posts", h.event(home, st)); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) event(home *services.HomeService, st state.State[[]models.Post]) feedEvent {
	ev := feedEvent{
		State:    st.Kind.String(),
		Message:  st.Message,
		Currency: home.SelectedCurrency().Code,
		Posts:    make([]feedPost, 0, len(st.Value)),
	}
	for _, p := range st.Value {
		ev.Posts = append(ev.Posts, feedPost{Post: p, DisplayPrice: home.ConvertPrice(p)})
	}
	return ev
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
	return err
}
