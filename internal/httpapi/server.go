// Package httpapi exposes the decision core over HTTP: merged views, rolling
// windows, the live order queue, a server-sent event stream of view updates,
// and the approval endpoint that hands queued plans to the execution router.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"prefcore/internal/decision"
	"prefcore/internal/domain"
	"prefcore/internal/execution"
	"prefcore/internal/prints"
	"prefcore/internal/view"
	"prefcore/internal/vwap"
)

// Server serves the decision-core HTTP API.
type Server struct {
	views  *view.Model
	conc   *prints.Engine
	vwaps  *vwap.Engine
	queue  *decision.Queue
	router *execution.Router
	log    *slog.Logger

	eventBuf     int           // per-client subscription buffer
	catchupEvery time.Duration // cadence of the missed-event re-send pass
}

// NewServer creates a Server. router may be nil when order submission is not
// wired, in which case the submit endpoint reports service unavailable.
func NewServer(
	views *view.Model,
	conc *prints.Engine,
	vwaps *vwap.Engine,
	queue *decision.Queue,
	router *execution.Router,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		views:        views,
		conc:         conc,
		vwaps:        vwaps,
		queue:        queue,
		router:       router,
		log:          log.With("engine", "httpapi"),
		eventBuf:     256,
		catchupEvery: time.Second,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/view", s.handleViews)
	mux.HandleFunc("GET /api/view/{symbol}", s.handleView)
	mux.HandleFunc("GET /api/windows/{symbol}", s.handleWindows)
	mux.HandleFunc("GET /api/queue", s.handleQueue)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	views := s.views.All()
	writeJSON(w, ViewsResponse{Count: len(views), Views: views})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	v, ok := s.views.View(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no view for %s", symbol))
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	resp := WindowsResponse{Symbol: symbol}
	for _, win := range s.conc.Windows(symbol) {
		resp.Concentration = append(resp.Concentration, convertConcentration(win))
	}
	resp.VWAP = s.vwaps.Windows(symbol)
	if resp.Concentration == nil {
		resp.Concentration = []ConcentrationWindowJSON{}
	}
	if resp.VWAP == nil {
		resp.VWAP = []domain.VWAPWindow{}
	}
	writeJSON(w, resp)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	entries := s.queue.Entries()

	resp := QueueResponse{Count: len(entries), Entries: []QueueEntryJSON{}}
	for i, e := range entries {
		resp.Entries = append(resp.Entries, convertQueueEntry(e, i+1, now.Sub(e.EnqueuedAt).Seconds()))
	}
	writeJSON(w, resp)
}

// handleEvents streams view updates as server-sent events: a snapshot of
// every current view first, then live updates until the client disconnects.
// Updates dropped while the client lagged are re-sent by a periodic catch-up
// pass, so every subscriber eventually sees each symbol's latest view.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before the snapshot so no update published in between is lost.
	id, events := s.views.Subscribe(s.eventBuf)
	defer s.views.Unsubscribe(id)

	send := func(v domain.MergedView) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for _, v := range s.views.All() {
		if err := send(v); err != nil {
			return
		}
	}

	catchup := time.NewTicker(s.catchupEvery)
	defer catchup.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-catchup.C:
			for _, sym := range s.views.TakeDirty(id) {
				v, ok := s.views.View(sym)
				if !ok {
					continue
				}
				if err := send(v); err != nil {
					s.views.MarkDirty(id, sym)
					return
				}
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := send(evt.View); err != nil {
				return
			}
		}
	}
}

// handleSubmit approves the queued plan for a symbol and routes it. The entry
// leaves the queue only when an order actually reached the venue; previews
// keep the slot so a later live submission can still pick it up.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.router == nil {
		writeError(w, http.StatusServiceUnavailable, "execution not configured")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := strings.ToUpper(req.Symbol)

	entry, ok := s.queue.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no queued plan for %s", symbol))
		return
	}

	approved, err := execution.Approve(entry.Plan, req.ApprovedBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.router.Submit(r.Context(), approved)
	if err != nil {
		s.log.Warn("submit failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !res.Skipped {
		s.queue.Remove(symbol)
	}

	writeJSON(w, SubmitResponse{
		Symbol:  res.Symbol,
		Mode:    res.Mode,
		Skipped: res.Skipped,
		OrderID: res.OrderID,
	})
}
