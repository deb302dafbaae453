// Package mock is a development stand-in for the LED controller's REST
// surface. It stores the schedule and color in the local state store and
// normalizes written schedules the way the controller does.
package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/panel"
	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/state"
)

const currentID = "current"

// Config holds the mock controller settings.
type Config struct {
	SequencesDir string
	PollTimeout  time.Duration
}

// Server handles the controller endpoints.
type Server struct {
	cfg Config

	schedules *state.TypedStore[[]schedule.WireEntry]
	colors    *state.TypedStore[panel.Color]
	sequences *state.TypedStore[string]

	mu      sync.Mutex
	color   panel.Color
	changed chan struct{} // closed and replaced on every color change
}

// NewServer creates a server backed by st. The last stored color is restored.
func NewServer(st *state.Store, cfg Config) (*Server, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		schedules: state.NewTypedStore[[]schedule.WireEntry](st, "mock_schedule"),
		colors:    state.NewTypedStore[panel.Color](st, "mock_color"),
		sequences: state.NewTypedStore[string](st, "mock_sequence"),
		changed:   make(chan struct{}),
	}

	color, _, err := s.colors.Get(currentID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore color: %w", err)
	}
	s.color = color

	return s, nil
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.HealthCheck).Methods("GET")

	router.HandleFunc("/api/get-schedule", s.GetSchedule).Methods("GET")
	router.HandleFunc("/api/set-schedule", s.SetSchedule).Methods("POST")

	router.HandleFunc("/api/get-sequences", s.ListSequences).Methods("GET")
	router.HandleFunc("/api/set-sequence", s.SetSequence).Methods("POST")

	router.HandleFunc("/api/get-rgbw", s.GetColor).Methods("GET")
	router.HandleFunc("/api/set-rgbw-r={r:[0-9]+}&g={g:[0-9]+}&b={b:[0-9]+}&w={w:[0-9]+}", s.SetColor).Methods("POST")

	return router
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetSchedule handles GET /api/get-schedule
func (s *Server) GetSchedule(w http.ResponseWriter, r *http.Request) {
	entries, _, err := s.schedules.Get(currentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []schedule.WireEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// SetSchedule handles POST /api/set-schedule. The whole schedule is
// replaced; entries are stored in canonical form (zero-padded hour and
// minute, days as a list).
func (s *Server) SetSchedule(w http.ResponseWriter, r *http.Request) {
	var wire []schedule.WireEntry
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entries, err := schedule.DecodeAll(wire)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	canonical, err := schedule.EncodeAll(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.schedules.Set(currentID, canonical); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info().Int("entries", len(entries)).Msg("Schedule replaced")
	writeJSON(w, http.StatusOK, map[string]int{"entries": len(entries)})
}

// ListSequences handles GET /api/get-sequences
func (s *Server) ListSequences(w http.ResponseWriter, r *http.Request) {
	refs, err := s.sequenceRefs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// SetSequence handles POST /api/set-sequence
func (s *Server) SetSequence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Missing sequence name", http.StatusBadRequest)
		return
	}

	refs, err := s.sequenceRefs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	found := false
	for _, ref := range refs {
		if ref == req.Name {
			found = true
			break
		}
	}
	if !found {
		http.Error(w, "Sequence not found", http.StatusNotFound)
		return
	}

	if err := s.sequences.Set(currentID, req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info().Str("sequence", req.Name).Msg("Sequence started")
	writeJSON(w, http.StatusOK, map[string]string{"name": req.Name})
}

// GetColor handles GET /api/get-rgbw. The request is held until the color
// changes or the poll timeout elapses, then the current color is returned.
func (s *Server) GetColor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	changed := s.changed
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.PollTimeout)
	defer timer.Stop()

	select {
	case <-changed:
	case <-timer.C:
	case <-r.Context().Done():
		return
	}

	writeJSON(w, http.StatusOK, s.currentColor())
}

// SetColor handles POST /api/set-rgbw-r={r}&g={g}&b={b}&w={w}
func (s *Server) SetColor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var channels [4]uint8
	for i, name := range []string{"r", "g", "b", "w"} {
		v, err := strconv.ParseUint(vars[name], 10, 8)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid %s value: %s", name, vars[name]), http.StatusBadRequest)
			return
		}
		channels[i] = uint8(v)
	}
	color := panel.Color{R: channels[0], G: channels[1], B: channels[2], W: channels[3]}

	if err := s.colors.Set(currentID, color); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.color = color
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	log.Debug().Str("color", color.String()).Msg("Color set")
	writeJSON(w, http.StatusOK, color)
}

func (s *Server) currentColor() panel.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

// sequenceRefs lists the files of the sequences directory as paths
// under it, sorted. A missing directory has no sequences.
func (s *Server) sequenceRefs() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.SequencesDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		refs = append(refs, filepath.ToSlash(filepath.Join(s.cfg.SequencesDir, e.Name())))
	}
	sort.Strings(refs)
	return refs, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
