// Package statusapitest provides an in-memory customer status API for tests.
package statusapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
)

// Server is a fake status API backed by memory.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	events map[string][]engagement.StatusEvent
	seq    int
	clock  time.Time
	// FailMutations makes POST and PATCH answer 503.
	FailMutations bool
	Requests      []string
}

// NewServer starts a fake API. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		events: make(map[string][]engagement.StatusEvent),
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed appends events for a customer, assigning ids and timestamps when empty.
func (s *Server) Seed(customerID string, events ...engagement.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			s.seq++
			ev.ID = fmt.Sprintf("st-%d", s.seq)
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = s.tick()
		}
		ev.CustomerID = customerID
		s.events[customerID] = append(s.events[customerID], ev)
	}
}

// Events returns a copy of a customer's stored events.
func (s *Server) Events(customerID string) []engagement.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engagement.StatusEvent, len(s.events[customerID]))
	copy(out, s.events[customerID])
	return out
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, r.Method+" "+r.URL.Path)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "customers" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if parts[1] == "statuses" && r.Method == http.MethodGet {
		switch parts[2] {
		case "available-steps":
			labels := map[engagement.Step]string{}
			for _, step := range engagement.AllSteps() {
				labels[step] = step.DisplayName()
			}
			writeData(w, http.StatusOK, labels)
			return
		case "available-statuses":
			writeData(w, http.StatusOK, map[engagement.StatusType]string{
				engagement.StatusStarted:   "Started",
				engagement.StatusCompleted: "Completed",
				engagement.StatusReopened:  "Reopened",
			})
			return
		}
	}

	if parts[2] != "statuses" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	customerID := parts[1]

	switch {
	case r.Method == http.MethodGet && len(parts) == 3:
		events := s.events[customerID]
		if events == nil {
			events = []engagement.StatusEvent{}
		}
		writeData(w, http.StatusOK, events)

	case r.Method == http.MethodPost && len(parts) == 3:
		if s.FailMutations {
			writeError(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
		var body struct {
			Step   engagement.Step       `json:"step"`
			Status engagement.StatusType `json:"status"`
			Notes  string                `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.seq++
		ev := engagement.StatusEvent{
			ID:         fmt.Sprintf("st-%d", s.seq),
			CustomerID: customerID,
			Step:       body.Step,
			Status:     body.Status,
			Notes:      body.Notes,
			CreatedAt:  s.tick(),
		}
		s.events[customerID] = append(s.events[customerID], ev)
		writeData(w, http.StatusCreated, ev)

	case r.Method == http.MethodPatch && len(parts) == 4:
		if s.FailMutations {
			writeError(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
		var body struct {
			Status engagement.StatusType `json:"status"`
			Notes  string                `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for i, ev := range s.events[customerID] {
			if ev.ID == parts[3] {
				ev.Status = body.Status
				if body.Notes != "" {
					ev.Notes = body.Notes
				}
				s.events[customerID][i] = ev
				writeData(w, http.StatusOK, ev)
				return
			}
		}
		writeError(w, http.StatusNotFound, "status not found")

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
