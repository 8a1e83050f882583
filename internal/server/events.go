package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

// Event types.
const (
	EventSnapshot    = "snapshot"
	EventCalculation = "calculation"
	EventBatch       = "batch"
	EventReload      = "config_reload"
)

// Snapshot holds running totals of everything calculated since the server
// started.
type Snapshot struct {
	At             time.Time          `json:"at"`
	Calculations   int                `json:"calculations"`
	Batches        int                `json:"batches"`
	TotalEnergyKWh float64            `json:"total_energy_kwh"`
	TotalCarbonKg  float64            `json:"total_carbon_kg"`
	CostByCurrency map[string]float64 `json:"cost_by_currency"`
}

// Delta captures what one event added to the snapshot.
type Delta struct {
	Calculations   int     `json:"calculations"`
	Batches        int     `json:"batches"`
	TotalEnergyKWh float64 `json:"total_energy_kwh"`
	TotalCarbonKg  float64 `json:"total_carbon_kg"`
}

func (d Delta) isZero() bool {
	return d.Calculations == 0 &&
		d.Batches == 0 &&
		d.TotalEnergyKWh == 0 &&
		d.TotalCarbonKg == 0
}

// Event is emitted for every calculation, batch and config reload.
type Event struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	Snapshot      Snapshot  `json:"snapshot"`
	Delta         Delta     `json:"delta"`
	CalculationID string    `json:"calculation_id,omitempty"`
	BatchID       string    `json:"batch_id,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Calculations:   curr.Calculations - prev.Calculations,
		Batches:        curr.Batches - prev.Batches,
		TotalEnergyKWh: curr.TotalEnergyKWh - prev.TotalEnergyKWh,
		TotalCarbonKg:  curr.TotalCarbonKg - prev.TotalCarbonKg,
	}
}

func (s Snapshot) clone() Snapshot {
	costs := make(map[string]float64, len(s.CostByCurrency))
	for k, v := range s.CostByCurrency {
		costs[k] = v
	}
	s.CostByCurrency = costs
	return s
}

// record folds calcs into the running totals and publishes one event.
// A batch event is published even when every row failed.
func (s *Server) record(typ string, calcs []model.Calculation, batchID string) {
	now := s.now()

	s.mu.Lock()
	prev := s.snapshot.clone()
	next := s.snapshot.clone()
	next.At = now
	for _, c := range calcs {
		next.Calculations++
		next.TotalEnergyKWh += c.TotalEnergyKWh
		next.TotalCarbonKg += c.TotalCarbonKg
		if c.Cost != nil {
			next.CostByCurrency[c.Cost.Currency] += c.Cost.EnergyCost
		}
	}
	if typ == EventBatch {
		next.Batches++
	}
	s.snapshot = next

	delta := diffSnapshots(prev, next)
	if delta.isZero() {
		s.mu.Unlock()
		return
	}
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: now,
		Snapshot:  next.clone(),
		Delta:     delta,
		BatchID:   batchID,
	}
	if typ == EventCalculation && len(calcs) == 1 {
		ev.CalculationID = calcs[0].ID
	}
	s.mu.Unlock()

	s.publishEvent(ev)
}

// notify publishes an event that carries no totals change.
func (s *Server) notify(typ, message string) {
	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: s.now(),
		Snapshot:  s.snapshot.clone(),
		Message:   message,
	}
	s.mu.Unlock()

	s.publishEvent(ev)
}

func (s *Server) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	s.mu.RLock()
	current := Event{
		Type:      EventSnapshot,
		Timestamp: s.now(),
		Snapshot:  s.snapshot.clone(),
	}
	s.mu.RUnlock()
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Server) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	s.metrics.subscribers.Set(float64(len(s.subs)))
	return id
}

func (s *Server) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.subscribers.Set(float64(len(s.subs)))
}
