// Package params provides an in-memory store for runtime-tunable scoring
// parameters with JSON persistence and pub/sub for SSE push.
package params

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"taipulse/internal/rank"
	"taipulse/internal/sentiment"
)

// Event is the wire format for SSE messages.
type Event struct {
	Type  string             `json:"type"`            // "snapshot", "set", "delete"
	Name  string             `json:"name,omitempty"`  // set/delete only
	Value float64            `json:"value,omitempty"` // set only
	Data  map[string]float64 `json:"data,omitempty"`  // snapshot only
}

// Defaults returns the seed values: fusion weights, the composite score
// cutoff and the sentiment scorer tuning.
func Defaults() map[string]float64 {
	w := rank.DefaultWeights()
	sc := sentiment.DefaultConfig()
	return map[string]float64{
		"newsWeight":         w.News,
		"volumeWeight":       w.Volume,
		"momentumWeight":     w.Momentum,
		"minScore":           rank.DefaultMinScore,
		"sentimentDamping":   sc.Damping,
		"sentimentDominance": sc.Dominance,
		"sentimentFloor":     sc.Floor,
	}
}

// Store holds scoring parameters in memory with JSON persistence and pub/sub.
// Values read through Weights and MinScore fall back to the defaults when a
// parameter has been deleted.
type Store struct {
	mu       sync.RWMutex
	params   map[string]float64
	filePath string
	log      *slog.Logger

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewStore creates a Store seeded from Defaults, then overlays persisted
// state from filePath.
func NewStore(filePath string, log *slog.Logger) *Store {
	s := &Store{
		params:   Defaults(),
		filePath: filePath,
		log:      log,
		subs:     make(map[int]chan Event),
	}
	s.load()
	return s
}

// Snapshot returns a copy of all parameters.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// Get returns one parameter's stored value.
func (s *Store) Get(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.params[name]
	return v, ok
}

// Set stores a value, persists to disk, and broadcasts to subscribers.
func (s *Store) Set(name string, value float64) {
	s.mu.Lock()
	s.params[name] = value
	s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "set", Name: name, Value: value})
}

// Delete removes an override, persists to disk, and broadcasts to
// subscribers. Reads through Weights and MinScore revert to the default.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	delete(s.params, name)
	s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "delete", Name: name})
}

// Weights assembles the fusion weights from the current parameters.
func (s *Store) Weights() rank.Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rank.Weights{
		News:     s.value("newsWeight"),
		Volume:   s.value("volumeWeight"),
		Momentum: s.value("momentumWeight"),
	}
}

// MinScore returns the composite cutoff from the current parameters.
func (s *Store) MinScore() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value("minScore")
}

// SentimentConfig assembles the scorer tuning from the current parameters.
// The remaining Config fields keep their defaults.
func (s *Store) SentimentConfig() sentiment.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := sentiment.DefaultConfig()
	cfg.Damping = s.value("sentimentDamping")
	cfg.Dominance = s.value("sentimentDominance")
	cfg.Floor = s.value("sentimentFloor")
	return cfg
}

// value reads a parameter with default fallback. Must be called with mu held.
func (s *Store) value(name string) float64 {
	if v, ok := s.params[name]; ok {
		return v
	}
	return Defaults()[name]
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; slow consumers will have events dropped.
func (s *Store) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// broadcast sends an event to all subscribers non-blocking (drop on full).
func (s *Store) broadcast(e Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer — drop event.
		}
	}
}

// load overlays the JSON file onto the seeded defaults.
func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return // File doesn't exist yet — start from defaults.
	}
	var loaded map[string]float64
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("loading params file", "error", err)
		return
	}
	for k, v := range loaded {
		s.params[k] = v
	}
	s.log.Info("loaded scoring params", "count", len(loaded))
}

// flush writes the in-memory state to disk. Must be called with mu held.
func (s *Store) flush() {
	data, err := json.Marshal(s.params)
	if err != nil {
		s.log.Error("marshalling params", "error", err)
		return
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		s.log.Error("writing params file", "error", err)
	}
}
