// Package fingerprint is the acoustic index: it condenses audio into
// sequences of quantized chroma features and answers similarity queries
// against the registered feature sequences with a time-warping beam
// search. Lower match scores are better.
//
// The index lives entirely in memory and is never persisted; callers
// rebuild it from durable storage on startup. A Session is safe for
// concurrent use.
package fingerprint

import (
	"fmt"
	"sort"
	"sync"
)

// Match is a single result from Session.Search. Times are in seconds:
// KeyStart/KeyEnd locate the matched stretch within the registered
// recording, QueryStart locates where the alignment began in the query.
type Match struct {
	ID         string
	Score      float32
	KeyStart   float32
	KeyEnd     float32
	QueryStart float32
}

// Session holds the registered feature sequences and runs searches over
// them.
type Session struct {
	cfg Config
	ext *extractor

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a Session with the given config.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:     cfg,
		ext:     newExtractor(cfg),
		entries: make(map[string]*entry),
	}, nil
}

// SampleRate returns the fixed internal rate the session operates at.
// All samples passed to Register and Search must already be at this rate.
func (s *Session) SampleRate() int {
	return s.cfg.SampleRate
}

// Register fingerprints a payload and stores it under id, replacing any
// previous registration. It fails on malformed payloads: audio shorter
// than one analysis window cannot be fingerprinted.
func (s *Session) Register(id string, samples []float32) error {
	if len(samples) < s.cfg.WindowSize {
		return fmt.Errorf("fingerprint: payload too short: %d samples, need at least %d",
			len(samples), s.cfg.WindowSize)
	}

	features := s.ext.features(samples)

	s.mu.Lock()
	s.entries[id] = &entry{id: id, features: features}
	s.mu.Unlock()
	return nil
}

// Unregister removes a registration. Removing an absent id is a no-op.
func (s *Session) Unregister(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len returns the number of registered recordings.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Search fingerprints the query payload and returns matches ordered
// best-first (ascending score). A query shorter than one analysis window
// matches nothing.
func (s *Session) Search(samples []float32) []Match {
	features := s.ext.features(samples)
	if len(features) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Snapshot entries sorted by id so searches are deterministic for a
	// given index state.
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	q := newQuery(s.cfg, entries)
	for _, f := range features {
		q.update(f)
	}

	dt := s.cfg.strideDt()
	results := q.finalize()
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:         r.id,
			Score:      r.score,
			KeyStart:   float32(r.start) * dt,
			KeyEnd:     float32(r.end) * dt,
			QueryStart: float32(r.queryStart) * dt,
		}
	}
	return matches
}
