// Package httpapi exposes the recording manager over a local HTTP
// surface. All error responses are structured JSON; the router is the
// single point where manager and codec errors become status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tonearm/tonearm/pkg/library"
	"github.com/tonearm/tonearm/pkg/wav"
)

// Server routes the /v1 surface onto a Library.
type Server struct {
	lib *library.Library
	log *slog.Logger
	mux *http.ServeMux
}

// New builds the router. logger may be nil.
func New(lib *library.Library, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{lib: lib, log: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/v1/recordings/{$}", s.handleList)
	s.mux.HandleFunc("/v1/recordings/{id}", s.handleRecording)
	s.mux.HandleFunc("/v1/recordings/{id}/meta", s.handleMetadata)
	s.mux.HandleFunc("/v1/search", s.handleSearch)
	s.mux.HandleFunc("/", s.handleUnknown)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("request",
		"id", uuid.NewString(),
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// validID reports whether id fits the identifier charset: hex digits and
// hyphens, at least one character.
func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ids, err := s.lib.ListIDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getAudio(w, r)
	case http.MethodPost, http.MethodPut:
		s.putAudio(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) putAudio(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Decode before validating the id: a malformed payload is a server
	// error no matter what it was addressed to.
	samples, rate, err := wav.Decode(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := r.PathValue("id")
	if !validID(id) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err := s.lib.PutAudio(r.Context(), id, samples, rate); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getAudio(w http.ResponseWriter, r *http.Request) {
	// An id outside the charset can never have been written, so it is
	// simply absent. It must not reach the store: key encoding rejects
	// ids containing its separator.
	id := r.PathValue("id")
	if !validID(id) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	samples, err := s.lib.GetAudio(r.Context(), id)
	if errors.Is(err, library.ErrRecordingNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(wav.Encode(samples, library.ReferenceRate))
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		if !validID(id) {
			writeError(w, http.StatusNotFound, "Metadata not found")
			return
		}
		md, err := s.lib.GetMetadata(r.Context(), id)
		if errors.Is(err, library.ErrMetadataNotFound) {
			writeError(w, http.StatusNotFound, "Metadata not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, md)

	case http.MethodPost:
		if !validID(id) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		var md library.Metadata
		if err := json.NewDecoder(r.Body).Decode(&md); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.lib.PutMetadata(r.Context(), id, md); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Echo what was actually stored.
		stored, err := s.lib.GetMetadata(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stored)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// searchResult is one element of the search response. queryEnd is
// derived: the query span is assumed to cover the same duration as the
// matched span.
type searchResult struct {
	Score      float32 `json:"score"`
	UUID       string  `json:"uuid"`
	KeyStart   float32 `json:"keyStart"`
	KeyEnd     float32 `json:"keyEnd"`
	QueryStart float32 `json:"queryStart"`
	QueryEnd   float32 `json:"queryEnd"`
	QueryURL   string  `json:"queryUrl"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	samples, rate, err := wav.Decode(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	matches, err := s.lib.Search(r.Context(), samples, rate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		results[i] = searchResult{
			Score:      m.Score,
			UUID:       m.ID,
			KeyStart:   m.KeyStart,
			KeyEnd:     m.KeyEnd,
			QueryStart: m.QueryStart,
			QueryEnd:   m.QueryStart + (m.KeyEnd - m.KeyStart),
			QueryURL:   fmt.Sprintf("/v1/recordings/%s#t=%v,%v", m.ID, m.KeyStart, m.KeyEnd),
		}
	}
	writeJSON(w, http.StatusOK, results)
}
