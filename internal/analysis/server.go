package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const maxRequestBytes = 1 << 20

// RequestObserver is told about every API request the server answers.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Server exposes a Worker over HTTP.
type Server struct {
	worker   Worker
	log      logrus.FieldLogger
	observer RequestObserver
	mux      *http.ServeMux
}

// NewServer builds the HTTP handler for w. observer may be nil.
func NewServer(w Worker, log logrus.FieldLogger, observer RequestObserver) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		worker:   w,
		log:      log.WithField("component", "worker-server"),
		observer: observer,
		mux:      http.NewServeMux(),
	}
	s.mux.Handle("GET /api/snapshots", s.observe("/api/snapshots", s.handleSnapshots))
	s.mux.Handle("POST /api/census-diff", s.observe("/api/census-diff", s.handleCensusDiff))
	return s
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) observe(route string, next http.HandlerFunc) http.Handler {
	if s.observer == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.observer.ObserveRequest(route, rec.status, time.Since(start))
	})
}

// Handle mounts an extra handler, such as metrics, on the server's mux.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.worker.ListSnapshots(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, SnapshotListResponse{Snapshots: snaps})
}

func (s *Server) handleCensusDiff(w http.ResponseWriter, r *http.Request) {
	var req CensusDiffRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if !req.Breakdown.Breakdown.Valid() {
		s.fail(w, r, http.StatusBadRequest, errors.New("unknown breakdown "+string(req.Breakdown.Breakdown)))
		return
	}

	start := time.Now()
	delta, err := s.worker.TakeCensusDiff(r.Context(), req.PathA, req.PathB, req.Breakdown, req.Options)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrSnapshotNotFound) {
			status = http.StatusNotFound
		}
		s.fail(w, r, status, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"request_id": r.Header.Get(requestIDHeader),
		"elapsed":    time.Since(start),
	}).Info("census diff served")
	s.respond(w, delta)
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Warn("encode response failed")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": r.Header.Get(requestIDHeader),
	}).Warn("worker request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
