// Package server exposes a leapstore database over the SPARQL 1.1 Protocol
// HTTP binding. Grounded on the teacher's internal/server/server.go: same
// mux layout, timeouts, and content negotiation, generalized from the
// teacher's badger-backed TripleStore/executor/optimizer trio to a single
// engine.DB.
package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trieql/leapstore/internal/engine"
)

// Server serves one database's /sparql endpoint.
type Server struct {
	db     *engine.DB
	addr   string
	logger *zap.Logger
}

// New returns a Server for db, listening on addr once Start is called.
func New(db *engine.DB, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{db: db, addr: addr, logger: logger}
}

// Start blocks serving the SPARQL endpoint until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	mux.HandleFunc("/", s.handleRoot)

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting SPARQL endpoint", zap.String("addr", s.addr), zap.String("db", s.db.Name()))
	return httpServer.ListenAndServe()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	info := s.db.Info()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "leapstore SPARQL endpoint: %s\ndatabase: %s\ntriples: %d\nentities: %d\npredicates: %d\nPOST/GET /sparql?query=...\n",
		r.Host, s.db.Name(), info.TripleCount, info.EntityCount, info.PredicateCount)
}

// handleSPARQL implements the GET/POST query binding of the SPARQL 1.1
// Protocol (https://www.w3.org/TR/sparql11-protocol/).
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	queryString, err := s.extractQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if queryString == "" {
		s.writeError(w, http.StatusBadRequest, "missing 'query' parameter")
		return
	}

	result, err := s.db.Query(queryString)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("query error: %v", err))
		return
	}

	format := negotiateFormat(r.Header.Get("Accept"))
	data, contentType, err := formatResult(result, format)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("formatting error: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) extractQuery(r *http.Request) (string, error) {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query().Get("query"), nil
	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(contentType, "application/sparql-query"):
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", fmt.Errorf("reading request body: %w", err)
			}
			return string(body), nil
		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				return "", fmt.Errorf("parsing form: %w", err)
			}
			return r.FormValue("query"), nil
		default:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", fmt.Errorf("reading request body: %w", err)
			}
			return string(body), nil
		}
	default:
		return "", fmt.Errorf("method not allowed: %s", r.Method)
	}
}

func negotiateFormat(acceptHeader string) string {
	accept := strings.ToLower(acceptHeader)
	if strings.Contains(accept, "text/csv") {
		return "csv"
	}
	return "json"
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.logger.Warn("sparql request failed", zap.Int("status", statusCode), zap.String("message", message))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":%d,"message":%q}}`, statusCode, message)))
}
