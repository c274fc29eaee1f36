// Package web provides the HTTP surface of the shot-stopper daemon:
// a human status page, machine-readable status, the parameter API, and
// config download.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"

	"github.com/sweeney/shot-stopper/internal/config"
	"github.com/sweeney/shot-stopper/internal/mailbox"
	"github.com/sweeney/shot-stopper/internal/status"
)

// Server serves the status page and parameter API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	cfg        *config.Store
	box        *mailbox.Box
}

// New creates a Server reading state from tracker and parameters from
// cfg. Parameter writes for live brew fields go through box so the
// control loop applies them; everything else is saved directly.
func New(addr string, tracker *status.Tracker, cfg *config.Store, box *mailbox.Box) *Server {
	s := &Server{tracker: tracker, cfg: cfg, box: box}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/parameters", s.handleParameters)
	mux.HandleFunc("/download/config", s.handleDownload)
	mux.HandleFunc("/upload/config", s.handleUpload)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.cfg.Document()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="config.json"`)
	w.Write(doc)
}

// handleUpload restores a previously downloaded config document. The
// whole document is validated before any key is applied, so a bad
// upload never half-applies.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	decoded := make(map[string]any, len(doc))
	for key, raw := range doc {
		if _, ok := config.Definition(key); !ok {
			http.Error(w, "unknown parameter "+key, http.StatusBadRequest)
			return
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			http.Error(w, "bad value for "+key+": "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := config.Validate(key, v); err != nil {
			http.Error(w, key+": "+err.Error(), http.StatusBadRequest)
			return
		}
		decoded[key] = v
	}

	// Same split as single-parameter writes: live brew fields go
	// through the mailbox, the rest is saved directly.
	for key, v := range decoded {
		if err := mailbox.Route(s.box, key, string(doc[key])); err == nil {
			continue
		}
		if err := s.cfg.Set(key, v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := s.cfg.Save(); err != nil {
		log.Printf("web: save after config upload: %v", err)
		http.Error(w, "saved in memory only: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listParameters(w)
	case http.MethodPost:
		s.setParameter(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Parameter is one entry of the GET /parameters listing.
type Parameter struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Value   any     `json:"value"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Default any     `json:"default"`
}

func (s *Server) listParameters(w http.ResponseWriter) {
	var params []Parameter
	for _, key := range config.Keys() {
		def, _ := config.Definition(key)
		value, _ := s.cfg.Value(key)
		params = append(params, Parameter{
			ID:      key,
			Type:    string(def.Kind),
			Value:   value,
			Min:     def.Min,
			Max:     def.Max,
			Default: def.Default,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	data, _ := json.MarshalIndent(params, "", "  ")
	w.Write(data)
}

// setRequest is the POST /parameters body.
type setRequest struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) setParameter(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, ok := config.Definition(req.ID); !ok {
		http.Error(w, "unknown parameter "+req.ID, http.StatusNotFound)
		return
	}

	var decoded any
	if err := json.Unmarshal(req.Value, &decoded); err != nil {
		http.Error(w, "bad value: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Bounds check up front so a remote write is never queued only to
	// be rejected at drain time.
	if err := config.Validate(req.ID, decoded); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Live brew fields go through the mailbox: the control loop owns
	// their runtime state and persists after applying.
	if err := mailbox.Route(s.box, req.ID, string(req.Value)); err == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Everything else (log level, pins, delays read at startup) is
	// validated and saved directly; it takes effect on next start.
	if err := s.cfg.Set(req.ID, decoded); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Save(); err != nil {
		log.Printf("web: save after setting %s: %v", req.ID, err)
		http.Error(w, "saved in memory only: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
