package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/bcrypt"

	"github.com/logharbor/logharbor/internal/apps"
	"github.com/logharbor/logharbor/internal/markers"
	"github.com/logharbor/logharbor/internal/query"
	"github.com/logharbor/logharbor/internal/sources"
	"github.com/logharbor/logharbor/internal/store"
)

const (
	defaultQueryLimit = 100
	sessionTTL        = 24 * time.Hour
)

// SystemStats is the /api/stats payload: store counters plus the number of
// currently attached forwarders.
type SystemStats struct {
	store.Stats
	Sources int `json:"sources"`
}

// APIServer serves the dashboard read API over the in-memory log store.
type APIServer struct {
	logStore    *store.LogStore
	queryEngine *query.Engine
	sourcesReg  *sources.Registry
	markerStore *markers.Store
	appRegistry *apps.Registry
	webDir      string // Directory for static web files

	adminHash  []byte // bcrypt hash of the admin password; empty disables auth
	sessions   map[string]time.Time
	sessionsMu sync.RWMutex

	srv *http.Server
}

// NewAPIServer wires the read API. An empty adminPassword leaves every route
// open, matching the default standalone deployment.
func NewAPIServer(ls *store.LogStore, qe *query.Engine, reg *sources.Registry,
	ms *markers.Store, ar *apps.Registry, webDir, adminPassword string) *APIServer {

	s := &APIServer{
		logStore:    ls,
		queryEngine: qe,
		sourcesReg:  reg,
		markerStore: ms,
		appRegistry: ar,
		webDir:      webDir,
		sessions:    make(map[string]time.Time),
	}
	if adminPassword != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		s.adminHash = hash
	}
	return s
}

// Start runs the HTTP server.
func (s *APIServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Routes builds the route table.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	// Always open, even with auth enabled
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/login", s.handleLogin)

	mux.Handle("/api/logs", s.AuthMiddleware(http.HandlerFunc(s.handleLogs)))
	mux.Handle("/api/stats", s.AuthMiddleware(http.HandlerFunc(s.handleStats)))
	mux.Handle("/api/sources", s.AuthMiddleware(http.HandlerFunc(s.handleSources)))
	mux.Handle("/api/export", s.AuthMiddleware(http.HandlerFunc(s.handleExport)))
	mux.Handle("/api/data", s.AuthMiddleware(http.HandlerFunc(s.handleData)))

	mux.Handle("/api/markers", s.AuthMiddleware(http.HandlerFunc(s.handleMarkers)))
	mux.Handle("/api/markers/", s.AuthMiddleware(http.HandlerFunc(s.handleMarkerItem)))

	mux.Handle("/api/apps", s.AuthMiddleware(http.HandlerFunc(s.handleApps)))
	mux.Handle("/api/apps/", s.AuthMiddleware(http.HandlerFunc(s.handleAppItem)))

	// Static file serving for the dashboard
	if s.webDir != "" {
		fs := http.FileServer(http.Dir(s.webDir))
		mux.Handle("/", fs)
	}

	return mux
}

// Shutdown gracefully shuts down the server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// AuthMiddleware checks for a valid session token. It passes everything
// through when no admin password is configured.
func (s *APIServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminHash) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="LogHarbor"`)
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.RLock()
		expiry, exists := s.sessions[token]
		s.sessionsMu.RUnlock()

		if exists {
			if time.Now().Before(expiry) {
				next.ServeHTTP(w, r)
				return
			}
			s.sessionsMu.Lock()
			delete(s.sessions, token)
			s.sessionsMu.Unlock()
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="LogHarbor"`)
		http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
	})
}

// handleStatus reports liveness to the dashboard.
func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "running",
		"message": "SIEM system operational",
	})
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(s.adminHash) == 0 {
		http.Error(w, "Authentication is not enabled", http.StatusBadRequest)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)); err != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	b := make([]byte, 16)
	rand.Read(b)
	token := hex.EncodeToString(b)

	s.sessionsMu.Lock()
	s.sessions[token] = time.Now().Add(sessionTTL)
	s.sessionsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// queryParams reads the q/limit pair shared by the logs and export routes.
func queryParams(r *http.Request, defaultLimit int) (filter string, limit int, err error) {
	filter = r.URL.Query().Get("q")
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return "", 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	return filter, limit, nil
}

// handleLogs answers dashboard searches.
func (s *APIServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, limit, err := queryParams(r, defaultQueryLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.queryEngine.Run(filter, limit)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// handleStats reports ingest counters.
func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := SystemStats{
		Stats:   s.logStore.Stats(),
		Sources: s.sourcesReg.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// handleSources lists the forwarder connections currently attached.
func (s *APIServer) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.sourcesReg.List()); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// handleExport streams the current query result as zstd-compressed NDJSON.
func (s *APIServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Default to everything retained, unlike the paged logs route.
	filter, limit, err := queryParams(r, s.logStore.Len())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.queryEngine.Run(filter, limit)

	filename := fmt.Sprintf("logharbor-export-%s.ndjson.zst", uuid.NewString())
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	enc, err := zstd.NewWriter(w)
	if err != nil {
		log.Printf("[API] zstd writer: %v", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	newline := []byte{'\n'}
	for _, rec := range res.Records {
		if _, err := enc.Write(rec.JSON()); err != nil {
			log.Printf("[API] Export write: %v", err)
			enc.Close()
			return
		}
		if _, err := enc.Write(newline); err != nil {
			log.Printf("[API] Export write: %v", err)
			enc.Close()
			return
		}
	}
	if err := enc.Close(); err != nil {
		log.Printf("[API] Export close: %v", err)
	}
}

// handleData is the legacy echo endpoint kept for dashboard compatibility.
func (s *APIServer) handleData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ready",
			"message": "Send POST request with data",
		})

	case http.MethodPost:
		var payload any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "success",
			"received": payload,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *APIServer) handleMarkers(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"markers": s.markerStore.List()}); err != nil {
			log.Printf("[API] JSON encode error: %v", err)
		}
		return
	}

	if r.Method == http.MethodPost {
		req, ok := decodeMarker(w, r)
		if !ok {
			return
		}
		m, err := s.markerStore.Add(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "marker": m})
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func (s *APIServer) handleMarkerItem(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		http.Error(w, "Invalid marker id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		req, ok := decodeMarker(w, r)
		if !ok {
			return
		}
		m, err := s.markerStore.Update(id, req)
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Marker not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "marker": m})

	case http.MethodDelete:
		err := s.markerStore.Delete(id)
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Marker not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeMarker reads a marker payload, rejecting bodies without lat/lng.
func decodeMarker(w http.ResponseWriter, r *http.Request) (markers.Marker, bool) {
	var req struct {
		ID         int            `json:"id"`
		Lat        *float64       `json:"lat"`
		Lng        *float64       `json:"lng"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return markers.Marker{}, false
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return markers.Marker{}, false
	}
	return markers.Marker{
		ID:         req.ID,
		Lat:        *req.Lat,
		Lng:        *req.Lng,
		Properties: req.Properties,
	}, true
}

// handleApps lists the registered dashboard apps.
func (s *APIServer) handleApps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.appRegistry.List()); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// handleAppItem renders one app's fragment.
func (s *APIServer) handleAppItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	app, ok := s.appRegistry.Get(parts[len(parts)-1])
	if !ok {
		http.Error(w, "App not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(app.Render()); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}
