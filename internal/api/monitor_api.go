// internal/api/monitor_api.go

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"folderMon/internal/monitor"
)

// MonitorAPI provides HTTP API for the monitor
type MonitorAPI struct {
	monitor  *monitor.Monitor
	router   *mux.Router
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[chan monitor.ChangeEvent]struct{}
}

// NewMonitorAPI creates a new monitor API server
func NewMonitorAPI(m *monitor.Monitor) *MonitorAPI {
	api := &MonitorAPI{
		monitor: m,
		router:  mux.NewRouter(),
		upgrader: websocket.Upgrader{
			// Allow WebSocket connections from any origin since HTTP
			// requests are also CORS enabled.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[chan monitor.ChangeEvent]struct{}),
	}

	api.setupRoutes()
	api.router.Use(corsMiddleware)
	api.monitor.SetEventPublisher(api.PublishEvent)
	return api
}

func (api *MonitorAPI) setupRoutes() {
	api.router.HandleFunc("/api/v1/status", api.handleStatus).Methods("GET")
	api.router.HandleFunc("/api/v1/stats", api.handleStats).Methods("GET")
	api.router.HandleFunc("/api/v1/files", api.handleListFiles).Methods("GET")
	api.router.HandleFunc("/api/v1/file/{path:.*}", api.handleFileInfo).Methods("GET")
	api.router.HandleFunc("/api/v1/commit", api.handleCommit).Methods("POST")
	api.router.HandleFunc("/api/v1/rescan", api.handleRescan).Methods("POST")
	api.router.HandleFunc("/ws/events", api.handleWebSocket)
}

// Handler returns the routed handler, mainly for tests.
func (api *MonitorAPI) Handler() http.Handler {
	return api.router
}

// handleStatus returns the monitor status
func (api *MonitorAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":    api.monitor.IsRunning(),
		"start_time": api.monitor.StartTime(),
		"files":      api.monitor.Registry().Len(),
	})
}

// handleStats returns monitoring statistics
func (api *MonitorAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.monitor.GetStats())
}

// handleListFiles returns list of monitored files
func (api *MonitorAPI) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files := api.monitor.Files()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(files),
		"files": files,
	})
}

// handleFileInfo returns information about a specific file
func (api *MonitorAPI) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	filePath := mux.Vars(r)["path"]

	rec, ok := api.monitor.Registry().Lookup(filePath)
	if !ok {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	report, err := monitor.RenderInfo(r.Context(), rec)
	if err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file": rec,
		"info": report,
	})
}

// handleCommit snapshots all files, or one when a path is given.
func (api *MonitorAPI) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	// An empty body means commit everything.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Path != "" {
		if err := api.monitor.CommitFile(req.Path); err != nil {
			if errors.Is(err, monitor.ErrNotFound) {
				http.Error(w, "File not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"committed": 1, "timestamp": time.Now()})
		return
	}

	n := api.monitor.Commit()
	writeJSON(w, http.StatusOK, map[string]interface{}{"committed": n, "timestamp": time.Now()})
}

// handleRescan runs a reconciliation pass now and returns its events.
func (api *MonitorAPI) handleRescan(w http.ResponseWriter, r *http.Request) {
	events, err := api.monitor.RunPass()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []monitor.ChangeEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":    events,
		"timestamp": time.Now(),
	})
}

// handleWebSocket streams change events to the client as JSON.
func (api *MonitorAPI) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := make(chan monitor.ChangeEvent, 100)
	api.clientsMu.Lock()
	api.clients[events] = struct{}{}
	api.clientsMu.Unlock()
	defer func() {
		api.clientsMu.Lock()
		delete(api.clients, events)
		api.clientsMu.Unlock()
	}()

	welcome := map[string]interface{}{
		"type":      "connected",
		"timestamp": time.Now(),
	}
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// PublishEvent fans an event out to every connected WebSocket client. Slow
// clients lose events rather than block a reconciliation pass.
func (api *MonitorAPI) PublishEvent(event monitor.ChangeEvent) {
	api.clientsMu.Lock()
	defer api.clientsMu.Unlock()

	for ch := range api.clients {
		select {
		case ch <- event:
		default:
			log.Printf("WebSocket client too slow, dropping event for %s", event.Path)
		}
	}
}

// Serve starts the API server
func (api *MonitorAPI) Serve(addr string) error {
	return http.ListenAndServe(addr, api.router)
}

// ServeWithServer starts the API server with a custom http.Server
func (api *MonitorAPI) ServeWithServer(server *http.Server) error {
	server.Handler = api.router
	return server.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware allows the API to be called from a browser on another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
