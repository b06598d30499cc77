package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/room"
	"github.com/wricardo/tictactoe-relay/game/service"
	"github.com/wricardo/tictactoe-relay/transport/websocket"
)

// Server represents the HTTP surface: WebSocket relay, REST inspection and static assets
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
	logger    *zap.Logger
}

// NewServer creates a new API server. An empty staticDir disables asset serving.
func NewServer(gameService service.GameService, hub *websocket.Hub, staticDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service:   gameService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Room inspection and explicit removal
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleCloseRoom).Methods("DELETE")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static client for every path no route claims
	if s.staticDir != "" {
		s.router.NotFoundHandler = http.FileServer(http.Dir(s.staticDir))
	}
}

// Handle mounts an extra handler on the router, e.g. the MCP endpoint.
func (s *Server) Handle(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrInvalidRoomID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" {
		filtered := make([]*service.RoomInfo, 0, len(rooms))
		for _, info := range rooms {
			if info.Status == status {
				filtered = append(filtered, info)
			}
		}
		rooms = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	info, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	if err := s.service.CloseRoom(r.Context(), roomID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Room %s closed", roomID),
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket relay unavailable", http.StatusServiceUnavailable)
		return
	}
	s.hub.ServeWS(w, r, s.service)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	connections := 0
	if s.hub != nil {
		connections = s.hub.Count()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"rooms":       len(rooms),
		"connections": connections,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs routed requests. Upgrades bypass the recorder so the
// connection stays hijackable.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
