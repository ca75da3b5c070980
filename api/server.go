package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/service"
	"github.com/wricardo/chess-rooms/game/session"
	"github.com/wricardo/chess-rooms/transport/websocket"
)

// Server represents the HTTP server: REST inspection, preset management and the websocket endpoint
type Server struct {
	service service.RoomService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(roomService service.RoomService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: roomService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// Router exposes the router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Rooms
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}/moves", s.handleLegalMoves).Methods("GET")

	// Users and presets
	api.HandleFunc("/users", s.handleListUsers).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/refresh", s.handleRefreshConfigs).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	room, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	from, err := parseSquare(r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	targets, err := s.service.LegalMoves(r.Context(), roomID, from)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	squares := make([]string, 0, len(targets))
	for _, idx := range targets {
		name, _ := engine.IndexToSquare(idx)
		squares = append(squares, name)
	}
	square, _ := engine.IndexToSquare(from)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room":    roomID,
		"from":    from,
		"square":  square,
		"targets": targets,
		"squares": squares,
	})
}

// Users and Configuration Handlers

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(users),
		"users": users,
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		FEN         string `json:"fen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "Config id is required")
		return
	}

	info, err := s.service.SaveConfig(r.Context(), req.ID, &config.Preset{
		Name:        req.Name,
		Description: req.Description,
		FEN:         req.FEN,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRefreshConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.RefreshConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket unavailable", http.StatusServiceUnavailable)
		return
	}
	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connections := 0
	if s.hub != nil {
		connections = s.hub.Count()
	}
	rooms, _ := s.service.ListRooms(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"rooms":       len(rooms),
		"connections": connections,
	})
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, engine.ErrInvalidSquare), errors.Is(err, session.ErrInvalidRoomID),
		errors.Is(err, config.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, config.ErrNoConfigDir):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseSquare accepts a board index ("52") or an algebraic square ("e2").
func parseSquare(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("from parameter required")
	}
	if idx, err := strconv.Atoi(raw); err == nil {
		if _, err := engine.IndexToSquare(idx); err != nil {
			return 0, err
		}
		return idx, nil
	}
	return engine.SquareToIndex(raw)
}
