// Package server is the HTTP/WebSocket transport in front of the rooms.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"arena/internal/game"
	"arena/internal/room"
)

// Server is the HTTP server.
type Server struct {
	mux     *http.ServeMux
	manager *room.Manager
	log     zerolog.Logger
}

// New creates a server with all routes.
func New(manager *room.Manager, logger zerolog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		manager: manager,
		log:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

type createRoomRequest struct {
	PlayerNum int `json:"playerNum"`
	OffsetSec int `json:"offsetSec"`
	PhaseSec  int `json:"phaseSec"`
	MaxRounds int `json:"maxRounds"`
}

type createRoomResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	cfg := game.DefaultConfig()
	if r.ContentLength != 0 {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.PlayerNum != 0 {
			cfg.PlayerNum = req.PlayerNum
		}
		if req.OffsetSec != 0 {
			cfg.OffsetSec = req.OffsetSec
		}
		if req.PhaseSec != 0 {
			cfg.PhaseSec = req.PhaseSec
		}
		if req.MaxRounds != 0 {
			cfg.MaxRounds = req.MaxRounds
		}
	}

	rm, err := s.manager.Create(cfg)
	if err != nil {
		s.log.Error().Err(err).Msg("create room")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create room"})
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{ID: rm.ID})
}

type roomDetail struct {
	room.Info
	Players []game.SlotView `json:"players"`
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rm, err := s.manager.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	var detail roomDetail
	rm.Locked(func(g *game.Session) {
		occupied := 0
		for _, slot := range g.Slots {
			if slot.Occupy != game.Empty {
				occupied++
			}
		}
		detail = roomDetail{
			Info: room.Info{
				ID:        g.ID,
				PlayerNum: g.Config.PlayerNum,
				Occupied:  occupied,
				Phase:     g.Phase,
				InCombat:  g.InCombat,
			},
			Players: g.View(),
		}
	})
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
