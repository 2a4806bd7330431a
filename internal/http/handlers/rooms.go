package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/middleware"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/social"
	"github.com/buckles/server/internal/trace"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RoomsHandler exposes chat rooms and membership.
type RoomsHandler struct {
	rooms    *social.Rooms
	reporter *Reporter
}

// NewRoomsHandler creates a new rooms handler
func NewRoomsHandler(rooms *social.Rooms, reporter *Reporter) *RoomsHandler {
	return &RoomsHandler{rooms: rooms, reporter: reporter}
}

// roomResponse is a chat room in API responses
type roomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	CreatedAt string `json:"createdAt"`
}

func toRoomResponse(room model.ChatRoom) roomResponse {
	return roomResponse{
		ID:        room.ID.String(),
		Name:      room.Name,
		Owner:     room.Owner,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}

// createRoomBody is the request body for POST /rooms
type createRoomBody struct {
	Name string `json:"name"`
}

// HandleCreateRoom handles POST /rooms
func (h *RoomsHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	var req createRoomBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "name is required")
		return
	}

	room, created, err := h.rooms.CreateRoom(r.Context(), txID, req.Name, me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	if !created {
		apiresponse.WriteError(w, txID, apiresponse.CodeConflict, "room name already taken")
		return
	}
	apiresponse.WriteData(w, txID, toRoomResponse(room))
}

// HandleListRooms handles GET /rooms
func (h *RoomsHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)

	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomResponse(room))
	}
	apiresponse.WriteData(w, txID, out)
}

func (h *RoomsHandler) roomID(w http.ResponseWriter, r *http.Request, txID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid room id")
		return uuid.Nil, false
	}
	return id, true
}

// HandleJoinRoom handles POST /rooms/{id}/join
func (h *RoomsHandler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}
	roomID, ok := h.roomID(w, r, txID)
	if !ok {
		return
	}

	if err := h.rooms.Join(r.Context(), roomID, me); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "room not found")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, true)
}

// HandleLeaveRoom handles POST /rooms/{id}/leave
func (h *RoomsHandler) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}
	roomID, ok := h.roomID(w, r, txID)
	if !ok {
		return
	}

	if err := h.rooms.Leave(r.Context(), roomID, me); err != nil {
		if errors.Is(err, social.ErrNotMember) {
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "not a member of this room")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, true)
}

// HandleRoomMembers handles GET /rooms/{id}/members
func (h *RoomsHandler) HandleRoomMembers(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	roomID, ok := h.roomID(w, r, txID)
	if !ok {
		return
	}

	members, err := h.rooms.Members(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "room not found")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}
	if members == nil {
		members = []string{}
	}
	apiresponse.WriteData(w, txID, members)
}
