package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/friends"
	"github.com/buckles/server/internal/middleware"
	"github.com/buckles/server/internal/trace"
	"github.com/go-chi/chi/v5"
)

// FriendsHandler exposes the friend relationship engine.
type FriendsHandler struct {
	service  *friends.Service
	reporter *Reporter
}

// NewFriendsHandler creates a new friends handler
func NewFriendsHandler(service *friends.Service, reporter *Reporter) *FriendsHandler {
	return &FriendsHandler{service: service, reporter: reporter}
}

// sendRequestBody is the request body for POST /friends/requests
type sendRequestBody struct {
	Username      string  `json:"username"`
	CustomMessage *string `json:"customMessage,omitempty"`
}

// HandleSendRequest handles POST /friends/requests
func (h *FriendsHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	var req sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username is required")
		return
	}

	sent, err := h.service.SendRequest(r.Context(), txID, req.Username, me, req.CustomMessage)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, sent)
}

// decisionBody is the request body for accept/reject
type decisionBody struct {
	Sender string `json:"sender"`
}

// HandleAcceptRequest handles POST /friends/requests/accept
func (h *FriendsHandler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, sender, ok := h.decision(w, r, txID)
	if !ok {
		return
	}

	accepted, err := h.service.AcceptRequest(r.Context(), txID, me, sender)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, accepted)
}

// HandleRejectRequest handles POST /friends/requests/reject
func (h *FriendsHandler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, sender, ok := h.decision(w, r, txID)
	if !ok {
		return
	}

	rejected, err := h.service.RejectRequest(r.Context(), me, sender)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, rejected)
}

// decision parses the shared accept/reject body and resolves the caller.
func (h *FriendsHandler) decision(w http.ResponseWriter, r *http.Request, txID string) (me, sender string, ok bool) {
	me, authed := middleware.GetUsername(r.Context())
	if !authed {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return "", "", false
	}

	var req decisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return "", "", false
	}
	req.Sender = strings.TrimSpace(req.Sender)
	if req.Sender == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "sender is required")
		return "", "", false
	}
	return me, req.Sender, true
}

// HandlePendingRequests handles GET /friends/requests
func (h *FriendsHandler) HandlePendingRequests(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	pending, err := h.service.PendingRequests(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, pending)
}

// HandleListFriends handles GET /friends
func (h *FriendsHandler) HandleListFriends(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	list, err := h.service.ListFriends(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	if list == nil {
		list = []string{}
	}
	apiresponse.WriteData(w, txID, list)
}

// HandleAvailableFriends handles GET /friends/available
func (h *FriendsHandler) HandleAvailableFriends(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	available, err := h.service.AvailableFriends(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, available)
}

// HandleRemoveFriend handles DELETE /friends/{username}
func (h *FriendsHandler) HandleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	other := chi.URLParam(r, "username")
	if other == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username is required")
		return
	}

	if err := h.service.RemoveFriend(r.Context(), me, other); err != nil {
		if errors.Is(err, friends.ErrFriendshipNotFound) {
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "friendship does not exist")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, true)
}

// blockBody is the request body for POST /friends/blocks
type blockBody struct {
	Username string  `json:"username"`
	Reason   *string `json:"reason,omitempty"`
}

// HandleBlock handles POST /friends/blocks
func (h *FriendsHandler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	var req blockBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username is required")
		return
	}

	blocked, err := h.service.BlockUser(r.Context(), req.Username, me, req.Reason)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, blocked)
}

// blockResponse is a block in API responses
type blockResponse struct {
	Username string  `json:"username"`
	Reason   *string `json:"reason,omitempty"`
	Blocked  string  `json:"blocked"`
}

// HandleListBlocks handles GET /friends/blocks
func (h *FriendsHandler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	blocks, err := h.service.Blocks(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	out := make([]blockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockResponse{
			Username: b.Username,
			Reason:   b.Reason,
			Blocked:  b.Blocked.Format(time.RFC3339),
		})
	}
	apiresponse.WriteData(w, txID, out)
}

// HandleUnblock handles DELETE /friends/blocks/{username}
func (h *FriendsHandler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	username := chi.URLParam(r, "username")
	if username == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username is required")
		return
	}

	removed, err := h.service.UnblockUser(r.Context(), username, me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, removed)
}
