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

// MessagesHandler exposes direct threads and their messages.
type MessagesHandler struct {
	messaging *social.Messaging
	reporter  *Reporter
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(messaging *social.Messaging, reporter *Reporter) *MessagesHandler {
	return &MessagesHandler{messaging: messaging, reporter: reporter}
}

// threadResponse is a thread in API responses
type threadResponse struct {
	ID        string `json:"id"`
	Starter   string `json:"starter"`
	Recipient string `json:"recipient"`
	CreatedAt string `json:"createdAt"`
}

func toThreadResponse(t model.Thread) threadResponse {
	return threadResponse{
		ID:        t.ID.String(),
		Starter:   t.Starter,
		Recipient: t.Recipient,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// messageResponse is a message in API responses
type messageResponse struct {
	ID     int64  `json:"id"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
	SentAt string `json:"sentAt"`
	Read   bool   `json:"read"`
}

func toMessageResponse(m model.Message) messageResponse {
	return messageResponse{
		ID:     m.ID,
		Sender: m.Sender,
		Body:   m.Body,
		SentAt: m.SentAt.Format(time.RFC3339),
		Read:   m.ReadAt != nil,
	}
}

// startThreadBody is the request body for POST /threads
type startThreadBody struct {
	Recipient string `json:"recipient"`
}

// HandleStartThread handles POST /threads
func (h *MessagesHandler) HandleStartThread(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	var req startThreadBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "recipient is required")
		return
	}

	thread, err := h.messaging.StartThread(r.Context(), txID, me, req.Recipient)
	if err != nil {
		if errors.Is(err, social.ErrUnknownRecipient) {
			apiresponse.WriteError(w, txID, apiresponse.CodeUsernameLookup, "recipient does not exist")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, toThreadResponse(thread))
}

// HandleListThreads handles GET /threads
func (h *MessagesHandler) HandleListThreads(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	threads, err := h.messaging.UserThreads(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	out := make([]threadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, toThreadResponse(t))
	}
	apiresponse.WriteData(w, txID, out)
}

// sendMessageBody is the request body for POST /threads/{id}/messages
type sendMessageBody struct {
	Body string `json:"body"`
}

// HandleSendMessage handles POST /threads/{id}/messages
func (h *MessagesHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid thread id")
		return
	}

	var req sendMessageBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "body is required")
		return
	}

	msg, err := h.messaging.SendMessage(r.Context(), txID, threadID, me, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "thread not found")
		case errors.Is(err, social.ErrNotParticipant):
			apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "not a participant of this thread")
		default:
			h.reporter.ServerError(w, txID, err)
		}
		return
	}
	apiresponse.WriteData(w, txID, toMessageResponse(msg))
}

// HandleThreadMessages handles GET /threads/{id}/messages
func (h *MessagesHandler) HandleThreadMessages(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid thread id")
		return
	}

	messages, err := h.messaging.ThreadMessages(r.Context(), threadID, me)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			apiresponse.WriteError(w, txID, apiresponse.CodeNotFound, "thread not found")
		case errors.Is(err, social.ErrNotParticipant):
			apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "not a participant of this thread")
		default:
			h.reporter.ServerError(w, txID, err)
		}
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	apiresponse.WriteData(w, txID, out)
}
