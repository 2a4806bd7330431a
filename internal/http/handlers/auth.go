package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/auth"
	"github.com/buckles/server/internal/middleware"
	"github.com/buckles/server/internal/trace"
)

// AuthHandler handles registration and throttled login.
type AuthHandler struct {
	authService *auth.Service
	reporter    *Reporter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, reporter *Reporter) *AuthHandler {
	return &AuthHandler{authService: authService, reporter: reporter}
}

// registerRequest is the request body for POST /auth/register
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse is the user object in API responses
type userResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
}

// loginResponse is the JSON data for a successful login
type loginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	User        userResponse `json:"user"`
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username and password are required")
		return
	}

	user, err := h.authService.Register(r.Context(), txID, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			apiresponse.WriteError(w, txID, apiresponse.CodeConflict, "username already taken")
			return
		}
		h.reporter.ServerError(w, txID, err)
		return
	}

	apiresponse.WriteData(w, txID, userResponse{
		ID:              user.ID.String(),
		Username:        user.Username,
		ProfileImageURL: user.ProfileImageURL,
	})
}

// loginRequest is the request body for POST /auth/login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "username and password are required")
		return
	}

	user, token, err := h.authService.Login(r.Context(), txID, req.Username, req.Password, getClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLoginLocked):
			// must not reveal whether the username exists
			apiresponse.WriteError(w, txID, apiresponse.CodeLoginLocked, "login temporarily locked, try again later")
		case errors.Is(err, auth.ErrInvalidCredentials):
			apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "invalid username or password")
		default:
			h.reporter.ServerError(w, txID, err)
		}
		return
	}

	apiresponse.WriteData(w, txID, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: userResponse{
			ID:              user.ID.String(),
			Username:        user.Username,
			ProfileImageURL: user.ProfileImageURL,
		},
	})
}

// HandleMe handles GET /me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	apiresponse.WriteData(w, txID, userResponse{
		ID:              user.ID.String(),
		Username:        user.Username,
		ProfileImageURL: user.ProfileImageURL,
	})
}

// profileBody is the request body for PUT /me/profile-image
type profileBody struct {
	ProfileImageURL string `json:"profileImageUrl"`
}

// HandleUpdateProfileImage handles PUT /me/profile-image (protected).
func (h *AuthHandler) HandleUpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	var req profileBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "invalid request body")
		return
	}
	req.ProfileImageURL = strings.TrimSpace(req.ProfileImageURL)
	if req.ProfileImageURL == "" {
		apiresponse.WriteError(w, txID, apiresponse.CodeValidation, "profileImageUrl is required")
		return
	}

	if err := h.authService.UpdateProfileImage(r.Context(), txID, user.Username, req.ProfileImageURL); err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}

	apiresponse.WriteData(w, txID, userResponse{
		ID:              user.ID.String(),
		Username:        user.Username,
		ProfileImageURL: &req.ProfileImageURL,
	})
}
