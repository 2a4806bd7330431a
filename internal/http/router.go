package http

import (
	"time"

	"github.com/buckles/server/internal/auth"
	"github.com/buckles/server/internal/http/handlers"
	"github.com/buckles/server/internal/middleware"
	"github.com/buckles/server/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles the route handlers wired by NewRouter.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Friends       *handlers.FriendsHandler
	Messages      *handlers.MessagesHandler
	Rooms         *handlers.RoomsHandler
	Notifications *handlers.NotificationsHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, jwtService *auth.JWTService, userRepo repo.UserRepo) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	registerLimiter := middleware.NewRateLimiter(10*time.Minute, 20)
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitMiddleware(registerLimiter)).
			Post("/register", h.Auth.HandleRegister)
		r.Post("/login", h.Auth.HandleLogin)
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, userRepo))

		r.Get("/me", h.Auth.HandleMe)
		r.Put("/me/profile-image", h.Auth.HandleUpdateProfileImage)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", h.Friends.HandleListFriends)
			r.Get("/available", h.Friends.HandleAvailableFriends)
			r.Get("/requests", h.Friends.HandlePendingRequests)
			r.Post("/requests", h.Friends.HandleSendRequest)
			r.Post("/requests/accept", h.Friends.HandleAcceptRequest)
			r.Post("/requests/reject", h.Friends.HandleRejectRequest)
			r.Get("/blocks", h.Friends.HandleListBlocks)
			r.Post("/blocks", h.Friends.HandleBlock)
			r.Delete("/blocks/{username}", h.Friends.HandleUnblock)
			r.Delete("/{username}", h.Friends.HandleRemoveFriend)
		})

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", h.Messages.HandleListThreads)
			r.Post("/", h.Messages.HandleStartThread)
			r.Get("/{id}/messages", h.Messages.HandleThreadMessages)
			r.Post("/{id}/messages", h.Messages.HandleSendMessage)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.Rooms.HandleListRooms)
			r.Post("/", h.Rooms.HandleCreateRoom)
			r.Get("/{id}/members", h.Rooms.HandleRoomMembers)
			r.Post("/{id}/join", h.Rooms.HandleJoinRoom)
			r.Post("/{id}/leave", h.Rooms.HandleLeaveRoom)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.Notifications.HandleListUnread)
			r.Post("/read", h.Notifications.HandleMarkRead)
			r.Get("/ws", h.Notifications.HandleSubscribe)
		})
	})

	return r
}
