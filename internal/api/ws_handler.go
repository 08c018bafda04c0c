package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
)

// Subscriber registers a websocket client under its private address and
// blocks until the client disconnects.
type Subscriber interface {
	Subscribe(w http.ResponseWriter, r *http.Request, address string) error
}

// AddressResolver resolves the caller's id to the directory identity whose
// email addresses the private notification channel.
type AddressResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) *domain.User
}

// WebSocketHandler handles GET /ws requests: the real-time notification
// subscription of the authenticated user.
type WebSocketHandler struct {
	hub      Subscriber
	resolver AddressResolver
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub Subscriber, resolver AddressResolver, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for WebSocketHandler")
	}

	return &WebSocketHandler{
		hub:      hub,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "ws_handler")),
	}
}

// Subscribe upgrades the request and keeps the connection registered until
// the client disconnects. The subscription address is the caller's resolved
// directory email, matching the address the consumer pushes to.
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	user := h.resolver.Resolve(r.Context(), userID)
	if user == nil {
		// Without a resolved address there is nothing to subscribe to; the
		// client can retry once the directory recovers.
		log.Warn("cannot resolve subscriber address",
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Directory lookup unavailable")
		return
	}

	if err := h.hub.Subscribe(w, r, user.Email); err != nil {
		log.Warn("websocket subscription failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}
