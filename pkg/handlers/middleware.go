package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// ActorMiddleware resolves the acting user from request headers and binds
// it to the request context. Authentication itself happens upstream; the
// engine trusts X-Actor-ID and X-Actor-Role the way it would trust a
// verified token's claims.
type ActorMiddleware func(http.HandlerFunc) http.HandlerFunc

// NewActorMiddleware creates the header-based actor resolver.
func NewActorMiddleware(logger *zap.Logger) ActorMiddleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get("X-Actor-ID")
			rawRole := r.Header.Get("X-Actor-Role")

			if rawID == "" || rawRole == "" {
				if err := ErrorResponse(w, http.StatusUnauthorized, "missing_actor",
					"X-Actor-ID and X-Actor-Role headers are required"); err != nil {
					logger.Error("failed to write error response", zap.Error(err))
				}
				return
			}

			userID, err := uuid.Parse(rawID)
			if err != nil {
				if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_actor",
					"X-Actor-ID must be a UUID"); err != nil {
					logger.Error("failed to write error response", zap.Error(err))
				}
				return
			}

			role := models.Role(rawRole)
			if !models.IsValidRole(role) {
				if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_role",
					"unknown role "+rawRole); err != nil {
					logger.Error("failed to write error response", zap.Error(err))
				}
				return
			}

			ctx := models.WithActor(r.Context(), models.Actor{UserID: userID, Role: role})
			next(w, r.WithContext(ctx))
		}
	}
}
