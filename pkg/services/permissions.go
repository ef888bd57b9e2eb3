package services

import (
	"context"
	"fmt"

	"github.com/masapp-io/maintenance-engine/pkg/apperrors"
	"github.com/masapp-io/maintenance-engine/pkg/models"
)

// requireActor enforces the permission matrix for the actor bound to ctx.
// Operations without an actor (internal scheduler runs) bypass the check
// by calling repositories directly, never this.
func requireActor(ctx context.Context, resource models.Resource, action models.Action) (models.Actor, error) {
	actor, ok := models.GetActor(ctx)
	if !ok {
		return models.Actor{}, fmt.Errorf("%w: no actor in context", apperrors.ErrPermissionDenied)
	}
	if !models.Can(actor.Role, resource, action) {
		return actor, fmt.Errorf("%w: role %s may not %s %s",
			apperrors.ErrPermissionDenied, actor.Role, action, resource)
	}
	return actor, nil
}
