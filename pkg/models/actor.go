package models

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies who is performing an operation. Authentication happens
// upstream; the engine only needs the identity and role for permission
// checks and audit attribution.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

type actorContextKey struct{}

// WithActor stores the acting user in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor retrieves the acting user from context.
// Returns false if no actor was set (e.g. system-triggered operations).
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
