package core

import (
	"context"

	"stockroom/pkg/domain"
)

type actorKey struct{}

// WithActor attaches the acting user to ctx. Audit entries written for
// operations under ctx are attributed to that user.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached to ctx, or domain.SystemActor.
func ActorFrom(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorKey{}).(domain.Actor); ok && actor.UserID != "" {
		return actor
	}
	return domain.SystemActor
}
