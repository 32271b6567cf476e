package shared

import "context"

// Actor identifies the authenticated caller. Identity is established by the
// gateway in front of this service; the pipeline trusts it as given.
type Actor struct {
	UserID int64
	RoleID int64
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, zero-valued when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
