package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id supplied by the upstream auth
// layer. The core performs no permission checks of its own.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actorID, _ := ctx.Value(actorContextKey{}).(int64)
	return actorID
}
