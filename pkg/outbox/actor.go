package outbox

import "context"

type actorCtxKey struct{}

// WithActor attaches the acting user to ctx so emitted events record it.
func WithActor(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, &actor)
}

// ActorFromContext returns the actor attached by WithActor, if any.
func ActorFromContext(ctx context.Context) *ActorRef {
	if ctx == nil {
		return nil
	}
	actor, _ := ctx.Value(actorCtxKey{}).(*ActorRef)
	return actor
}
