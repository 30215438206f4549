package service

import "context"

// The engine marks the context it hands to external collaborators. A
// collaborator that tries to call back into a state-mutating entry point with
// that context is reentrant by definition and gets rejected at the door,
// before it can block on the engine mutex or observe intermediate state.
type inFlightKey struct{}

func markInFlight(ctx context.Context) context.Context {
	return context.WithValue(ctx, inFlightKey{}, true)
}

func inFlight(ctx context.Context) bool {
	v, _ := ctx.Value(inFlightKey{}).(bool)
	return v
}
