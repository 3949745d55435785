package tools

import "context"

type userIDKey struct{}

func withUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID extracts the invoking user's ID from a handler's context, set by
// Registry.Invoke before calling the handler. Remote-gateway handlers
// (spec §6.2) use this to forward user_id without threading it through args.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
