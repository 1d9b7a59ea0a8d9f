package server

import "context"

func contextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// sessionFrom returns the session attached by requireSession. Handlers
// behind that middleware can assume it is present.
func sessionFrom(ctx context.Context) *Session {
	return ctx.Value(sessionKey).(*Session)
}
