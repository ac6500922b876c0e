package gate

import "context"

type sessionCtxKey struct{}

// WithSession stores the request's session (possibly nil) in ctx.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return session
}

// Lookup returns the registered session for token, or nil.
func (g *Gate) Lookup(token string) *Session {
	session, found := g.sessions.Get(token)
	if !found {
		return nil
	}
	return session
}
