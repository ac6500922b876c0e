package middleware

import (
	"context"
	"net/http"

	"github.com/2beens/partnerdesk/internal/gate"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

type sessionResolver interface {
	Lookup(token string) *gate.Session
	State(ctx context.Context, session *gate.Session) (gate.State, error)
}

type AuthMiddlewareHandler struct {
	resolver     sessionResolver
	cookieName   string
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(resolver sessionResolver, cookieName string) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		resolver:   resolver,
		cookieName: cookieName,
		allowedPaths: map[string]bool{
			"/":        true,
			"/version": true,

			// gate endpoints usable before login:
			"/a/state":  true,
			"/a/setup":  true,
			"/a/login":  true,
			"/a/logout": true,
		},
	}
}

// token reads the session token from the header first, then the cookie.
func (h *AuthMiddlewareHandler) token(r *http.Request) string {
	if token := r.Header.Get(gate.TokenHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			var session *gate.Session
			if token := h.token(r); token != "" {
				session = h.resolver.Lookup(token)
			}
			r = r.WithContext(gate.WithSession(r.Context(), session))

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := session.Identity(); ok {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			state, err := h.resolver.State(ctx, nil)
			if err != nil {
				log.Errorf("[failed state check] => %s: %s", r.URL.Path, err)
				span.SetStatus(codes.Error, "state-check-err")
				span.RecordError(err)
				gate.WriteError(w, err)
				return
			}

			log.Tracef("[%s] [auth middleware] unauthorized => %s", state, r.URL.Path)
			span.SetStatus(codes.Error, "not-logged")
			if state == gate.StateUninitialized {
				gate.WriteError(w, gate.ErrSetupRequired)
				return
			}
			gate.WriteError(w, gate.ErrLoginRequired)
		})
	}
}
