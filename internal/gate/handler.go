package gate

import (
	"net/http"
	"time"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
	"github.com/2beens/partnerdesk/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const TokenHeader = "X-PD-TOKEN"

type Handler struct {
	gate          *Gate
	cookieName    string
	secureCookies bool
}

func NewHandler(gate *Gate, cookieName string, secureCookies bool) *Handler {
	return &Handler{
		gate:          gate,
		cookieName:    cookieName,
		secureCookies: secureCookies,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/a/state", h.HandleState).Methods("GET").Name("auth-state")
	r.HandleFunc("/a/setup", h.HandleSetup).Methods("POST").Name("auth-setup")
	r.HandleFunc("/a/login", h.HandleLogin).Methods("POST").Name("auth-login")
	r.HandleFunc("/a/logout", h.HandleLogout).Methods("GET", "POST").Name("auth-logout")
	r.HandleFunc("/a/me", h.HandleMe).Methods("GET").Name("auth-me")
	r.HandleFunc("/a/password", h.HandleChangePassword).Methods("PUT").Name("auth-password")

	admin := NewAdminHandler(h.gate)
	admin.SetupRoutes(r)
}

type stateResponse struct {
	State    string             `json:"state"`
	Identity *accounts.Identity `json:"identity,omitempty"`
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	state, err := h.gate.State(r.Context(), session)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := stateResponse{State: state.String()}
	if identity, ok := session.Identity(); ok {
		resp.Identity = &identity
	}
	pkg.WriteJSONOK(w, resp)
}

func (h *Handler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	var req BootstrapRequest
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	identity, err := h.gate.Bootstrap(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSON(w, map[string]any{
		"identity": identity,
		"message":  "Account created. Please log in.",
	}, http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username" schema:"username"`
	Password string `json:"password" schema:"password"`
}

type loginResponse struct {
	Token    string            `json:"token"`
	Identity accounts.Identity `json:"identity"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var req loginRequest
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	// a login replaces whatever session the client had
	h.gate.Logout(SessionFromContext(ctx))

	session, err := h.gate.Login(ctx, req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	identity, _ := session.Identity()

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token(),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debugf("auth: [%s] signed in", identity.Username)

	pkg.WriteJSONOK(w, loginResponse{
		Token:    session.Token(),
		Identity: identity,
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.gate.Logout(SessionFromContext(r.Context()))

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	pkg.WriteJSONOK(w, stateResponse{State: StateUnauthenticated.String()})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.RequireSession(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, identity)
}

type passwordRequest struct {
	Password        string `json:"password" schema:"password"`
	PasswordConfirm string `json:"password_confirm" schema:"password_confirm"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	err := h.gate.ChangeOwnPassword(r.Context(), SessionFromContext(r.Context()), req.Password, req.PasswordConfirm)
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, map[string]string{"message": "Password updated"})
}
