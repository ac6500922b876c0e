package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/internal/telemetry/metrics"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type State int

const (
	StateUninitialized State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

//go:generate mockgen -source=$GOFILE -destination=gate_mocks_test.go -package=gate

type credentialStore interface {
	Count(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
	Create(ctx context.Context, username, rawPassword, fullName string, role accounts.Role) error
	Find(ctx context.Context, username string) (accounts.Account, error)
	Verify(ctx context.Context, username, rawPassword string) (accounts.Identity, error)
	SetPassword(ctx context.Context, username, rawPassword string) error
	SetRole(ctx context.Context, username string, role accounts.Role) error
	SetFullName(ctx context.Context, username, fullName string) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]accounts.Identity, error)
}

// Gate drives the authentication state machine and enforces the account
// administration rules before delegating to the credential store.
type Gate struct {
	store          credentialStore
	sessions       *Registry
	metricsManager *metrics.Manager

	// serializes the empty-store check and the first insert
	bootstrapMu sync.Mutex
}

func New(store credentialStore, sessions *Registry, metricsManager *metrics.Manager) *Gate {
	return &Gate{
		store:          store,
		sessions:       sessions,
		metricsManager: metricsManager,
	}
}

func (g *Gate) Sessions() *Registry {
	return g.sessions
}

func (g *Gate) State(ctx context.Context, session *Session) (State, error) {
	if _, ok := session.Identity(); ok {
		return StateAuthenticated, nil
	}
	count, err := g.store.Count(ctx)
	if err != nil {
		return StateUnauthenticated, err
	}
	if count == 0 {
		return StateUninitialized, nil
	}
	return StateUnauthenticated, nil
}

type BootstrapRequest struct {
	Username        string `json:"username" schema:"username"`
	FullName        string `json:"full_name" schema:"full_name"`
	Password        string `json:"password" schema:"password"`
	PasswordConfirm string `json:"password_confirm" schema:"password_confirm"`
	// Role is ignored: the first account is always an admin.
	Role string `json:"role,omitempty" schema:"role"`
}

// Bootstrap creates the first account, always as admin. It does not log in.
func (g *Gate) Bootstrap(ctx context.Context, req BootstrapRequest) (_ accounts.Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.bootstrap")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	g.bootstrapMu.Lock()
	defer g.bootstrapMu.Unlock()

	count, err := g.store.Count(ctx)
	if err != nil {
		return accounts.Identity{}, err
	}
	if count > 0 {
		return accounts.Identity{}, ErrAlreadyInitialized
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return accounts.Identity{}, accounts.NewValidationError("Username and Password are required")
	}
	if err := accounts.ValidateUsername(username); err != nil {
		return accounts.Identity{}, err
	}
	if req.Password != req.PasswordConfirm {
		return accounts.Identity{}, accounts.NewValidationError("Passwords do not match")
	}

	if err := g.store.Create(ctx, username, req.Password, req.FullName, accounts.RoleAdmin); err != nil {
		return accounts.Identity{}, err
	}
	log.Infof("gate: first admin account [%s] created", username)

	return accounts.Identity{
		Username: username,
		FullName: strings.TrimSpace(req.FullName),
		Role:     accounts.RoleAdmin,
	}, nil
}

// Login verifies the credentials and registers a new authenticated session.
func (g *Gate) Login(ctx context.Context, username, password string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.login")
	defer func() {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			tracing.EndSpanWithErrCheck(span, nil)
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	count, err := g.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrSetupRequired
	}

	identity, err := g.store.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			g.countLogin(metrics.LoginResultFailed)
			log.Tracef("gate: failed login attempt for [%s]", username)
		}
		return nil, err
	}

	session, err := g.sessions.New(identity)
	if err != nil {
		return nil, err
	}
	g.countLogin(metrics.LoginResultOK)
	span.SetAttributes(attribute.String("username", identity.Username))

	return session, nil
}

func (g *Gate) Logout(session *Session) {
	if session == nil {
		return
	}
	session.clear()
	g.sessions.Remove(session.token)
}

// RequireSession returns the identity bound to session, or halts with
// ErrSetupRequired (no accounts yet) or ErrLoginRequired.
func (g *Gate) RequireSession(ctx context.Context, session *Session) (accounts.Identity, error) {
	if identity, ok := session.Identity(); ok {
		return identity, nil
	}
	state, err := g.State(ctx, session)
	if err != nil {
		return accounts.Identity{}, err
	}
	if state == StateUninitialized {
		return accounts.Identity{}, ErrSetupRequired
	}
	return accounts.Identity{}, ErrLoginRequired
}

func (g *Gate) IsAdmin(session *Session) bool {
	identity, ok := session.Identity()
	return ok && identity.IsAdmin()
}

func (g *Gate) requireAdmin(session *Session) (accounts.Identity, error) {
	identity, ok := session.Identity()
	if !ok {
		return accounts.Identity{}, ErrLoginRequired
	}
	if !identity.IsAdmin() {
		g.countRefusal("permission_denied")
		return accounts.Identity{}, ErrPermissionDenied
	}
	return identity, nil
}

func validateNewPassword(password, confirm string) error {
	if password == "" {
		return accounts.NewValidationError("Password cannot be empty")
	}
	if password != confirm {
		return accounts.NewValidationError("Passwords do not match")
	}
	return nil
}

// ChangeOwnPassword is open to any authenticated identity. The session stays bound.
func (g *Gate) ChangeOwnPassword(ctx context.Context, session *Session, password, confirm string) error {
	identity, ok := session.Identity()
	if !ok {
		return ErrLoginRequired
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}
	return g.store.SetPassword(ctx, identity.Username, password)
}

type CreateAccountRequest struct {
	Username        string `json:"username" schema:"username"`
	FullName        string `json:"full_name" schema:"full_name"`
	Role            string `json:"role" schema:"role"`
	Password        string `json:"password" schema:"password"`
	PasswordConfirm string `json:"password_confirm" schema:"password_confirm"`
}

func (g *Gate) CreateAccount(ctx context.Context, session *Session, req CreateAccountRequest) (_ accounts.Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.create_account")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := g.requireAdmin(session); err != nil {
		return accounts.Identity{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return accounts.Identity{}, accounts.NewValidationError("Username and Password are required")
	}
	if err := accounts.ValidateUsername(username); err != nil {
		return accounts.Identity{}, err
	}
	if req.Password != req.PasswordConfirm {
		return accounts.Identity{}, accounts.NewValidationError("Passwords do not match")
	}

	role := accounts.RoleViewer
	if req.Role != "" {
		if role, err = accounts.ParseRole(req.Role); err != nil {
			return accounts.Identity{}, err
		}
	}

	if err := g.store.Create(ctx, username, req.Password, req.FullName, role); err != nil {
		return accounts.Identity{}, err
	}

	return accounts.Identity{
		Username: username,
		FullName: strings.TrimSpace(req.FullName),
		Role:     role,
	}, nil
}

func (g *Gate) ResetPassword(ctx context.Context, session *Session, username, password, confirm string) error {
	if _, err := g.requireAdmin(session); err != nil {
		return err
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}
	return g.store.SetPassword(ctx, username, password)
}

// SetRole refuses to demote the last admin. On success every session of the
// target account, the acting one included, sees the new role immediately.
func (g *Gate) SetRole(ctx context.Context, session *Session, username string, role accounts.Role) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.set_role")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("target", username),
		attribute.String("role", role.String()),
	)

	actor, err := g.requireAdmin(session)
	if err != nil {
		return err
	}
	if !role.Valid() {
		return accounts.NewValidationError("invalid role: " + role.String())
	}

	target, err := g.store.Find(ctx, username)
	if err != nil {
		return err
	}

	if target.Role.IsAdmin() && !role.IsAdmin() {
		if err := g.checkNotLastAdmin(ctx, errDemoteLastAdmin); err != nil {
			return err
		}
	}

	if err := g.store.SetRole(ctx, username, role); err != nil {
		return err
	}

	updated := target.Identity()
	updated.Role = role
	g.refresh(session, actor, updated)

	return nil
}

// SetFullName renames an account; a blank name clears it.
func (g *Gate) SetFullName(ctx context.Context, session *Session, username, fullName string) error {
	actor, err := g.requireAdmin(session)
	if err != nil {
		return err
	}

	target, err := g.store.Find(ctx, username)
	if err != nil {
		return err
	}
	if err := g.store.SetFullName(ctx, username, fullName); err != nil {
		return err
	}

	updated := target.Identity()
	updated.FullName = strings.TrimSpace(fullName)
	g.refresh(session, actor, updated)

	return nil
}

// DeleteAccount refuses self-deletion (for any role) and deleting the last
// admin. Sessions of the deleted account are revoked.
func (g *Gate) DeleteAccount(ctx context.Context, session *Session, username string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.delete_account")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("target", username))

	actor, ok := session.Identity()
	if !ok {
		return ErrLoginRequired
	}
	if actor.Username == username {
		g.countRefusal("self_deletion")
		return ErrSelfDeletionForbidden
	}
	if _, err := g.requireAdmin(session); err != nil {
		return err
	}

	target, err := g.store.Find(ctx, username)
	if err != nil {
		return err
	}
	if target.Role.IsAdmin() {
		if err := g.checkNotLastAdmin(ctx, errDeleteLastAdmin); err != nil {
			return err
		}
	}

	if err := g.store.Delete(ctx, username); err != nil {
		return err
	}

	if revoked := g.sessions.Revoke(username); revoked > 0 {
		log.Debugf("gate: revoked %d session(s) of deleted account [%s]", revoked, username)
	}
	return nil
}

func (g *Gate) ListAccounts(ctx context.Context, session *Session) ([]accounts.Identity, error) {
	if _, err := g.requireAdmin(session); err != nil {
		return nil, err
	}
	return g.store.List(ctx)
}

// checkNotLastAdmin is a plain check-then-act: two concurrent demotions of
// two different admins can both pass it.
func (g *Gate) checkNotLastAdmin(ctx context.Context, refusal error) error {
	admins, err := g.store.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		g.countRefusal("last_admin")
		return refusal
	}
	return nil
}

func (g *Gate) refresh(session *Session, actor, updated accounts.Identity) {
	if actor.Username == updated.Username {
		session.bind(updated)
	}
	g.sessions.Refresh(updated)
}

func (g *Gate) countLogin(result string) {
	if g.metricsManager != nil {
		g.metricsManager.CounterLogins.WithLabelValues(result).Inc()
	}
}

func (g *Gate) countRefusal(rule string) {
	if g.metricsManager != nil {
		g.metricsManager.CounterPolicyRefusals.WithLabelValues(rule).Inc()
	}
}
