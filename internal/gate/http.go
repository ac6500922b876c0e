package gate

import (
	"errors"
	"net/http"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/pkg"

	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	State string `json:"state,omitempty"`
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, accounts.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, ErrSetupRequired),
		errors.Is(err, ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSelfDeletionForbidden),
		errors.Is(err, ErrLastAdminProtected),
		errors.Is(err, accounts.ErrDuplicateUsername),
		errors.Is(err, ErrAlreadyInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrSelfDeletionForbidden):
		return "self_deletion_forbidden"
	case errors.Is(err, ErrLastAdminProtected):
		return "last_admin_protected"
	case errors.Is(err, ErrSetupRequired):
		return "setup_required"
	case errors.Is(err, ErrLoginRequired):
		return "login_required"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return accounts.Kind(err)
	}
}

// WriteError writes err as JSON with its mapped status code. Causes of
// internal errors are logged, never sent.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		log.Errorf("gate: request failed: %s", err)
	}

	resp := errorResponse{
		Error: Describe(err),
		Kind:  errorKind(err),
	}
	switch {
	case errors.Is(err, ErrSetupRequired):
		resp.State = StateUninitialized.String()
	case errors.Is(err, ErrLoginRequired):
		resp.State = StateUnauthenticated.String()
	}

	pkg.WriteJSON(w, resp, status)
}
