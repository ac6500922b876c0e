package gate

import (
	"errors"

	"github.com/2beens/partnerdesk/internal/accounts"
)

var (
	ErrPermissionDenied      = errors.New("permission denied: this action requires the admin role")
	ErrSelfDeletionForbidden = errors.New("you cannot delete the currently signed-in user")
	ErrLastAdminProtected    = errors.New("at least one admin account must remain")
	ErrSetupRequired         = errors.New("setup required: create the first admin account")
	ErrLoginRequired         = errors.New("login required")
	ErrAlreadyInitialized    = errors.New("already initialized: accounts exist")

	errDeleteLastAdmin = &policyError{msg: "cannot delete the last admin user", rule: ErrLastAdminProtected}
	errDemoteLastAdmin = &policyError{msg: "cannot demote the last admin", rule: ErrLastAdminProtected}
)

// policyError names the refused action and matches the rule it violates.
type policyError struct {
	msg  string
	rule error
}

func (e *policyError) Error() string {
	return e.msg + ": " + e.rule.Error()
}

func (e *policyError) Unwrap() error {
	return e.rule
}

// Describe returns the message shown to the user for err. Storage causes
// are never included.
func Describe(err error) string {
	var validationErr *accounts.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Msg
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, accounts.ErrAccountNotFound):
		return "User not found"
	case errors.Is(err, accounts.ErrDuplicateUsername):
		return "Username already exists"
	case errors.Is(err, accounts.ErrStoreUnavailable):
		return "Storage is unavailable, please try again later"
	case errors.Is(err, ErrLastAdminProtected),
		errors.Is(err, ErrSelfDeletionForbidden),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrSetupRequired),
		errors.Is(err, ErrLoginRequired),
		errors.Is(err, ErrAlreadyInitialized):
		return err.Error()
	default:
		return "Internal error"
	}
}
