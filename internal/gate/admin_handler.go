package gate

import (
	"net/http"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/pkg"

	"github.com/gorilla/mux"
)

type AdminHandler struct {
	gate *Gate
}

func NewAdminHandler(gate *Gate) *AdminHandler {
	return &AdminHandler{gate: gate}
}

func (h *AdminHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/admin/users", h.HandleList).Methods("GET").Name("admin-users-list")
	r.HandleFunc("/admin/users", h.HandleCreate).Methods("POST").Name("admin-users-create")
	r.HandleFunc("/admin/users/{username}/role", h.HandleSetRole).Methods("PUT").Name("admin-users-role")
	r.HandleFunc("/admin/users/{username}/name", h.HandleSetFullName).Methods("PUT").Name("admin-users-name")
	r.HandleFunc("/admin/users/{username}/password", h.HandleResetPassword).Methods("PUT").Name("admin-users-password")
	r.HandleFunc("/admin/users/{username}", h.HandleDelete).Methods("DELETE").Name("admin-users-delete")
}

func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.gate.ListAccounts(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, list)
}

func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	identity, err := h.gate.CreateAccount(r.Context(), SessionFromContext(r.Context()), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSON(w, identity, http.StatusCreated)
}

func (h *AdminHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role" schema:"role"`
	}
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}
	session := SessionFromContext(r.Context())
	// permission is checked before the role value
	if _, err := h.gate.requireAdmin(session); err != nil {
		WriteError(w, err)
		return
	}
	role, err := accounts.ParseRole(req.Role)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.gate.SetRole(r.Context(), session, mux.Vars(r)["username"], role); err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, map[string]string{"message": "Role updated"})
}

func (h *AdminHandler) HandleSetFullName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name" schema:"full_name"`
	}
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	err := h.gate.SetFullName(r.Context(), SessionFromContext(r.Context()), mux.Vars(r)["username"], req.FullName)
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, map[string]string{"message": "Name updated"})
}

func (h *AdminHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := pkg.DecodeRequest(r, &req); err != nil {
		WriteError(w, accounts.NewValidationError("invalid request body"))
		return
	}

	err := h.gate.ResetPassword(r.Context(), SessionFromContext(r.Context()), mux.Vars(r)["username"], req.Password, req.PasswordConfirm)
	if err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteJSONOK(w, map[string]string{"message": "Password reset"})
}

func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.gate.DeleteAccount(r.Context(), SessionFromContext(r.Context()), mux.Vars(r)["username"])
	if err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
