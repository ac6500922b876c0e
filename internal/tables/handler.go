package tables

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/partnerdesk/internal/gate"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
	"github.com/2beens/partnerdesk/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type adminChecker interface {
	IsAdmin(session *gate.Session) bool
}

type Handler struct {
	browser *Browser
	admins  adminChecker
}

func NewHandler(browser *Browser, admins adminChecker) *Handler {
	return &Handler{
		browser: browser,
		admins:  admins,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/tables", h.HandleList).Methods("GET").Name("tables-list")
	r.HandleFunc("/tables/{table}/columns", h.HandleColumns).Methods("GET").Name("tables-columns")
	r.HandleFunc("/tables/{table}/rows", h.HandleRows).Methods("GET").Name("tables-rows")
	r.HandleFunc("/tables/{table}/rows", h.HandleInsert).Methods("POST").Name("tables-insert")
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTableNotFound):
		pkg.WriteJSONError(w, "Table not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("tables: request failed: %s", err)
		pkg.WriteJSONError(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tables, err := h.browser.ListTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	pkg.WriteJSONOK(w, tables)
}

func (h *Handler) HandleColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := h.browser.Columns(r.Context(), mux.Vars(r)["table"])
	if err != nil {
		writeError(w, err)
		return
	}
	pkg.WriteJSONOK(w, columns)
}

func (h *Handler) HandleRows(w http.ResponseWriter, r *http.Request) {
	limit, offset := 0, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			pkg.WriteJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			pkg.WriteJSONError(w, "invalid offset", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	page, err := h.browser.Rows(r.Context(), mux.Vars(r)["table"], limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	pkg.WriteJSONOK(w, page)
}

func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tables.insert")
	defer span.End()

	if !h.admins.IsAdmin(gate.SessionFromContext(ctx)) {
		span.SetStatus(codes.Error, "not-admin")
		gate.WriteError(w, gate.ErrPermissionDenied)
		return
	}

	var body map[string]any
	if err := pkg.DecodeRequest(r, &body); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	values := make(map[string]string, len(body))
	for name, v := range body {
		switch v := v.(type) {
		case nil:
			values[name] = ""
		case string:
			values[name] = v
		default:
			values[name] = fmt.Sprint(v)
		}
	}

	table := mux.Vars(r)["table"]
	id, err := h.browser.Insert(ctx, table, values)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, err)
		return
	}
	pkg.WriteJSON(w, map[string]any{
		"id":      id,
		"message": "Record added to " + table,
	}, http.StatusCreated)
}
