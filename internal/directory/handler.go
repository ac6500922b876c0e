package directory

import (
	"net/http"

	"github.com/2beens/partnerdesk/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	directory *Directory
}

func NewHandler(directory *Directory) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/directory/partners", h.HandlePartners).Methods("GET").Name("directory-partners")
	r.HandleFunc("/directory/partners/options", h.HandlePartnerOptions).Methods("GET").Name("directory-partner-options")
	r.HandleFunc("/directory/feedback", h.HandleFeedback).Methods("GET").Name("directory-feedback")
	r.HandleFunc("/directory/feedback/suppliers", h.HandleSuppliers).Methods("GET").Name("directory-suppliers")
	r.HandleFunc("/directory/services", h.HandleServices).Methods("GET").Name("directory-services")
	r.HandleFunc("/directory/services/options", h.HandleServiceOptions).Methods("GET").Name("directory-service-options")
}

func internalError(w http.ResponseWriter, what string, err error) {
	log.Errorf("directory: %s: %s", what, err)
	pkg.WriteJSONError(w, "Internal error", http.StatusInternalServerError)
}

func (h *Handler) HandlePartners(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	partners, err := h.directory.SearchPartners(r.Context(), PartnerQuery{
		Country:     params.Get("country"),
		Location:    params.Get("location"),
		Region:      params.Get("region"),
		Status:      params.Get("status"),
		PartnerType: params.Get("partner_type"),
		Keyword:     params.Get("q"),
	})
	if err != nil {
		internalError(w, "search partners", err)
		return
	}
	pkg.WriteJSONOK(w, partners)
}

func (h *Handler) HandlePartnerOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.directory.Options(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		internalError(w, "partner options", err)
		return
	}
	pkg.WriteJSONOK(w, opts)
}

func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := FeedbackQuery{
		PartnerName: params.Get("partner"),
		PartnerID:   params.Get("partner_id"),
	}
	if q.PartnerName == "" && q.PartnerID == "" {
		pkg.WriteJSONError(w, "partner or partner_id is required", http.StatusBadRequest)
		return
	}

	report, err := h.directory.FeedbackFor(r.Context(), q)
	if err != nil {
		internalError(w, "feedback", err)
		return
	}
	pkg.WriteJSONOK(w, report)
}

func (h *Handler) HandleSuppliers(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	suppliers, err := h.directory.Suppliers(r.Context(), SupplierQuery{
		PartnerType: params.Get("partner_type"),
		Country:     params.Get("country"),
		Region:      params.Get("region"),
	})
	if err != nil {
		internalError(w, "suppliers", err)
		return
	}
	pkg.WriteJSONOK(w, suppliers)
}

func (h *Handler) HandleServices(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	groups, err := h.directory.Services(r.Context(), ServiceQuery{
		Country:  params.Get("country"),
		Location: params.Get("location"),
		Keyword:  params.Get("q"),
	})
	if err != nil {
		internalError(w, "services", err)
		return
	}
	pkg.WriteJSONOK(w, groups)
}

func (h *Handler) HandleServiceOptions(w http.ResponseWriter, r *http.Request) {
	countries, locations, err := h.directory.ServiceOptions(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		internalError(w, "service options", err)
		return
	}
	pkg.WriteJSONOK(w, map[string][]string{
		"countries": countries,
		"locations": locations,
	})
}
