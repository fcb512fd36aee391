package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/buildinfo"
	"github.com/xelth-com/centerhub/internal/middleware"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/report"
	"github.com/xelth-com/centerhub/internal/session"
	"github.com/xelth-com/centerhub/internal/store"
	"github.com/xelth-com/centerhub/internal/websocket"
	"go.uber.org/zap"
)

// Deps are the services behind the HTTP API
type Deps struct {
	Auth        *auth.Service
	Sessions    *session.Manager
	Activity    activity.Recorder
	Reports     *report.Aggregator
	Hub         *websocket.Hub
	Centers     *records.Centers
	Technicians *records.Technicians
	Customers   *records.Customers
	Inventory   *records.Inventory
	Sales       *records.Sales
	Maintenance *records.Maintenance
	Log         *zap.Logger
}

// Router wraps the mux router and the services
type Router struct {
	*mux.Router
	Deps
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		Deps:   d,
	}
	r.Use(middleware.Logging(d.Log))
	authed := middleware.Auth(d.Auth)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/login", r.login).Methods("POST")
	a.HandleFunc("/admin/login", r.adminLogin).Methods("POST")
	a.Handle("/logout", authed(http.HandlerFunc(r.logout))).Methods("POST")
	a.Handle("/me", authed(http.HandlerFunc(r.me))).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// everything below needs a token
	p := api.NewRoute().Subrouter()
	p.Use(authed)

	p.HandleFunc("/sessions/active", r.getActiveSession).Methods("GET")
	p.HandleFunc("/sessions", r.startSession).Methods("POST")
	p.HandleFunc("/sessions/{id}/end", r.endSession).Methods("POST")

	p.HandleFunc("/activities", r.listCenterActivities).Methods("GET")
	p.HandleFunc("/activities", r.createActivity).Methods("POST")

	registerCrud[models.Technician](r, p, "/technicians", r.Technicians)
	registerCrud[models.Customer](r, p, "/customers", r.Customers)
	registerCrud[models.InventoryItem](r, p, "/inventory", r.Inventory)
	registerCrud[models.Sale](r, p, "/sales", r.Sales)
	registerCrud[models.MaintenanceRequest](r, p, "/maintenance", r.Maintenance)
	p.HandleFunc("/maintenance/{id}/status", r.changeMaintenanceStatus).Methods("POST")
	p.HandleFunc("/reports", r.centerBusinessReport).Methods("GET")

	// Admin routes
	admin := p.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly)
	admin.HandleFunc("/sessions", r.adminListSessions).Methods("GET")
	admin.HandleFunc("/sessions/{centerId}/{id}/activities", r.adminSessionActivities).Methods("GET")
	admin.HandleFunc("/centers/{centerId}/sessions/{id}/end", r.adminEndSession).Methods("POST")
	admin.HandleFunc("/activities", r.adminListActivities).Methods("GET")
	admin.HandleFunc("/summary", r.adminSummary).Methods("GET")
	admin.HandleFunc("/reports", r.adminBusinessReport).Methods("GET")
	admin.HandleFunc("/export.pdf", r.adminExportPDF).Methods("GET")
	admin.HandleFunc("/export.xlsx", r.adminExportXLSX).Methods("GET")
	admin.HandleFunc("/centers", r.listCenters).Methods("GET")
	admin.HandleFunc("/centers", r.createCenter).Methods("POST")
	admin.HandleFunc("/centers/{id}", r.updateCenter).Methods("PUT")
	admin.HandleFunc("/centers/{id}", r.deleteCenter).Methods("DELETE")

	// Live feed
	r.Handle("/ws/activities", authed(middleware.AdminOnly(http.HandlerFunc(r.serveActivityFeed)))).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns build and runtime information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	info := buildinfo.Get()
	listeners := 0
	if r.Hub != nil {
		listeners = r.Hub.Count()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "running",
		"build":         info,
		"feedListeners": listeners,
		"time":          time.Now().UTC(),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// fail maps a service error onto a status code. Unexpected errors are logged
// and reported as fallback.
func (r *Router) fail(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, records.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, records.ErrForbidden):
		respondError(w, http.StatusForbidden, "Not allowed for this account")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrActiveSessionExists):
		respondError(w, http.StatusConflict, "Center already has an active session")
	case errors.Is(err, store.ErrSessionNotOpen):
		respondError(w, http.StatusConflict, "Session already ended")
	default:
		r.Log.Error(fallback, zap.Error(err))
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func principal(req *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(req.Context())
	return p
}
