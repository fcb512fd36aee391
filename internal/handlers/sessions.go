package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/report"
)

// getActiveSession returns the caller's open session, or null
func (r *Router) getActiveSession(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	if p.CenterID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}
	sess, err := r.Sessions.GetActive(req.Context(), p.CenterID)
	if err != nil {
		r.fail(w, err, "Failed to fetch session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"session": sess})
}

// startSession opens a session for the caller's center
func (r *Router) startSession(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	if p.CenterID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}
	sess, err := r.Sessions.Start(req.Context(), p)
	if err != nil {
		r.fail(w, err, "Failed to start session")
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// endSession closes one of the caller's sessions
func (r *Router) endSession(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	if p.CenterID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}
	sess, err := r.Sessions.End(req.Context(), p, mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, err, "Failed to end session")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// adminListSessions returns every center's recent sessions.
// Filters: status=active|ended, center=, q=, date=YYYY-MM-DD.
func (r *Router) adminListSessions(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := report.SessionFilter{
		Status:   q.Get("status"),
		CenterID: q.Get("center"),
		Search:   q.Get("q"),
	}
	if d := q.Get("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, r.Reports.Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		f.Date = day
	}

	sessions, err := r.Reports.LoadAllSessions(req.Context())
	if err != nil {
		r.fail(w, err, "Failed to fetch sessions")
		return
	}
	respondJSON(w, http.StatusOK, report.FilterSessions(sessions, f))
}

// adminEndSession closes any center's session
func (r *Router) adminEndSession(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	sess, err := r.Sessions.ForceEnd(req.Context(), principal(req), vars["centerId"], vars["id"])
	if err != nil {
		r.fail(w, err, "Failed to end session")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// adminSessionActivities returns what a center did during one session
func (r *Router) adminSessionActivities(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	list, err := r.Reports.LoadSessionActivities(req.Context(), vars["centerId"], vars["id"])
	if err != nil {
		r.fail(w, err, "Failed to fetch session activities")
		return
	}
	respondJSON(w, http.StatusOK, list)
}
