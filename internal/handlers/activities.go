package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/report"
)

// ActivityRequest is a manually recorded activity
type ActivityRequest struct {
	Category    string          `json:"category"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	TargetID    string          `json:"targetId"`
	TargetName  string          `json:"targetName"`
	Details     json.RawMessage `json:"details"`
	Timestamp   *time.Time      `json:"timestamp"`
}

// listCenterActivities returns the caller's recent activities.
// Admins choose the center with ?centerId=.
func (r *Router) listCenterActivities(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	centerID := p.CenterID
	if p.IsAdmin() {
		centerID = req.URL.Query().Get("centerId")
	}
	if centerID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}

	limit := 0
	if l := req.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	list, err := r.Reports.LoadCenterActivities(req.Context(), centerID, limit)
	if err != nil {
		r.fail(w, err, "Failed to fetch activities")
		return
	}
	if list == nil {
		list = []models.ActivityRecord{}
	}
	respondJSON(w, http.StatusOK, list)
}

// createActivity records an activity the dashboard reports directly
func (r *Router) createActivity(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	if p.CenterID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}
	var in ActivityRequest
	if !decode(w, req, &in) {
		return
	}
	if in.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}

	e := activity.Entry{
		Category:    models.ParseCategory(in.Category),
		Action:      in.Action,
		Description: in.Description,
		TargetID:    in.TargetID,
		TargetName:  in.TargetName,
	}
	if len(in.Details) > 0 {
		e.Details = in.Details
	}
	if in.Timestamp != nil {
		e.Timestamp = *in.Timestamp
	}
	r.Activity.Log(req.Context(), p, e)
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Activity recorded"})
}

// adminListActivities returns the global feed.
// Filters: range=today|week|month|all, category=, center=, q=.
func (r *Router) adminListActivities(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	list, err := r.Reports.LoadGlobalActivities(req.Context(), report.ParseTimeRange(q.Get("range")))
	if err != nil {
		r.fail(w, err, "Failed to fetch activities")
		return
	}

	f := report.ActivityFilter{CenterID: q.Get("center"), Search: q.Get("q")}
	if c := q.Get("category"); c != "" && c != "all" {
		f.Category = models.ParseCategory(c)
	}
	respondJSON(w, http.StatusOK, report.FilterActivities(list, f))
}

// adminSummary returns dashboard counters for the range
func (r *Router) adminSummary(w http.ResponseWriter, req *http.Request) {
	sessions, activities, err := r.loadRange(req)
	if err != nil {
		r.fail(w, err, "Failed to build summary")
		return
	}
	respondJSON(w, http.StatusOK, report.Summarize(sessions, activities))
}

// loadRange reads the sessions and activities of one ?range= window
func (r *Router) loadRange(req *http.Request) ([]report.SessionWithStats, []report.ActivityWithCenter, error) {
	rng := report.ParseTimeRange(req.URL.Query().Get("range"))
	sessions, err := r.Reports.LoadSessionsInRange(req.Context(), rng)
	if err != nil {
		return nil, nil, err
	}
	activities, err := r.Reports.LoadGlobalActivities(req.Context(), rng)
	if err != nil {
		return nil, nil, err
	}
	return sessions, activities, nil
}
