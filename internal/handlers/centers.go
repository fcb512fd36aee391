package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/records"
)

func (r *Router) listCenters(w http.ResponseWriter, req *http.Request) {
	list, err := r.Centers.List(req.Context(), principal(req))
	if err != nil {
		r.fail(w, err, "Failed to fetch centers")
		return
	}
	if list == nil {
		list = []models.Center{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createCenter(w http.ResponseWriter, req *http.Request) {
	var in records.CenterInput
	if !decode(w, req, &in) {
		return
	}
	c, err := r.Centers.Create(req.Context(), principal(req), in)
	if err != nil {
		r.fail(w, err, "Failed to create center")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (r *Router) updateCenter(w http.ResponseWriter, req *http.Request) {
	var in records.CenterInput
	if !decode(w, req, &in) {
		return
	}
	c, err := r.Centers.Update(req.Context(), principal(req), mux.Vars(req)["id"], in)
	if err != nil {
		r.fail(w, err, "Failed to update center")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (r *Router) deleteCenter(w http.ResponseWriter, req *http.Request) {
	if err := r.Centers.Delete(req.Context(), principal(req), mux.Vars(req)["id"]); err != nil {
		r.fail(w, err, "Failed to delete center")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
