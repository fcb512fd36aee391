package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/records"
)

// crudService is the method set shared by the records services
type crudService[T any] interface {
	List(ctx context.Context, actor auth.Principal, centerID string) ([]T, error)
	Get(ctx context.Context, actor auth.Principal, centerID, id string) (T, error)
	Create(ctx context.Context, actor auth.Principal, rec T) (T, error)
	Update(ctx context.Context, actor auth.Principal, id string, rec T) (T, error)
	Delete(ctx context.Context, actor auth.Principal, centerID, id string) error
}

// registerCrud mounts list/get/create/update/delete for one entity under
// prefix. Admins pick a center with ?centerId=.
func registerCrud[T any](r *Router, router *mux.Router, prefix string, svc crudService[T]) {
	router.HandleFunc(prefix, func(w http.ResponseWriter, req *http.Request) {
		list, err := svc.List(req.Context(), principal(req), req.URL.Query().Get("centerId"))
		if err != nil {
			r.fail(w, err, "Failed to fetch records")
			return
		}
		if list == nil {
			list = []T{}
		}
		respondJSON(w, http.StatusOK, list)
	}).Methods("GET")

	router.HandleFunc(prefix+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec, err := svc.Get(req.Context(), principal(req), req.URL.Query().Get("centerId"), mux.Vars(req)["id"])
		if err != nil {
			r.fail(w, err, "Failed to fetch record")
			return
		}
		respondJSON(w, http.StatusOK, rec)
	}).Methods("GET")

	router.HandleFunc(prefix, func(w http.ResponseWriter, req *http.Request) {
		var rec T
		if !decode(w, req, &rec) {
			return
		}
		created, err := svc.Create(req.Context(), principal(req), rec)
		if err != nil {
			r.fail(w, err, "Failed to create record")
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}).Methods("POST")

	router.HandleFunc(prefix+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		var rec T
		if !decode(w, req, &rec) {
			return
		}
		updated, err := svc.Update(req.Context(), principal(req), mux.Vars(req)["id"], rec)
		if err != nil {
			r.fail(w, err, "Failed to update record")
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}).Methods("PUT")

	router.HandleFunc(prefix+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		err := svc.Delete(req.Context(), principal(req), req.URL.Query().Get("centerId"), mux.Vars(req)["id"])
		if err != nil {
			r.fail(w, err, "Failed to delete record")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods("DELETE")
}

// changeMaintenanceStatus moves a maintenance request to a new status
func (r *Router) changeMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	var ch records.StatusChange
	if !decode(w, req, &ch) {
		return
	}
	updated, err := r.Maintenance.ChangeStatus(req.Context(), principal(req), mux.Vars(req)["id"], ch)
	if err != nil {
		r.fail(w, err, "Failed to change status")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
