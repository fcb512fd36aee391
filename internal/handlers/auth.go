package handlers

import (
	"net/http"

	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/models"
)

// LoginRequest represents a center login request. CenterID is optional; the
// center is otherwise found by email.
type LoginRequest struct {
	CenterID string `json:"centerId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginRequest represents an administrator login request
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// login handles center login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !decode(w, req, &loginReq) {
		return
	}

	res, err := r.Auth.LoginCenter(req.Context(), loginReq.CenterID, loginReq.Email, loginReq.Password)
	if err != nil {
		r.fail(w, err, "Login failed")
		return
	}

	r.Activity.Log(req.Context(), res.Principal, activity.Entry{
		Category:   models.CategoryLogin,
		Action:     "logged in",
		TargetID:   res.Principal.CenterID,
		TargetName: res.Principal.CenterName,
		Details:    map[string]string{"sessionId": res.Principal.SessionID},
	})
	respondJSON(w, http.StatusOK, res)
}

// adminLogin handles administrator login
func (r *Router) adminLogin(w http.ResponseWriter, req *http.Request) {
	var loginReq AdminLoginRequest
	if !decode(w, req, &loginReq) {
		return
	}
	res, err := r.Auth.LoginAdmin(req.Context(), loginReq.Password)
	if err != nil {
		r.fail(w, err, "Login failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// logout revokes the token and ends the center session it is bound to
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	p := principal(req)

	// logged first so the entry still falls inside the session
	r.Activity.Log(req.Context(), p, activity.Entry{
		Category:   models.CategoryLogout,
		Action:     "logged out",
		TargetID:   p.CenterID,
		TargetName: p.CenterName,
		Details:    map[string]string{"sessionId": p.SessionID},
	})

	if err := r.Auth.Logout(req.Context(), p); err != nil {
		r.fail(w, err, "Logout failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// me returns the caller
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": principal(req)})
}
