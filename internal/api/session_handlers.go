package api

import (
	"net/http"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/service"
)

// GetSession godoc
// @Summary Current session
// @Tags Session
// @Produce json
// @Success 200 {object} session.Snapshot
// @Router /session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Login godoc
// @Summary Sign in
// @Tags Session
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} session.Snapshot
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Sign-in already in progress"
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Backend unreachable"
// @Router /session/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	if _, err := h.session.Login(r.Context(), req); err != nil {
		h.respondFailure(w, err, "Login failed. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Register godoc
// @Summary Create an account and sign in
// @Tags Session
// @Accept json
// @Produce json
// @Param request body model.RegisterForm true "Registration details"
// @Success 201 {object} session.Snapshot
// @Failure 409 {object} ErrorResponse "Sign-in already in progress"
// @Failure 422 {object} ErrorResponse
// @Router /session/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var form model.RegisterForm
	if err := decodeBody(r, &form); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	if err := form.Validate(); err != nil {
		h.respondFailure(w, apiclient.Validation(err.Error()), "")
		return
	}
	if _, err := h.session.Register(r.Context(), form.RegisterRequest); err != nil {
		h.respondFailure(w, err, "Registration failed. Please try again.")
		return
	}
	respondJSON(w, http.StatusCreated, h.session.Snapshot())
}

// Logout godoc
// @Summary Sign out
// @Tags Session
// @Produce json
// @Success 200 {object} session.Snapshot
// @Router /session/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout()
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// ClearError godoc
// @Summary Dismiss the session error
// @Tags Session
// @Success 204
// @Router /session/error [delete]
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.session.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// CallbackResponse tells the browser where to go after the callback.
type CallbackResponse struct {
	Redirect string `json:"redirect"`
	Error    string `json:"error,omitempty"`
}

// AuthCallback godoc
// @Summary Complete federated sign-in
// @Tags Session
// @Produce json
// @Param token query string false "Session token issued by the backend"
// @Param error query string false "Provider error"
// @Success 200 {object} CallbackResponse
// @Failure 401 {object} CallbackResponse
// @Router /auth/callback [get]
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := h.session.HandleCallback(q.Get("token"), q.Get("error"))
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, CallbackResponse{
			Redirect: target,
			Error:    apiclient.Message(err, "Sign-in failed"),
		})
		return
	}
	respondJSON(w, http.StatusOK, CallbackResponse{Redirect: target})
}

// GoogleSignIn godoc
// @Summary Federated sign-in entry point
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/google [get]
func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"url": service.GoogleSignInURL(h.apiBase)})
}

// GetProfile godoc
// @Summary Signed-in account
// @Tags Profile
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} middleware.Denial
// @Router /profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	if snap.User == nil {
		respondError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	respondJSON(w, http.StatusOK, snap.User)
}

// UpdateProfile godoc
// @Summary Update the signed-in account
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body model.UserPatch true "Fields to change"
// @Success 200 {object} model.User
// @Failure 422 {object} ErrorResponse
// @Router /profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeBody(r, &patch); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	user, err := h.session.UpdateProfile(r.Context(), patch)
	if err != nil {
		h.respondFailure(w, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
