package api

import (
	"encoding/json"
	"net/http"

	"arkiva/internal/domain"
)

// Health reports process liveness.
func (h *APIHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthDB reports database reachability through the probe installed by the
// app wiring.
func (h *APIHandler) HealthDB(w http.ResponseWriter, r *http.Request) {
	if h.pingDB == nil {
		writeErrorStatus(w, http.StatusServiceUnavailable, "database probe not configured")
		return
	}
	if err := h.pingDB(r.Context()); err != nil {
		writeErrorStatus(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	Role        string  `json:"role"`
	User        userDTO `json:"user"`
}

// Login authenticates a staff account and returns a session token.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		Role:        result.User.Role,
		User:        userToAPI(result.User),
	})
}

// Me returns the account behind the current session token.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]userDTO{"user": userToAPI(user)})
}
