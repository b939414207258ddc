package api

import (
	"net/http"

	"arkiva/internal/auth"
)

// sessionTokenFromRequest finds the session token to bind into the handshake
// state. The browser redirect flow cannot set an Authorization header, so a
// token query parameter is accepted too.
func sessionTokenFromRequest(r *http.Request) string {
	if token, ok := auth.BearerToken(r); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

// DriveAuthStart begins the connect handshake and redirects to the provider.
func (h *APIHandler) DriveAuthStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.drive.Start(r.Context(), sessionTokenFromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// DriveAuthURL begins the handshake but returns the provider URL as JSON,
// for frontends that open the consent screen themselves.
func (h *APIHandler) DriveAuthURL(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.drive.Start(r.Context(), sessionTokenFromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": authURL})
}

// DriveAuthCallback finishes the handshake and redirects the browser back to
// the frontend.
func (h *APIHandler) DriveAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := h.drive.Callback(r.Context(), q.Get("code"), q.Get("state"), q.Get("error"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// DriveStatus reports whether the caller has a drive connection.
func (h *APIHandler) DriveStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.drive.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DriveDisconnect removes the caller's drive connection.
func (h *APIHandler) DriveDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.drive.Disconnect(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}
