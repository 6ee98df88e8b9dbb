package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	tokenCookie = "XSRF-TOKEN"
	tokenHeader = "X-XSRF-TOKEN"
)

// handleAntiforgeryToken issues a fresh antiforgery token as a JS-readable
// cookie. The frontend echoes it in the X-XSRF-TOKEN header on every
// state-changing request (double-submit pattern).
func (s *Server) handleAntiforgeryToken(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		s.logger.Error("failed to generate antiforgery token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // the frontend reads it to build the header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

// antiforgery enforces the double-submit check on state-changing requests:
// the X-XSRF-TOKEN header must match the XSRF-TOKEN cookie.
func antiforgery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(tokenCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, "antiforgery token missing")
			return
		}
		header := r.Header.Get(tokenHeader)
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			writeError(w, http.StatusForbidden, "antiforgery token mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}
