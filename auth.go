package main

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword takes a plaintext password and returns a bcrypt hash.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPasswordHash verifies a plaintext password against a stored bcrypt hash.
// It returns nil if the password matches, or an error otherwise.
func checkPasswordHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// withAuth wraps handlers with HTTP basic authentication against the
// configured username and bcrypt hash.  With no hash configured every
// request is rejected, so the status API is never open by accident.
func withAuth(username, passwordHash string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || passwordHash == "" ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			checkPasswordHash(pass, passwordHash) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="hatdriver"`)
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}
}
