package main

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const tokenPrefix = "Bearer "

var (
	errMissingToken  = errors.New("missing authorization header")
	errMissingPrefix = errors.New(`missing "` + tokenPrefix + `" prefix`)
	errInvalidToken  = errors.New("invalid token")
)

// publicPaths do not require a token
var publicPaths = map[string]bool{"": true, "/": true, "/metrics": true}

// bearerAuthenticator checks the Authorization header of the requests against the configured token.
// An empty token disables the authentication.
type bearerAuthenticator struct {
	token []byte
}

func newBearerAuthenticator(token string) mux.MiddlewareFunc {
	return bearerAuthenticator{token: []byte(token)}.Middleware
}

// Middleware replies 401 without Authorization header, 403 with a bad one
func (a bearerAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !publicPaths[r.URL.Path] {
			if err := a.check(r.Header.Get("Authorization")); err != nil {
				code := http.StatusForbidden
				if errors.Is(err, errMissingToken) {
					w.Header().Set("WWW-Authenticate", "Bearer")
					code = http.StatusUnauthorized
				}
				w.WriteHeader(code)
				fmt.Fprintf(w, "%v", err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a bearerAuthenticator) check(header string) error {
	if len(a.token) == 0 {
		return nil
	}
	if header == "" {
		return errMissingToken
	}
	if !strings.HasPrefix(header, tokenPrefix) {
		return errMissingPrefix
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, tokenPrefix)), a.token) != 1 {
		return errInvalidToken
	}
	return nil
}
