package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gregkdunn/flipper-mcp/internal/config"
)

// authenticator reports whether a request carries valid credentials.
type authenticator func(r *http.Request) bool

// excludedPaths are paths that bypass authentication (e.g., health checks)
var excludedPaths = map[string]bool{
	"/health": true,
}

// NewMiddleware creates an authentication middleware for the SSE transport
// based on the configured auth type.
func NewMiddleware(settings config.AuthSettings) (func(http.Handler) http.Handler, error) {
	authn, challenge, err := authenticatorFor(settings)
	if err != nil {
		return nil, err
	}
	if authn == nil {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excludedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !authn(r) {
				if challenge != "" {
					w.Header().Set("WWW-Authenticate", challenge)
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// authenticatorFor selects and validates the authenticator for the given
// settings. A nil authenticator means no authentication is required.
func authenticatorFor(settings config.AuthSettings) (authenticator, string, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return nil, "", nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, "", fmt.Errorf("basic auth requires non-empty username and password")
		}
		return basicAuthenticator(settings.Basic), `Basic realm="Restricted"`, nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, "", fmt.Errorf("apikey auth requires at least one API key")
		}
		return apiKeyAuthenticator(settings.APIKeys), "", nil
	default:
		return nil, "", fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

func basicAuthenticator(settings config.BasicAuthSettings) authenticator {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		return ok && userMatch && passMatch
	}
}

func apiKeyAuthenticator(apiKeys []string) authenticator {
	return func(r *http.Request) bool {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			return false
		}
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
				return true
			}
		}
		return false
	}
}
