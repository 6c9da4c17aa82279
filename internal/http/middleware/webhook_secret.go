package middleware

import (
	"crypto/subtle"
	"net/http"
)

// WebhookSecret gates the public inbound webhook on a shared token carried
// in the gateway's "apikey" header (or "webhook-token" for deployments that
// configure Evolution with a custom header). An empty configured secret
// disables the check, which is only acceptable in development.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get("apikey")
				if got == "" {
					got = r.Header.Get("webhook-token")
				}
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
