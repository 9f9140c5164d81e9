package httpx

import (
	"crypto/subtle"
	"net/http"
)

// GatewayTokenHeader carries the secret the api-gateway attaches to every
// upstream call.
const GatewayTokenHeader = "X-Gateway-Token"

// TrustGateway strips identityHeaders from requests that do not carry the
// gateway token, so only the gateway can assert who the caller is. The token
// never reaches handlers. An empty secret trusts nobody.
func TrustGateway(secret string, identityHeaders ...string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(GatewayTokenHeader))
			r.Header.Del(GatewayTokenHeader)
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				for _, h := range identityHeaders {
					r.Header.Del(h)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
