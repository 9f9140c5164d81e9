package handlers

import (
	"io"
	"net/http"

	"campusev/backend/libs/httpx"
	"campusev/backend/services/api-gateway/internal/clients"
)

const maxBodyBytes = 1 << 20

// Headers copied from the client to upstream services.
var passthroughHeaders = []string{httpx.RequestIDHeader, "Idempotency-Key"}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func forwardedHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(passthroughHeaders))
	for _, h := range passthroughHeaders {
		if v := r.Header.Get(h); v != "" {
			out[h] = v
		}
	}
	return out
}

func writeUpstream(w http.ResponseWriter, resp *clients.Response) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if v := resp.Headers.Get("Retry-After"); v != "" {
		w.Header().Set("Retry-After", v)
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
