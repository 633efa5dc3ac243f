package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports 503 when ping fails. A nil ping means there is nothing to
// check (memory storage).
func Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				errorResponse(w, r, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}
