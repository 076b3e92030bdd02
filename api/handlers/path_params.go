package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func urlParam(r *http.Request, key string) string {
	if v := chi.URLParam(r, key); v != "" {
		return v
	}
	// Fallback for direct handler tests without chi route context.
	segments := strings.Split(strings.Trim(strings.TrimSpace(r.URL.Path), "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "incidents" && strings.TrimSpace(segments[i+1]) != "" {
			return segments[i+1]
		}
	}
	return ""
}

func incidentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(urlParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
