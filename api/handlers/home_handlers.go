package handlers

import "net/http"

// Home describes the API surface. It is the only unauthenticated route
// besides login and registration.
func Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to AI Safety Incident Log API",
		"version": "2.0",
		"endpoints": map[string]string{
			"GET /incidents":         "Get all incidents (with pagination and filtering)",
			"POST /incidents":        "Create a new incident",
			"GET /incidents/{id}":    "Get a specific incident",
			"PUT /incidents/{id}":    "Update an incident",
			"DELETE /incidents/{id}": "Delete an incident",
			"GET /incidents/search":  "Search incidents",
			"GET /incidents/stats":   "Get incident statistics",
		},
	})
}
