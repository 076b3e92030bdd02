package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aegis-log/core/auth"
	"aegis-log/core/rbac"
	"aegis-log/core/store"
)

// timestampLayout matches the wire format of reported_at / updated_at.
const timestampLayout = "2006-01-02T15:04:05Z"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func principalFrom(r *http.Request) rbac.Principal {
	if p, ok := r.Context().Value(auth.PrincipalContextKey).(rbac.Principal); ok {
		return p
	}
	return rbac.Principal{}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ClientIP is shared with the api middleware so rate limiting and session
// records key on the same address.
func ClientIP(r *http.Request) string {
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	return strings.TrimSpace(ip)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func incidentDTO(in *store.Incident) map[string]any {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":                  in.ID,
		"title":               in.Title,
		"description":         in.Description,
		"severity":            in.Severity,
		"status":              in.Status,
		"category":            in.Category,
		"tags":                tags,
		"reported_by":         in.ReportedBy,
		"assigned_to":         in.AssignedTo,
		"reported_at":         formatTimestamp(in.ReportedAt),
		"updated_at":          formatTimestamp(in.UpdatedAt),
		"resolution_notes":    in.ResolutionNotes,
		"impact_scope":        in.ImpactScope,
		"affected_systems":    in.AffectedSystems,
		"mitigation_steps":    in.MitigationSteps,
		"prevention_measures": in.PreventionMeasures,
	}
}

func incidentDTOs(items []store.Incident) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, incidentDTO(&items[i]))
	}
	return out
}

func userDTO(u *store.User) map[string]any {
	return map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"is_admin": u.IsAdmin,
	}
}
