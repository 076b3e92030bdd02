package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"aegis-log/core/incidents"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

type IncidentsHandler struct {
	svc    *incidents.Service
	logger *utils.Logger
}

func NewIncidentsHandler(svc *incidents.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{svc: svc, logger: logger}
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.IncidentFilter{
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		Severity: strings.TrimSpace(r.URL.Query().Get("severity")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Page:     queryInt(r, "page", 1),
		PerPage:  queryInt(r, "per_page", 10),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	page, err := h.svc.List(r.Context(), principalFrom(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incidents":    incidentDTOs(page.Items),
		"total":        page.Total,
		"pages":        page.Pages,
		"current_page": filter.Page,
	})
}

func (h *IncidentsHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), principalFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incidentDTOs(results))
}

func (h *IncidentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), principalFrom(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_incidents": stats.Total,
		"by_severity":     stats.BySeverity,
		"by_status":       stats.ByStatus,
		"by_category":     stats.ByCategory,
	})
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	var in incidents.NewIncident
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"title", &in.Title},
		{"description", &in.Description},
		{"severity", &in.Severity},
		{"category", &in.Category},
		{"status", &in.Status},
		{"resolution_notes", &in.ResolutionNotes},
		{"impact_scope", &in.ImpactScope},
		{"affected_systems", &in.AffectedSystems},
		{"mitigation_steps", &in.MitigationSteps},
		{"prevention_measures", &in.PreventionMeasures},
	} {
		v, err := body.str(f.key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*f.dst = v
	}
	if body.has("tags") {
		tags, err := body.tags()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Tags = tags
	}
	if body.has("assigned_to") {
		assignee, err := body.id("assigned_to")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.AssignedTo = assignee
	}
	created, err := h.svc.Create(r.Context(), principalFrom(r), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, incidentDTO(created))
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}
	incident, err := h.svc.Get(r.Context(), principalFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incidentDTO(incident))
}

func (h *IncidentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	var patch store.IncidentPatch
	for _, f := range []struct {
		key string
		dst **string
	}{
		{"title", &patch.Title},
		{"description", &patch.Description},
		{"severity", &patch.Severity},
		{"status", &patch.Status},
		{"category", &patch.Category},
		{"resolution_notes", &patch.ResolutionNotes},
		{"impact_scope", &patch.ImpactScope},
		{"affected_systems", &patch.AffectedSystems},
		{"mitigation_steps", &patch.MitigationSteps},
		{"prevention_measures", &patch.PreventionMeasures},
	} {
		p, err := body.strPtr(f.key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*f.dst = p
	}
	if body.has("tags") {
		tags, err := body.tags()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Tags = &tags
	}
	if body.has("assigned_to") {
		assignee, err := body.id("assigned_to")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.AssignedTo = assignee
		patch.AssignedToSet = true
	}
	updated, err := h.svc.Update(r.Context(), principalFrom(r), id, patch)
	if err != nil {
		if errors.Is(err, incidents.ErrForbidden) {
			writeError(w, http.StatusForbidden, "Unauthorized to update this incident")
			return
		}
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incidentDTO(updated))
}

func (h *IncidentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}
	if err := h.svc.Delete(r.Context(), principalFrom(r), id); err != nil {
		if errors.Is(err, incidents.ErrForbidden) {
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Incident deleted successfully"})
}

func (h *IncidentsHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *incidents.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, incidents.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Search query required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Incident not found")
	case errors.Is(err, incidents.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusInternalServerError, "Database integrity error")
	default:
		h.logger.Errorf("incidents: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// incidentBody distinguishes absent fields from supplied ones, which a
// struct decode cannot do for partial updates.
type incidentBody map[string]json.RawMessage

func decodeBody(w http.ResponseWriter, r *http.Request) (incidentBody, bool) {
	var body incidentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if body == nil {
		body = incidentBody{}
	}
	return body, true
}

func (b incidentBody) has(key string) bool {
	_, ok := b[key]
	return ok
}

func (b incidentBody) str(key string) (string, error) {
	p, err := b.strPtr(key)
	if err != nil || p == nil {
		return "", err
	}
	return *p, nil
}

func (b incidentBody) strPtr(key string) (*string, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("Invalid value for field: " + key)
	}
	return &s, nil
}

// id decodes a nullable reference: an explicit JSON null yields a nil
// pointer, distinct from the key being absent.
func (b incidentBody) id(key string) (*int64, error) {
	raw, ok := b[key]
	if !ok {
		return nil, nil
	}
	var n *int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errors.New("Invalid value for field: " + key)
	}
	return n, nil
}

func (b incidentBody) tags() ([]string, error) {
	raw, ok := b["tags"]
	if !ok {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, errors.New("Tags must be provided as a list")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
