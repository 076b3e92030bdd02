package incidents

import (
	"context"
	"errors"
	"fmt"

	"aegis-log/core/rbac"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

// ErrForbidden marks an authenticated principal lacking rights for the
// operation; distinct from store.ErrNotFound.
var ErrForbidden = errors.New("forbidden")

// ErrEmptyQuery rejects a blank search before touching the store.
var ErrEmptyQuery = errors.New("search query required")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Service orchestrates incident use cases: authorize, validate for writes,
// then invoke the store. It is the only principal-aware component.
type Service struct {
	store  store.IncidentsStore
	policy *rbac.Policy
	logger *utils.Logger
}

func NewService(incidents store.IncidentsStore, policy *rbac.Policy, logger *utils.Logger) *Service {
	return &Service{store: incidents, policy: policy, logger: logger}
}

func (s *Service) Create(ctx context.Context, principal rbac.Principal, in NewIncident) (*store.Incident, error) {
	if err := s.authorize(principal, rbac.ActionCreate, nil); err != nil {
		return nil, err
	}
	if v := ValidateNew(in); !v.Valid {
		return nil, &ValidationError{Message: v.Message}
	}
	incident := &store.Incident{
		Title:              in.Title,
		Description:        in.Description,
		Severity:           in.Severity,
		Status:             in.Status,
		Category:           in.Category,
		Tags:               in.Tags,
		ReportedBy:         principal.ID,
		AssignedTo:         in.AssignedTo,
		ResolutionNotes:    in.ResolutionNotes,
		ImpactScope:        in.ImpactScope,
		AffectedSystems:    in.AffectedSystems,
		MitigationSteps:    in.MitigationSteps,
		PreventionMeasures: in.PreventionMeasures,
	}
	if _, err := s.store.CreateIncident(ctx, incident); err != nil {
		return nil, err
	}
	s.logger.Printf("incident %d created by %s severity=%s", incident.ID, principal.Username, incident.Severity)
	return incident, nil
}

func (s *Service) Get(ctx context.Context, principal rbac.Principal, id int64) (*store.Incident, error) {
	if err := s.authorize(principal, rbac.ActionRead, nil); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

func (s *Service) List(ctx context.Context, principal rbac.Principal, filter store.IncidentFilter) (*store.IncidentPage, error) {
	if err := s.authorize(principal, rbac.ActionRead, nil); err != nil {
		return nil, err
	}
	return s.store.ListIncidents(ctx, filter)
}

func (s *Service) Search(ctx context.Context, principal rbac.Principal, query string) ([]store.Incident, error) {
	if err := s.authorize(principal, rbac.ActionRead, nil); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchIncidents(ctx, query)
}

func (s *Service) Stats(ctx context.Context, principal rbac.Principal) (*store.IncidentStats, error) {
	if err := s.authorize(principal, rbac.ActionRead, nil); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx)
}

// Update checks existence before authorization, so a missing id yields
// NotFound to every caller regardless of rights.
func (s *Service) Update(ctx context.Context, principal rbac.Principal, id int64, patch store.IncidentPatch) (*store.Incident, error) {
	current, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, rbac.ActionUpdate, current); err != nil {
		return nil, err
	}
	if v := ValidatePatch(patch); !v.Valid {
		return nil, &ValidationError{Message: v.Message}
	}
	updated, err := s.store.UpdateIncident(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("incident %d updated by %s", id, principal.Username)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, principal rbac.Principal, id int64) error {
	current, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(principal, rbac.ActionDelete, current); err != nil {
		return err
	}
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		return err
	}
	s.logger.Printf("incident %d deleted by %s", id, principal.Username)
	return nil
}

func (s *Service) mustGet(ctx context.Context, id int64) (*store.Incident, error) {
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, store.ErrNotFound
	}
	return incident, nil
}

func (s *Service) authorize(principal rbac.Principal, act rbac.Action, target *store.Incident) error {
	ok, err := s.policy.Can(principal, act, target)
	if err != nil {
		return fmt.Errorf("policy check: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
