package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const tagsDelimiter = ","

type Incident struct {
	ID                 int64
	Title              string
	Description        string
	Severity           string
	Status             string
	Category           string
	Tags               []string
	ReportedBy         int64
	AssignedTo         *int64
	ReportedAt         time.Time
	UpdatedAt          time.Time
	ResolutionNotes    string
	ImpactScope        string
	AffectedSystems    string
	MitigationSteps    string
	PreventionMeasures string
}

// IncidentPatch carries a partial update: nil pointers leave the column
// untouched. AssignedToSet distinguishes "clear assignee" from "not supplied".
type IncidentPatch struct {
	Title              *string
	Description        *string
	Severity           *string
	Status             *string
	Category           *string
	Tags               *[]string
	AssignedTo         *int64
	AssignedToSet      bool
	ResolutionNotes    *string
	ImpactScope        *string
	AffectedSystems    *string
	MitigationSteps    *string
	PreventionMeasures *string
}

type IncidentFilter struct {
	Status   string
	Severity string
	Category string
	Page     int
	PerPage  int
}

type IncidentPage struct {
	Items []Incident
	Total int64
	Pages int
}

type IncidentStats struct {
	Total      int64
	BySeverity map[string]int64
	ByStatus   map[string]int64
	ByCategory map[string]int64
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	UpdateIncident(ctx context.Context, id int64, patch IncidentPatch) (*Incident, error)
	DeleteIncident(ctx context.Context, id int64) error
	ListIncidents(ctx context.Context, filter IncidentFilter) (*IncidentPage, error)
	SearchIncidents(ctx context.Context, query string) ([]Incident, error)
	Stats(ctx context.Context) (*IncidentStats, error)
	CountIncidents(ctx context.Context) (int64, error)
}

type incidentsStore struct {
	db      *sql.DB
	dialect string
}

func NewIncidentsStore(h *Handle) IncidentsStore {
	return &incidentsStore{db: h.DB, dialect: h.Dialect()}
}

const incidentColumns = `id, title, description, severity, status, category, tags, reported_by, assigned_to,
	reported_at, updated_at, resolution_notes, impact_scope, affected_systems, mitigation_steps, prevention_measures`

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident) (int64, error) {
	if strings.TrimSpace(incident.Status) == "" {
		incident.Status = "open"
	}
	// A caller-supplied reported_at survives (seed data); API creates leave
	// it zero and get stamped here.
	reportedAt := incident.ReportedAt
	if reportedAt.IsZero() {
		reportedAt = time.Now().UTC()
	}
	updatedAt := incident.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = reportedAt
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRowContext(ctx, rebind(s.dialect, `
		INSERT INTO incidents(title, description, severity, status, category, tags, reported_by, assigned_to,
			reported_at, updated_at, resolution_notes, impact_scope, affected_systems, mitigation_steps, prevention_measures)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		incident.Title, incident.Description, incident.Severity, incident.Status, incident.Category,
		encodeTags(incident.Tags), incident.ReportedBy, nullableID(incident.AssignedTo),
		reportedAt, updatedAt, incident.ResolutionNotes, incident.ImpactScope, incident.AffectedSystems,
		incident.MitigationSteps, incident.PreventionMeasures).Scan(&id)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	incident.ID = id
	incident.ReportedAt = reportedAt
	incident.UpdatedAt = updatedAt
	return id, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect,
		`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id)
	return scanIncident(row)
}

func (s *incidentsStore) UpdateIncident(ctx context.Context, id int64, patch IncidentPatch) (*Incident, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+"=?")
		args = append(args, value)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Severity != nil {
		set("severity", *patch.Severity)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Tags != nil {
		set("tags", encodeTags(*patch.Tags))
	}
	if patch.AssignedToSet {
		set("assigned_to", nullableID(patch.AssignedTo))
	}
	if patch.ResolutionNotes != nil {
		set("resolution_notes", *patch.ResolutionNotes)
	}
	if patch.ImpactScope != nil {
		set("impact_scope", *patch.ImpactScope)
	}
	if patch.AffectedSystems != nil {
		set("affected_systems", *patch.AffectedSystems)
	}
	if patch.MitigationSteps != nil {
		set("mitigation_steps", *patch.MitigationSteps)
	}
	if patch.PreventionMeasures != nil {
		set("prevention_measures", *patch.PreventionMeasures)
	}
	now := time.Now().UTC()
	set("updated_at", now)
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, rebind(s.dialect,
		`UPDATE incidents SET `+strings.Join(sets, ", ")+` WHERE id=?`), args...)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return nil, ErrNotFound
	}
	row := tx.QueryRowContext(ctx, rebind(s.dialect,
		`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id)
	incident, err := scanIncident(row)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *incidentsStore) DeleteIncident(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM incidents WHERE id=?`), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) (*IncidentPage, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, filter.Severity)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, filter.Category)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, rebind(s.dialect,
		`SELECT COUNT(*) FROM incidents`+where), args...).Scan(&total); err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 10
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))

	query := `SELECT ` + incidentColumns + ` FROM incidents` + where +
		` ORDER BY reported_at DESC, id DESC` +
		fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
	rows, err := s.db.QueryContext(ctx, rebind(s.dialect, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, err := collectIncidents(rows)
	if err != nil {
		return nil, err
	}
	return &IncidentPage{Items: items, Total: total, Pages: pages}, nil
}

func (s *incidentsStore) SearchIncidents(ctx context.Context, query string) ([]Incident, error) {
	needle := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, rebind(s.dialect, `
		SELECT `+incidentColumns+` FROM incidents
		WHERE LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?`),
		needle, needle, needle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIncidents(rows)
}

func (s *incidentsStore) Stats(ctx context.Context) (*IncidentStats, error) {
	stats := &IncidentStats{
		BySeverity: map[string]int64{},
		ByStatus:   map[string]int64{},
		ByCategory: map[string]int64{},
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&stats.Total); err != nil {
		return nil, err
	}
	for column, dest := range map[string]map[string]int64{
		"severity": stats.BySeverity,
		"status":   stats.ByStatus,
		"category": stats.ByCategory,
	} {
		if err := s.groupCounts(ctx, column, dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *incidentsStore) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *incidentsStore) groupCounts(ctx context.Context, column string, dest map[string]int64) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM incidents GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var value string
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return err
		}
		dest[value] = count
	}
	return rows.Err()
}

func encodeTags(tags []string) string {
	var kept []string
	for _, tag := range tags {
		if tag != "" {
			kept = append(kept, tag)
		}
	}
	return strings.Join(kept, tagsDelimiter)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, tagsDelimiter)
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncidentInto(row rowScanner) (*Incident, error) {
	var inc Incident
	var assignee sql.NullInt64
	var tagsRaw string
	if err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.Severity, &inc.Status, &inc.Category,
		&tagsRaw, &inc.ReportedBy, &assignee, &inc.ReportedAt, &inc.UpdatedAt,
		&inc.ResolutionNotes, &inc.ImpactScope, &inc.AffectedSystems, &inc.MitigationSteps,
		&inc.PreventionMeasures); err != nil {
		return nil, err
	}
	if assignee.Valid {
		inc.AssignedTo = &assignee.Int64
	}
	inc.Tags = decodeTags(tagsRaw)
	return &inc, nil
}

func scanIncident(row *sql.Row) (*Incident, error) {
	inc, err := scanIncidentInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inc, nil
}

func collectIncidents(rows *sql.Rows) ([]Incident, error) {
	items := []Incident{}
	for rows.Next() {
		inc, err := scanIncidentInto(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inc)
	}
	return items, rows.Err()
}
