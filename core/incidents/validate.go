package incidents

import (
	"strings"
	"unicode/utf8"

	"aegis-log/core/store"
)

const (
	maxTitleLen           = 200
	maxCategoryLen        = 50
	maxTagLen             = 50
	maxImpactScopeLen     = 200
	maxAffectedSystemsLen = 200
)

var validSeverities = []string{"low", "medium", "high", "critical"}
var validStatuses = []string{"open", "in_progress", "resolved", "closed"}

// NewIncident is the candidate field set for creation.
type NewIncident struct {
	Title              string
	Description        string
	Severity           string
	Category           string
	Status             string
	Tags               []string
	AssignedTo         *int64
	ResolutionNotes    string
	ImpactScope        string
	AffectedSystems    string
	MitigationSteps    string
	PreventionMeasures string
}

type Validation struct {
	Valid   bool
	Message string
}

func valid() Validation             { return Validation{Valid: true, Message: "Data is valid"} }
func invalid(msg string) Validation { return Validation{Valid: false, Message: msg} }

func isOneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateNew checks a creation candidate. Empty required fields count as
// missing; optional fields are checked only when supplied.
func ValidateNew(in NewIncident) Validation {
	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"severity", in.Severity},
		{"category", in.Category},
	} {
		if f.value == "" {
			return invalid("Missing required field: " + f.name)
		}
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return invalid("Title must be 200 characters or less")
	}
	if !isOneOf(in.Severity, validSeverities) {
		return invalid("Severity must be one of: " + strings.Join(validSeverities, ", "))
	}
	if in.Status != "" && !isOneOf(in.Status, validStatuses) {
		return invalid("Status must be one of: " + strings.Join(validStatuses, ", "))
	}
	if utf8.RuneCountInString(in.Category) > maxCategoryLen {
		return invalid("Category must be 50 characters or less")
	}
	if v := validateTags(in.Tags); !v.Valid {
		return v
	}
	if utf8.RuneCountInString(in.ImpactScope) > maxImpactScopeLen {
		return invalid("Impact scope must be 200 characters or less")
	}
	if utf8.RuneCountInString(in.AffectedSystems) > maxAffectedSystemsLen {
		return invalid("Affected systems must be 200 characters or less")
	}
	return valid()
}

// ValidatePatch checks each supplied field of a partial update in isolation;
// nil fields are not validated.
func ValidatePatch(patch store.IncidentPatch) Validation {
	if patch.Title != nil && utf8.RuneCountInString(*patch.Title) > maxTitleLen {
		return invalid("Title must be 200 characters or less")
	}
	if patch.Severity != nil && !isOneOf(*patch.Severity, validSeverities) {
		return invalid("Severity must be one of: " + strings.Join(validSeverities, ", "))
	}
	if patch.Status != nil && !isOneOf(*patch.Status, validStatuses) {
		return invalid("Status must be one of: " + strings.Join(validStatuses, ", "))
	}
	if patch.Category != nil && utf8.RuneCountInString(*patch.Category) > maxCategoryLen {
		return invalid("Category must be 50 characters or less")
	}
	if patch.Tags != nil {
		if v := validateTags(*patch.Tags); !v.Valid {
			return v
		}
	}
	if patch.ImpactScope != nil && utf8.RuneCountInString(*patch.ImpactScope) > maxImpactScopeLen {
		return invalid("Impact scope must be 200 characters or less")
	}
	if patch.AffectedSystems != nil && utf8.RuneCountInString(*patch.AffectedSystems) > maxAffectedSystemsLen {
		return invalid("Affected systems must be 200 characters or less")
	}
	return valid()
}

func validateTags(tags []string) Validation {
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > maxTagLen {
			return invalid("Each tag must be 50 characters or less")
		}
	}
	return valid()
}
