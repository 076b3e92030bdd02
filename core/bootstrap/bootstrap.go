package bootstrap

import (
	"context"
	"fmt"
	"time"

	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

// EnsureDefaultAdmin creates the configured admin account on first start.
// An existing account with the same username is left untouched.
func EnsureDefaultAdmin(ctx context.Context, users store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	username := cfg.Bootstrap.AdminUsername
	if username == "" {
		username = "admin"
	}
	existing, err := users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup admin %q: %w", username, err)
	}
	if existing != nil {
		return nil
	}

	password := cfg.Bootstrap.AdminPassword
	generated := false
	if password == "" {
		password, err = utils.RandString(16)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}
	ph, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	email := cfg.Bootstrap.AdminEmail
	if email == "" {
		email = username + "@localhost"
	}
	admin := &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		IsAdmin:      true,
	}
	if _, err := users.Create(ctx, admin); err != nil {
		if err == store.ErrConflict {
			return nil
		}
		return fmt.Errorf("create admin %q: %w", username, err)
	}
	if generated {
		logger.Printf("BOOTSTRAP created admin %q with generated password: %s", username, password)
	} else {
		logger.Printf("BOOTSTRAP created admin %q", username)
	}
	return nil
}

type sampleIncident struct {
	title       string
	description string
	severity    string
	category    string
	tags        []string
	reportedAt  time.Time
}

var sampleIncidents = []sampleIncident{
	{
		title:       "Chatbot Producing Harmful Content",
		description: "AI chatbot started generating unsafe content after a prompt injection attack.",
		severity:    "high",
		category:    "content_safety",
		tags:        []string{"chatbot", "prompt-injection"},
		reportedAt:  time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC),
	},
	{
		title:       "Bias in Job Recommendation Algorithm",
		description: "AI system showing gender bias in software engineering job recommendations.",
		severity:    "medium",
		category:    "fairness",
		tags:        []string{"bias", "recommendations"},
		reportedAt:  time.Date(2025, 4, 2, 9, 15, 0, 0, time.UTC),
	},
	{
		title:       "Data Privacy Breach",
		description: "AI system accidentally included private user data in its training dataset.",
		severity:    "high",
		category:    "privacy",
		tags:        []string{"training-data", "pii"},
		reportedAt:  time.Date(2025, 4, 3, 11, 45, 0, 0, time.UTC),
	},
}

// SeedSampleIncidents inserts a few demo records, attributed to the admin
// account. A database that already holds incidents is never touched.
func SeedSampleIncidents(ctx context.Context, incidents store.IncidentsStore, users store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	count, err := incidents.CountIncidents(ctx)
	if err != nil {
		return fmt.Errorf("count incidents: %w", err)
	}
	if count > 0 {
		logger.Printf("BOOTSTRAP database already has data, skipping sample incidents")
		return nil
	}
	username := cfg.Bootstrap.AdminUsername
	if username == "" {
		username = "admin"
	}
	admin, err := users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup admin %q: %w", username, err)
	}
	if admin == nil {
		return fmt.Errorf("admin %q missing, cannot attribute sample incidents", username)
	}
	for _, s := range sampleIncidents {
		incident := &store.Incident{
			Title:       s.title,
			Description: s.description,
			Severity:    s.severity,
			Category:    s.category,
			Tags:        s.tags,
			ReportedBy:  admin.ID,
			ReportedAt:  s.reportedAt,
			UpdatedAt:   s.reportedAt,
		}
		if _, err := incidents.CreateIncident(ctx, incident); err != nil {
			return fmt.Errorf("seed incident %q: %w", s.title, err)
		}
	}
	logger.Printf("BOOTSTRAP seeded %d sample incidents", len(sampleIncidents))
	return nil
}
