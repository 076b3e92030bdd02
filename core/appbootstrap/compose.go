package appbootstrap

import (
	"aegis-log/api"
	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/incidents"
	"aegis-log/core/rbac"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	users      store.UsersStore
	incidents  store.IncidentsStore
	sweeper    *auth.SessionSweeper
}

func composeRuntime(cfg *config.AppConfig, h *store.Handle, logger *utils.Logger) (*runtimeComposition, error) {
	users := store.NewUsersStore(h)
	sessions := store.NewSessionsStore(h)
	incidentsStore := store.NewIncidentsStore(h)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	incidentsSvc := incidents.NewService(incidentsStore, policy, logger)
	sweeper := auth.NewSessionSweeper(cfg.Sweeper, sessions, logger)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Users:          users,
			Sessions:       sessions,
			IncidentsSvc:   incidentsSvc,
			SessionManager: sessionManager,
		},
		users:     users,
		incidents: incidentsStore,
		sweeper:   sweeper,
	}, nil
}
