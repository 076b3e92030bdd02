package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aegis-log/api/handlers"
	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/incidents"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

type ServerDeps struct {
	Users          store.UsersStore
	Sessions       store.SessionStore
	IncidentsSvc   *incidents.Service
	SessionManager *auth.SessionManager
}

type Server struct {
	cfg            *config.AppConfig
	logger         *utils.Logger
	users          store.UsersStore
	sessions       store.SessionStore
	incidentsSvc   *incidents.Service
	sessionManager *auth.SessionManager
	loginLimiter   *requestLimiter
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{
		cfg:            cfg,
		logger:         logger,
		users:          deps.Users,
		sessions:       deps.Sessions,
		incidentsSvc:   deps.IncidentsSvc,
		sessionManager: deps.SessionManager,
		loginLimiter:   newLimiter(5, time.Minute),
	}
}

func (s *Server) Routes() http.Handler {
	authHandler := handlers.NewAuthHandler(s.cfg, s.users, s.sessionManager, s.logger)
	incidentsHandler := handlers.NewIncidentsHandler(s.incidentsSvc, s.logger)

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware, s.jsonMiddleware, s.loggingMiddleware)

	r.Get("/", handlers.Home)

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", s.rateLimitMiddleware(authHandler.Login))
	r.Post("/auth/logout", s.withSession(authHandler.Logout))
	r.Get("/auth/me", s.withSession(authHandler.Me))

	r.MethodFunc(http.MethodGet, "/incidents", s.withSession(incidentsHandler.List))
	r.MethodFunc(http.MethodGet, "/incidents/search", s.withSession(incidentsHandler.Search))
	r.MethodFunc(http.MethodGet, "/incidents/stats", s.withSession(incidentsHandler.Stats))
	r.MethodFunc(http.MethodPost, "/incidents", s.withSession(incidentsHandler.Create))
	r.MethodFunc(http.MethodGet, "/incidents/{id:[0-9]+}", s.withSession(incidentsHandler.Get))
	r.MethodFunc(http.MethodPut, "/incidents/{id:[0-9]+}", s.withSession(incidentsHandler.Update))
	r.MethodFunc(http.MethodDelete, "/incidents/{id:[0-9]+}", s.withSession(incidentsHandler.Delete))

	return r
}
