package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riz/pkg/telemetry"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{a.config.AppURL}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.Middleware(a.config.ServiceName, a.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(a.config.AuthRateLimit, time.Minute))
			r.Post("/auth/login", a.handleLogin)
			r.Post("/user/forgot-password", a.handleForgotPassword)
			r.Post("/user-management/reset-password", a.handleResetPassword)
			r.Post("/user-management/change-password", a.handleChangePassword)
			r.Post("/user-management/register", a.handleRegister)
			r.Post("/user-management/add-user", a.handleAddUser)
		})

		r.Post("/auth/logout", a.handleLogout)
		r.Get("/auth/session", a.handleSession)
		r.Get("/users/subordinates", a.handleSubordinates)
		r.Get("/team-members", a.handleTeamMembers)

		r.Get("/admin/users", a.handleListUsers)
		r.Post("/admin/users", a.handleSaveUser)
		r.Get("/profile", a.handleGetProfile)
		r.Put("/profile", a.handleUpdateProfile)
	})

	return r, nil
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.users.Ping(ctx); err != nil {
		a.log.Warn().Err(err).Msg("readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
