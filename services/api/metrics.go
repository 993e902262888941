package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riz",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	passwordResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riz",
		Subsystem: "auth",
		Name:      "password_reset_total",
		Help:      "Password reset requests and confirmations by outcome.",
	}, []string{"stage", "outcome"})

	hierarchyQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riz",
		Name:      "hierarchy_queries_total",
		Help:      "Subordinate and team lookups by outcome.",
	}, []string{"query", "outcome"})

	userAdmin = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riz",
		Subsystem: "users",
		Name:      "admin_actions_total",
		Help:      "User management and profile requests by action and outcome.",
	}, []string{"action", "outcome"})
)
