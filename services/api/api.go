package api

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"riz/pkg/auth"
	"riz/pkg/render"
)

const (
	defaultServiceName   = "riz-api"
	defaultAppURL        = "http://localhost:3000"
	defaultAuthRateLimit = 20
)

// Config controls runtime behaviour for the API handlers.
type Config struct {
	ServiceName    string
	AppURL         string
	CookieSecure   bool
	AllowedOrigins []string
	// AuthRateLimit is the number of requests per minute and client IP
	// accepted on login, password and account-creation routes.
	AuthRateLimit int
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	users    UserStore
	tokens   *auth.TokenIssuer
	hasher   *auth.Hasher
	notifier ResetNotifier
	events   EventPublisher
	config   Config
	log      zerolog.Logger
	now      func() time.Time
}

// Option customises an API.
type Option func(*API)

// WithLogger sets the logger used for request failures and notices.
func WithLogger(l zerolog.Logger) Option {
	return func(a *API) { a.log = l }
}

// WithEvents enables auth event publishing.
func WithEvents(p EventPublisher) Option {
	return func(a *API) { a.events = p }
}

// WithNotifier replaces the default template-based reset notifier.
func WithNotifier(n ResetNotifier) Option {
	return func(a *API) { a.notifier = n }
}

// WithClock overrides the time source used for reset expiry.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

// New initialises the API layer with defaults applied to the provided configuration.
func New(users UserStore, tokens *auth.TokenIssuer, hasher *auth.Hasher, renderer *render.Engine, cfg Config, opts ...Option) (*API, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if cfg.AppURL == "" {
		cfg.AppURL = defaultAppURL
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = defaultAuthRateLimit
	}

	a := &API{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		config: cfg,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.notifier == nil {
		if renderer == nil {
			return nil, errors.New("renderer is required")
		}
		a.notifier = &templateNotifier{renderer: renderer, log: a.log, events: a.events}
	}

	return a, nil
}
