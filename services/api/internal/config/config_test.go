package config

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

const goodSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_DSN":     "postgres://riz@localhost/riz",
		"JWT_SECRET": goodSecret,
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Addr != ":8080" || cfg.AppURL != "http://localhost:3000" || cfg.BcryptCost != 12 || cfg.LoginRateLimit != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Production() || cfg.CookieSecure() {
		t.Fatal("development must not mark cookies secure")
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Fatalf("Level() = %v", cfg.Level())
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "missing dsn",
			env:     map[string]string{"JWT_SECRET": goodSecret},
			wantErr: "DB_DSN",
		},
		{
			name:    "short secret",
			env:     map[string]string{"DB_DSN": "x", "JWT_SECRET": "short"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "cost out of range",
			env:     map[string]string{"DB_DSN": "x", "JWT_SECRET": goodSecret, "BCRYPT_COST": "40"},
			wantErr: "BCRYPT_COST",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"DB_DSN": "x", "JWT_SECRET": goodSecret, "LOG_LEVEL": "loud"},
			wantErr: "LOG_LEVEL",
		},
		{
			name: "production",
			env: map[string]string{
				"DB_DSN":               "x",
				"JWT_SECRET":           goodSecret,
				"APP_ENV":              "Production",
				"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
				"LOG_LEVEL":            "debug",
			},
			check: func(t *testing.T, cfg Config) {
				if !cfg.CookieSecure() {
					t.Fatal("production must mark cookies secure")
				}
				if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
					t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
				}
				if cfg.Level() != zerolog.DebugLevel {
					t.Fatalf("Level() = %v", cfg.Level())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(context.Background(), envconfig.MapLookuper(tt.env))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("load() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
