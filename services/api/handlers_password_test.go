package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"riz/pkg/auth"
)

func TestForgotPassword(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		wantNotice  bool
		wantTokenOn string
	}{
		{name: "by identifier", identifier: "maria", wantNotice: true, wantTokenOn: "maria"},
		{name: "by email any case", identifier: "Maria@Example.COM", wantNotice: true, wantTokenOn: "maria"},
		{name: "unknown", identifier: "ghost"},
		{name: "inactive", identifier: "former"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{AppURL: "https://riz.example"})
			mariaID := env.addUser(t, Account{User: User{Identifier: "maria", Email: "maria@example.com", Name: "Maria", Role: auth.RoleExpert}}, "secret123")
			formerID := env.addUser(t, Account{User: User{Identifier: "former", Email: "former@example.com", Name: "Former", Role: auth.RoleUser}, Status: statusInactive}, "secret123")

			rec := env.do(t, http.MethodPost, "/api/user/forgot-password", map[string]any{"identifier": tt.identifier})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if body["success"] != true || body["message"] != resetRequestedMessage {
				t.Fatalf("unexpected body %v", body)
			}

			if got := len(env.notifier.notices); (got == 1) != tt.wantNotice {
				t.Fatalf("notices = %d, wantNotice %v", got, tt.wantNotice)
			}
			if env.store.get(formerID).resetToken != nil {
				t.Fatal("inactive account received a reset token")
			}
			if !tt.wantNotice {
				if env.store.get(mariaID).resetToken != nil {
					t.Fatal("unexpected reset token")
				}
				return
			}

			stored := env.store.get(mariaID)
			if stored.resetToken == nil || stored.resetExpiry == nil {
				t.Fatal("reset token pair not stored")
			}
			if len(*stored.resetToken) != 64 {
				t.Fatalf("token %q is not 64 hex chars", *stored.resetToken)
			}
			if want := env.clock.now().Add(time.Hour); !stored.resetExpiry.Equal(want) {
				t.Fatalf("expiry = %s, want %s", stored.resetExpiry, want)
			}

			notice := env.notifier.notices[0]
			link, err := url.Parse(notice.Link)
			if err != nil {
				t.Fatalf("parse link: %v", err)
			}
			if link.Host != "riz.example" || link.Path != "/reset-password" || link.Query().Get("token") != *stored.resetToken {
				t.Fatalf("unexpected link %q", notice.Link)
			}
			if notice.Email != "maria@example.com" {
				t.Fatalf("notice sent to %q", notice.Email)
			}
			if len(env.events.subjects) != 1 || env.events.subjects[0] != resetRequestTopic {
				t.Fatalf("events = %v", env.events.subjects)
			}
		})
	}
}

func TestForgotPasswordResponsesAreIdentical(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addUser(t, Account{User: User{Identifier: "maria", Email: "maria@example.com", Name: "Maria", Role: auth.RoleExpert}}, "secret123")

	known := env.do(t, http.MethodPost, "/api/user/forgot-password", map[string]any{"identifier": "maria"})
	unknown := env.do(t, http.MethodPost, "/api/user/forgot-password", map[string]any{"identifier": "nobody"})

	if known.Code != unknown.Code || !bytes.Equal(known.Body.Bytes(), unknown.Body.Bytes()) {
		t.Fatalf("responses differ: %d %s vs %d %s", known.Code, known.Body, unknown.Code, unknown.Body)
	}
}

func TestForgotPasswordValidation(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, body := range []any{map[string]any{"identifier": ""}, map[string]any{"identifier": "   "}, "{}", "nope"} {
		rec := env.do(t, http.MethodPost, "/api/user/forgot-password", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestForgotPasswordDeliveryFailureClearsToken(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.addUser(t, Account{User: User{Identifier: "maria", Email: "maria@example.com", Name: "Maria", Role: auth.RoleExpert}}, "secret123")
	env.notifier.err = errors.New("smtp unavailable")

	rec := env.do(t, http.MethodPost, "/api/user/forgot-password", map[string]any{"identifier": "maria"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != resetRequestedMessage {
		t.Fatalf("message = %v", msg)
	}

	stored := env.store.get(id)
	if stored.resetToken != nil || stored.resetExpiry != nil {
		t.Fatal("token pair should be cleared after failed delivery")
	}
	if len(env.events.subjects) != 0 {
		t.Fatalf("no event expected, got %v", env.events.subjects)
	}
}

func requestResetToken(t *testing.T, env *testEnv, identifier string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/user/forgot-password", map[string]any{"identifier": identifier})
	if rec.Code != http.StatusOK || len(env.notifier.notices) == 0 {
		t.Fatalf("reset request failed: %d %s", rec.Code, rec.Body.String())
	}
	link, err := url.Parse(env.notifier.notices[len(env.notifier.notices)-1].Link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return link.Query().Get("token")
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.addUser(t, Account{User: User{Identifier: "maria", Email: "maria@example.com", Name: "Maria", Role: auth.RoleExpert}}, "oldpass1")
	token := requestResetToken(t, env, "maria")

	short := env.do(t, http.MethodPost, "/api/user-management/reset-password", map[string]any{"token": token, "password": "12345"})
	if short.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d", short.Code)
	}
	if env.store.get(id).resetToken == nil {
		t.Fatal("short password must not consume the token")
	}

	rec := env.do(t, http.MethodPost, "/api/user-management/reset-password", map[string]any{"token": token, "password": "newpass1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	stored := env.store.get(id)
	if stored.resetToken != nil || stored.resetExpiry != nil {
		t.Fatal("token pair not cleared")
	}
	if err := env.hasher.Compare(stored.PasswordHash, []byte("newpass1")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}

	login := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"identifier": "maria", "password": "newpass1"})
	if login.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d", login.Code)
	}

	again := env.do(t, http.MethodPost, "/api/user-management/reset-password", map[string]any{"token": token, "password": "another1"})
	if again.Code != http.StatusBadRequest {
		t.Fatalf("second use status = %d, want 400", again.Code)
	}
	if msg := decodeBody(t, again)["error"]; msg != ErrInvalidResetToken.Error() {
		t.Fatalf("error = %v", msg)
	}

	found := false
	for _, s := range env.events.subjects {
		if s == resetCompleteTopic {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s event in %v", resetCompleteTopic, env.events.subjects)
	}
}

func TestResetPasswordRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, env *testEnv, id int64, token string) map[string]any
	}{
		{
			name: "missing token",
			prepare: func(_ *testing.T, _ *testEnv, _ int64, _ string) map[string]any {
				return map[string]any{"password": "newpass1"}
			},
		},
		{
			name: "missing password",
			prepare: func(_ *testing.T, _ *testEnv, _ int64, token string) map[string]any {
				return map[string]any{"token": token}
			},
		},
		{
			name: "short password with bogus token",
			prepare: func(_ *testing.T, _ *testEnv, _ int64, _ string) map[string]any {
				return map[string]any{"token": "bogus", "password": "abc"}
			},
		},
		{
			name: "unknown token",
			prepare: func(_ *testing.T, _ *testEnv, _ int64, _ string) map[string]any {
				return map[string]any{"token": strings.Repeat("0", 64), "password": "newpass1"}
			},
		},
		{
			name: "expired token",
			prepare: func(_ *testing.T, env *testEnv, _ int64, token string) map[string]any {
				env.clock.advance(time.Hour + time.Second)
				return map[string]any{"token": token, "password": "newpass1"}
			},
		},
		{
			name: "expires exactly now",
			prepare: func(_ *testing.T, env *testEnv, _ int64, token string) map[string]any {
				env.clock.advance(time.Hour)
				return map[string]any{"token": token, "password": "newpass1"}
			},
		},
		{
			name: "account deactivated after request",
			prepare: func(_ *testing.T, env *testEnv, id int64, token string) map[string]any {
				env.store.get(id).Status = statusInactive
				return map[string]any{"token": token, "password": "newpass1"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			id := env.addUser(t, Account{User: User{Identifier: "maria", Email: "maria@example.com", Name: "Maria", Role: auth.RoleExpert}}, "oldpass1")
			token := requestResetToken(t, env, "maria")
			oldHash := env.store.get(id).PasswordHash

			rec := env.do(t, http.MethodPost, "/api/user-management/reset-password", tt.prepare(t, env, id, token))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if env.store.get(id).PasswordHash != oldHash {
				t.Fatal("password hash changed on a rejected reset")
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.addUser(t, Account{User: User{Identifier: "ion", Email: "ion@example.com", Name: "Ion", Role: auth.RoleAdvisor}}, "current1")
	cookie := env.sessionCookie(t, env.store.get(id).Account)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		body       any
		wantStatus int
	}{
		{name: "no session", body: map[string]any{"currentPassword": "current1", "newPassword": "newpass1"}, wantStatus: http.StatusUnauthorized},
		{name: "missing fields", cookie: cookie, body: map[string]any{"currentPassword": "current1"}, wantStatus: http.StatusBadRequest},
		{name: "short new password", cookie: cookie, body: map[string]any{"currentPassword": "current1", "newPassword": "abc"}, wantStatus: http.StatusBadRequest},
		{name: "wrong current password", cookie: cookie, body: map[string]any{"currentPassword": "wrong", "newPassword": "newpass1"}, wantStatus: http.StatusUnauthorized},
		{name: "user id in body is not accepted", cookie: cookie, body: map[string]any{"userId": 2, "currentPassword": "current1", "newPassword": "newpass1"}, wantStatus: http.StatusBadRequest},
		{name: "success", cookie: cookie, body: map[string]any{"currentPassword": "current1", "newPassword": "newpass1"}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookies []*http.Cookie
			if tt.cookie != nil {
				cookies = append(cookies, tt.cookie)
			}
			rec := env.do(t, http.MethodPost, "/api/user-management/change-password", tt.body, cookies...)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	if err := env.hasher.Compare(env.store.get(id).PasswordHash, []byte("newpass1")); err != nil {
		t.Fatalf("password not changed: %v", err)
	}
}
