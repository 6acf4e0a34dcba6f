package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, mgr *JWTManager, req *http.Request) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	Middleware(mgr)(inner).ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareAcceptsPlayerCredential(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	player, _ := mgr.GenerateAccessToken(42, "Ada", "")
	admin, _ := mgr.GenerateAccessToken(1, "Root", RoleAdmin)

	tests := []struct {
		name    string
		req     func() *http.Request
		player  int
		isAdmin bool
	}{
		{"bearer header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/partidas/9", nil)
			r.Header.Set("Authorization", "Bearer "+player)
			return r
		}, 42, false},
		{"lowercase scheme", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/partidas/9", nil)
			r.Header.Set("Authorization", "bearer "+player)
			return r
		}, 42, false},
		{"websocket query token", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/ws?token="+player, nil)
		}, 42, false},
		{"admin role", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/partidas/9/iniciar", nil)
			r.Header.Set("Authorization", "Bearer "+admin)
			return r
		}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, id := serve(t, mgr, tt.req())
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if id == nil || id.PlayerID != tt.player {
				t.Fatalf("expected player %d in context, got %+v", tt.player, id)
			}
			if id.IsAdmin() != tt.isAdmin {
				t.Errorf("expected admin=%v, got role %q", tt.isAdmin, id.Role)
			}
			if id.ExpiresAt.IsZero() {
				t.Error("expected expiry carried into the identity")
			}
		})
	}
}

func TestMiddlewareRejects(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	noPlayer, _ := mgr.GenerateAccessToken(0, "Ghost", "")
	foreign, _ := NewJWTManager("other-secret").GenerateAccessToken(42, "Ada", "")

	tests := []struct {
		name   string
		header string
		query  string
		msg    string
	}{
		{"no credential", "", "", msgMissingToken},
		{"wrong scheme", "Token abc123", "", msgMissingToken},
		{"empty bearer", "Bearer ", "", msgMissingToken},
		{"garbage token", "Bearer invalid.jwt.token", "", msgInvalidToken},
		{"signed elsewhere", "Bearer " + foreign, "", msgInvalidToken},
		{"no player claim", "Bearer " + noPlayer, "", msgNoPlayer},
		{"bad query token", "", "nope", msgInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/jugadas"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, id := serve(t, mgr, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if id != nil {
				t.Errorf("handler reached with %+v", id)
			}
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != tt.msg {
				t.Errorf("expected error %q, got %q (%v)", tt.msg, rec.Body.String(), err)
			}
		})
	}
}

func TestIdentityFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/partidas", nil)
	if c := ClaimsFromContext(req.Context()); c != nil {
		t.Errorf("expected no claims without auth, got %+v", c)
	}
	if _, ok := IdentityFromContext(req.Context()); ok {
		t.Error("expected no identity without auth")
	}
}
