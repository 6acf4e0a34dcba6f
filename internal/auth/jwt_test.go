package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDecodeIssuedToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateAccessToken(42, "Ada", "")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	id, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.PlayerID != 42 {
		t.Errorf("expected player 42, got %d", id.PlayerID)
	}
	if id.Name != "Ada" {
		t.Errorf("expected name Ada, got %s", id.Name)
	}
	if id.IsAdmin() {
		t.Error("expected non-admin identity")
	}
	if id.ExpiresAt.IsZero() {
		t.Error("expected expiry to be decoded")
	}
}

func TestDecodeDoesNotNeedSecret(t *testing.T) {
	token, _ := NewJWTManager("server-only-secret").GenerateAccessToken(7, "", RoleAdmin)
	id, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !id.IsAdmin() {
		t.Error("expected admin identity")
	}
	if id.DisplayName() != "Player 7" {
		t.Errorf("unexpected display name %q", id.DisplayName())
	}
}

func TestDecodeFailures(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		PlayerID: 3,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredStr, _ := expired.SignedString([]byte("s"))

	noPlayer := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Name: "ghost"})
	noPlayerStr, _ := noPlayer.SignedString([]byte("s"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingCredential},
		{"whitespace", "   ", ErrMissingCredential},
		{"garbage", "not-a-jwt", ErrMalformedCredential},
		{"no player", noPlayerStr, ErrMalformedCredential},
		{"expired", expiredStr, ErrExpiredCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-one").GenerateAccessToken(1, "a", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTManager("secret-two").ValidateToken(token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	if _, err := mgr.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error for garbage token")
	}
	if _, err := mgr.ValidateToken(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredTokenRejectedByServer(t *testing.T) {
	mgr := &JWTManager{secret: []byte("test-secret"), accessExpiry: -1 * time.Second}
	token, err := mgr.GenerateAccessToken(1, "a", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}
