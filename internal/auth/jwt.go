package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpiredCredential   = errors.New("credential expired")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// RoleAdmin is the role claim carried by administrator accounts.
const RoleAdmin = "admin"

// Claims holds the JWT payload issued by the game server.
type Claims struct {
	PlayerID int    `json:"jugadorId"`
	Name     string `json:"name"`
	Role     string `json:"rol,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the decoded player behind a credential.
type Identity struct {
	PlayerID  int
	Name      string
	Role      string
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// DisplayName returns the player name, falling back to a generic label.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return "Player " + strconv.Itoa(i.PlayerID)
}

// Decode reads the identity out of a bearer credential without verifying its
// signature. The server remains the only party that verifies tokens.
func Decode(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingCredential
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, ErrMalformedCredential
	}
	if claims.PlayerID == 0 {
		return Identity{}, ErrMalformedCredential
	}
	id := Identity{PlayerID: claims.PlayerID, Name: claims.Name, Role: claims.Role}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if time.Now().After(id.ExpiresAt) {
			return id, ErrExpiredCredential
		}
	}
	return id, nil
}

// JWTManager signs and validates tokens. The client never holds the secret;
// it backs development tooling and the in-process test server.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: 24 * time.Hour,
	}
}

// GenerateAccessToken creates an access token for the given player.
func (m *JWTManager) GenerateAccessToken(playerID int, name, role string) (string, error) {
	claims := &Claims{
		PlayerID: playerID,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   strconv.Itoa(playerID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
