package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "claims"

// Player-facing rejections, in the game server's language.
const (
	msgMissingToken = "Token no proporcionado"
	msgInvalidToken = "Token inválido o expirado"
	msgNoPlayer     = "Token sin jugador asociado"
)

// Middleware verifies the credential the way the game server does and stores
// the claims in the request context. The credential is read from a bearer
// Authorization header or, for websocket upgrades, the token query parameter.
// Tokens that name no player are refused. Used by the in-process test servers.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := credentialFrom(r)
			if !ok {
				reject(w, msgMissingToken)
				return
			}
			claims, err := jwtMgr.ValidateToken(token)
			if err != nil {
				reject(w, msgInvalidToken)
				return
			}
			if claims.PlayerID == 0 {
				reject(w, msgNoPlayer)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func credentialFrom(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		return token, found && strings.EqualFold(scheme, "bearer") && token != ""
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	return token, token != ""
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ClaimsFromContext returns the verified claims of the request, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// IdentityFromContext returns the verified player behind the request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	c := ClaimsFromContext(ctx)
	if c == nil {
		return Identity{}, false
	}
	id := Identity{PlayerID: c.PlayerID, Name: c.Name, Role: c.Role}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id, true
}
