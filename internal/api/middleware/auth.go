package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	msgMissingCredentials = "требуется аутентификация"
	msgInvalidToken       = "недействительный токен"
	msgInvalidUserID      = "некорректный ID пользователя"
)

// Auth аутентифицирует запрос и кладёт domain.Actor в контекст
// Если secret задан, принимается только Bearer JWT (HS256, claims sub и role).
// Иначе доверяем заголовкам X-User-ID и X-User-Role от API gateway.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				actor domain.Actor
				msg   string
				err   error
			)
			if secret != "" {
				actor, msg, err = actorFromToken(r, secret)
			} else {
				actor, msg, err = actorFromHeaders(r)
			}
			if err != nil {
				respondUnauthorized(w, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromToken(r *http.Request, secret string) (domain.Actor, string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Actor{}, msgMissingCredentials, fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Actor{}, msgInvalidToken, fmt.Errorf("invalid authorization header")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.Actor{}, msgInvalidToken, fmt.Errorf("invalid token: %v", err)
	}

	userID, err := extractUserID(claims)
	if err != nil {
		return domain.Actor{}, msgInvalidToken, err
	}

	role, _ := claims["role"].(string)
	return domain.Actor{UserID: userID, Role: domain.ParseRole(role)}, "", nil
}

func actorFromHeaders(r *http.Request) (domain.Actor, string, error) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return domain.Actor{}, msgMissingCredentials, fmt.Errorf("missing %s header", HeaderUserID)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Actor{}, msgInvalidUserID, fmt.Errorf("invalid %s header %q", HeaderUserID, raw)
	}
	return domain.Actor{UserID: userID, Role: domain.ParseRole(r.Header.Get(HeaderUserRole))}, "", nil
}

func extractUserID(claims jwt.MapClaims) (int64, error) {
	var id int64
	switch v := claims["sub"].(type) {
	case float64:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid sub claim %q", v)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("sub claim not present")
	}
	if id <= 0 {
		return 0, fmt.Errorf("sub claim must be positive")
	}
	return id, nil
}

// WithActor кладёт актора в контекст
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor извлекает актора из контекста
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(ctx context.Context) (int64, bool) {
	actor, ok := GetActor(ctx)
	if !ok {
		return 0, false
	}
	return actor.UserID, true
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
