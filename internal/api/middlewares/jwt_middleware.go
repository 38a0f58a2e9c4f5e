package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markdave123-py/CoachHub/internal/core/functions"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// ActingAsHeader carries the client id a staff member is viewing the app as.
const ActingAsHeader = "X-Acting-As"

type viewerKey struct{}

// WithViewer stores the viewer on ctx.
func WithViewer(ctx context.Context, v models.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the viewer set by JWTMiddleware.
func ViewerFrom(ctx context.Context) (models.Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(models.Viewer)
	return v, ok
}

// JWTMiddleware validates the platform token in the Authorization header
// and attaches the viewer to the request context. The raw token is kept
// so remote functions run as the caller.
func JWTMiddleware(secret []byte) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing or invalid token")
				return
			}

			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, keyFunc)
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}

			email, _ := claims["email"].(string)
			if email == "" {
				unauthorized(w, "invalid token claims")
				return
			}
			role, _ := claims["role"].(string)
			if role == "" {
				role = models.RoleClient
			}
			viewer := models.Viewer{Email: email, Role: role}

			if actingAs := strings.TrimSpace(r.Header.Get(ActingAsHeader)); actingAs != "" {
				if !viewer.CanActAs() {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "this account cannot view as a client")
					return
				}
				viewer.ActingAsID = actingAs
			}

			ctx := WithViewer(r.Context(), viewer)
			ctx = functions.WithUserToken(ctx, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
