package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/NinePK/back-car/internal/config"
	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/security"
	"github.com/gorilla/mux"
)

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Middleware authenticates the request against the security level of the
// matched route and injects the caller into the request context.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if current := mux.CurrentRoute(r); current != nil {
			route = current.GetName()
		}
		level := config.GetSecurityLevel(route)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthenticated", "authorization token is not provided")
			return
		}

		claims, err := a.tokenManager.ValidateToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, security.ErrExpiredToken) {
				msg = "token has expired"
			}
			writeMessage(w, http.StatusUnauthorized, "unauthenticated", msg)
			return
		}

		if err := checkSecurityLevel(level, claims); err != nil {
			logger.DebugContext(r.Context(), "Role refused", "route", route, "user_id", claims.UserID, "role", claims.Role)
			writeMessage(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(security.WithActor(r.Context(), claims.Actor())))
	})
}

func extractToken(r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if token == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = strings.TrimSpace(token[7:])
	}
	return token, token != ""
}

func checkSecurityLevel(level config.SecurityLevel, claims *security.ActorClaims) error {
	switch level {
	case config.SecurityCustomer:
		if claims.Role != domain.RoleCustomer {
			return errors.New("customer role required")
		}
	case config.SecurityShop:
		if claims.Role != domain.RoleShop {
			return errors.New("shop role required")
		}
	}
	return nil
}
