package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName — cookie браузерной сессии; ключ корзины и pending-маркера.
const SessionCookieName = "storefront_session"

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	customerIDKey
)

// SessionMiddleware выдаёт cookie сессии, если его ещё нет, и кладёт
// идентификатор сессии в контекст запроса. onSession (опционально)
// вызывается на каждом запросе с идентификатором сессии.
func SessionMiddleware(onSession func(sessionID string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if onSession != nil {
				onSession(sessionID)
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware извлекает идентификатор покупателя из Bearer JWT.
// При пустом секрете (dev-режим) покупателем считается гость с id,
// производным от сессии.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				customerID := "guest-" + SessionIDFromContext(r.Context())
				ctx := context.WithValue(r.Context(), customerIDKey, customerID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected token signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
				return
			}
			customerID, _ := claims["customer_id"].(string)
			if customerID == "" {
				customerID, _ = claims["sub"].(string)
			}
			if customerID == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "token carries no customer id")
				return
			}

			ctx := context.WithValue(r.Context(), customerIDKey, customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext возвращает идентификатор браузерной сессии.
func SessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// CustomerIDFromContext возвращает идентификатор покупателя.
func CustomerIDFromContext(ctx context.Context) string {
	if customerID, ok := ctx.Value(customerIDKey).(string); ok {
		return customerID
	}
	return ""
}
