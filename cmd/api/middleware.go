package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"hostelflow/auth"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "userID"
	ctxKeyRole   ctxKey = "role"
)

func userIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}

func roleFrom(ctx context.Context) auth.Role {
	if v, ok := ctx.Value(ctxKeyRole).(auth.Role); ok {
		return v
	}
	return ""
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.serverError(w, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token and stores the caller identity in
// the request context. An empty requiredRole admits any authenticated user.
func (s *Server) requireAuth(requiredRole auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization header missing or invalid"})
				return
			}

			userID, role, err := s.auth.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
				return
			}
			if requiredRole != "" && role != requiredRole {
				s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Insufficient role"})
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			ctx = context.WithValue(ctx, ctxKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
