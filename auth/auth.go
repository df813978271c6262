package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct {
	name string
}

var userKey = &contextKey{"user"}

// DefaultUserHeader carries the acting user when no other header is configured.
const DefaultUserHeader = "X-Crm-User"

func WithContextUser(ctx context.Context, user string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userKey, user)
}

// ContextUser returns the acting user, or "" for anonymous requests.
func ContextUser(ctx context.Context) string {
	if ctx != nil {
		if val, ok := ctx.Value(userKey).(string); ok {
			return val
		}
	}
	return ""
}

// UserHandler copies the acting user from the request header into the request context.
func UserHandler(header string, handler http.Handler) http.Handler {
	if header == "" {
		header = DefaultUserHeader
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(header))
		if user != "" {
			r = r.WithContext(WithContextUser(r.Context(), user))
		}
		handler.ServeHTTP(w, r)
	})
}
