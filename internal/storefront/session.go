package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionMaxAge = 30 * 24 * time.Hour

type sessionKeyType struct{}

// sessions issues the anonymous session id that keys the cart. Ids that are
// not uuids are replaced.
type sessions struct {
	cookie string
	secure bool
}

func newSessions(cookie string, secure bool) *sessions {
	if cookie == "" {
		cookie = "bucheron_session"
	}
	return &sessions{cookie: cookie, secure: secure}
}

func (s *sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.cookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKeyType{}, id)))
	})
}

// sessionKey is empty outside the session middleware.
func sessionKey(r *http.Request) string {
	id, _ := r.Context().Value(sessionKeyType{}).(string)
	return id
}
