package web

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/studyhallhq/studyhall/auth"
	"github.com/studyhallhq/studyhall/types"
)

const sessionCookieName = "studyhall_session"

// withUser decodes the session cookie into the request context. It is
// fail-open; the service layer rejects unauthenticated calls.
func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		var user types.User
		if err := h.Cookies.Decode(sessionCookieName, cookie.Value, &user); err != nil || user.ID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueSessionCookie builds the session cookie for a logged in user.
// The host app calls this from its own login flow.
func IssueSessionCookie(sc *securecookie.SecureCookie, user types.User) (*http.Cookie, error) {
	value, err := sc.Encode(sessionCookieName, user)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int((time.Hour * 24 * 7).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
