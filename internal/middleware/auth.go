package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

const SessionCookieName = "growthquest_session"

// Sessions looks up a live session by its cookie token.
type Sessions interface {
	GetByToken(token string) (*model.Session, error)
}

// Children resolves a child's parent so child sessions get a family.
type Children interface {
	GetByID(id int64) (*model.Child, error)
}

// RequireAuth validates the session cookie and puts the auth.Actor on the
// request context. Failures get a JSON 401.
func RequireAuth(sessions Sessions, children Children) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			var actor auth.Actor
			switch sess.Role {
			case model.RoleParent:
				actor = auth.ParentActor(sess.ActorID)
			case model.RoleChild:
				child, err := children.GetByID(sess.ActorID)
				if err != nil || child == nil {
					unauthorized(w)
					return
				}
				actor = auth.ChildActor(*child)
			default:
				unauthorized(w)
				return
			}
			actor.SessionID = sess.ID

			ctx := auth.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent rejects child sessions.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			writeJSONError(w, http.StatusForbidden, "parent account required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "authentication required")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
