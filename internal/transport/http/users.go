package http

import (
	"context"
	"net/http"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type UserDirectory interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	FirstUserWithRole(ctx context.Context, role domain.Role) (domain.User, error)
}

// HandleListUsers lists the directory. With ?role= it narrows to one role.
func HandleListUsers(svc UserDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var role domain.Role
		if q := r.URL.Query().Get("role"); q != "" {
			parsed, err := domain.ParseRole(q)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			role = parsed
		}

		users, err := svc.ListUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]userResponse, 0, len(users))
		for _, u := range users {
			if role == "" || u.Role == role {
				out = append(out, toUserResponse(u))
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HandleGetUser(svc UserDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetUser(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleGetDefaultUser returns the first user holding the role in the path.
// Clients without sign-in use it to pick their acting identity.
func HandleGetDefaultUser(svc UserDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.FirstUserWithRole(r.Context(), domain.Role(r.PathValue("role")))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}
