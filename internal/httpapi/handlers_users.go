package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email,omitempty"`
	AvatarURL      string    `json:"avatar_url"`
	LinkedAccounts []string  `json:"linked_accounts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	linked := make([]string, 0, len(u.ExternalIDs))
	for p, id := range u.ExternalIDs {
		if id != "" {
			linked = append(linked, string(p))
		}
	}
	sort.Strings(linked)
	return userResponse{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.Name(),
		Email:          u.Email,
		AvatarURL:      u.Avatar(),
		LinkedAccounts: linked,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func userETag(u domain.User) string {
	return fmt.Sprintf(`W/"%s-%d"`, u.ID, u.UpdatedAt.UnixMilli())
}

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=0")
	etag := userETag(u)
	w.Header().Set("ETag", etag)
	if match := strings.TrimSpace(r.Header.Get("If-None-Match")); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}
