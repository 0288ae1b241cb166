package oauth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type GitHub struct {
	Config  *oauth2.Config
	APIBase string
}

func NewGitHub(c Credentials) *GitHub {
	return &GitHub{
		Config:  c.config(github.Endpoint, "read:user", "user:email"),
		APIBase: "https://api.github.com",
	}
}

func (g *GitHub) Name() domain.Provider { return domain.ProviderGitHub }

func (g *GitHub) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) Exchange(ctx context.Context, code string) (domain.ExternalProfile, error) {
	tok, err := exchange(ctx, g.Config, code)
	if err != nil {
		return domain.ExternalProfile{}, err
	}
	client := g.Config.Client(ctx, tok)

	var u githubUser
	if err := getJSON(ctx, client, g.APIBase+"/user", &u); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("github user: %w", err)
	}
	if u.ID == 0 {
		return domain.ExternalProfile{}, fmt.Errorf("github user: missing id")
	}

	email := u.Email
	if email == "" {
		// Private emails only show up on /user/emails. Failing here is not
		// fatal; the account just has no email.
		var emails []githubEmail
		if err := getJSON(ctx, client, g.APIBase+"/user/emails", &emails); err == nil {
			email = primaryEmail(emails)
		}
	}

	return domain.ExternalProfile{
		Provider:    domain.ProviderGitHub,
		ID:          strconv.FormatInt(u.ID, 10),
		Username:    u.Login,
		DisplayName: strings.TrimSpace(u.Name),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		AvatarURL:   u.AvatarURL,
	}, nil
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}
