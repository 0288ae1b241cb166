package oauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const discordCDN = "https://cdn.discordapp.com"

type Discord struct {
	Config  *oauth2.Config
	APIBase string
}

func NewDiscord(c Credentials) *Discord {
	return &Discord{
		Config:  c.config(endpoints.Discord, "identify", "email"),
		APIBase: "https://discord.com/api",
	}
}

func (d *Discord) Name() domain.Provider { return domain.ProviderDiscord }

func (d *Discord) AuthCodeURL(state string) string {
	return d.Config.AuthCodeURL(state)
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
}

func (d *Discord) Exchange(ctx context.Context, code string) (domain.ExternalProfile, error) {
	tok, err := exchange(ctx, d.Config, code)
	if err != nil {
		return domain.ExternalProfile{}, err
	}

	var u discordUser
	if err := getJSON(ctx, d.Config.Client(ctx, tok), d.APIBase+"/users/@me", &u); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("discord user: %w", err)
	}
	if u.ID == "" {
		return domain.ExternalProfile{}, fmt.Errorf("discord user: missing id")
	}

	p := domain.ExternalProfile{
		Provider:    domain.ProviderDiscord,
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: strings.TrimSpace(u.GlobalName),
	}
	if u.Verified {
		p.Email = strings.ToLower(strings.TrimSpace(u.Email))
	}
	if u.Avatar != "" {
		p.AvatarURL = fmt.Sprintf("%s/avatars/%s/%s.png", discordCDN, u.ID, u.Avatar)
	}
	return p, nil
}
