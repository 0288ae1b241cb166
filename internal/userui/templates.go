package userui

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type templates struct {
	pages map[string]*template.Template
}

// baseView is embedded in every view; the layout reads Title and User.
type baseView struct {
	Title    string
	User     *domain.User
	Messages []string
}

type authView struct {
	baseView
	Providers []domain.Provider
	Errors    []string
	Username  string
	Email     string
	Display   string
}

type passwordView struct {
	baseView
	Token          string
	ChangeMessages []string
	ResetMessages  []string
}

type profileView struct {
	baseView
	DisplayName string
	Email       string
	Linked      []domain.Provider
}

type applicationsView struct {
	baseView
	Applications []domain.Application
}

type applicationFormView struct {
	baseView
	Action        string
	Editing       bool
	Application   domain.Application
	DateApplied   string
	StatusOptions []string
	Errors        []string
}

type errorView struct {
	baseView
	Status  int
	Message string
	Detail  string
}

var pageFiles = map[string]string{
	"home":             "templates/home.html",
	"about":            "templates/about.html",
	"contact":          "templates/contact.html",
	"login":            "templates/login.html",
	"register":         "templates/register.html",
	"profile":          "templates/profile.html",
	"password":         "templates/password.html",
	"applications":     "templates/applications.html",
	"application_form": "templates/application_form.html",
	"error":            "templates/error.html",
}

func parseTemplates() (*templates, error) {
	funcs := template.FuncMap{
		"providerLabel": providerLabel,
	}
	t := &templates{pages: make(map[string]*template.Template, len(pageFiles))}
	for name, file := range pageFiles {
		p, err := template.New("layout.html").Funcs(funcs).ParseFS(assets, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.pages[name] = p
	}
	return t, nil
}

func (t *templates) render(w http.ResponseWriter, status int, name string, data any) error {
	p, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return p.ExecuteTemplate(w, "layout.html", data)
}

func providerLabel(p domain.Provider) string {
	switch p {
	case domain.ProviderGitHub:
		return "GitHub"
	case domain.ProviderGoogle:
		return "Google"
	case domain.ProviderDiscord:
		return "Discord"
	default:
		return string(p)
	}
}
