package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreMongo    StoreKind = "mongo"
	StorePostgres StoreKind = "postgres"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	DBName       string
	RedisURL     string
	CookieSecret string
	SessionTTL   time.Duration
	LogLevel     string
	UploadDir    string
	LoginRate    string

	// FrontendOrigins are allowed to call the JSON API cross-origin.
	FrontendOrigins []string

	GitHub  OAuthClient
	Google  OAuthClient
	Discord OAuthClient

	S3   S3Config
	SMTP SMTPConfig

	cookieSecure *bool
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (o OAuthClient) Enabled() bool { return o.ClientID != "" && o.ClientSecret != "" }

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (s S3Config) Enabled() bool { return s.Bucket != "" }

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
	From     string
	FromName string
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.From != "" }

// Load reads ./.env (if present) into the process environment and then
// builds the config from it. Variables already set in the environment win.
func Load() (Config, error) {
	if err := loadDotEnvFile(".env", os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf(".env: %w", err)
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:          getenv("APP_ENV"),
		Addr:         getenv("APP_ADDR"),
		DBDSN:        strings.TrimSpace(getenv("APP_DB_DSN")),
		DBName:       strings.TrimSpace(getenv("APP_DB_NAME")),
		RedisURL:     strings.TrimSpace(getenv("APP_REDIS_URL")),
		LogLevel:     getenv("APP_LOG_LEVEL"),
		CookieSecret: getenv("APP_COOKIE_SECRET"),
		UploadDir:    getenv("APP_UPLOAD_DIR"),
		LoginRate:    strings.TrimSpace(getenv("APP_LOGIN_RATE")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.DBName == "" {
		cfg.DBName = "careerpointer"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "data/uploads"
	}
	if cfg.LoginRate == "" {
		cfg.LoginRate = "10-M"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		parsed.Path = strings.TrimRight(parsed.Path, "/")
		cfg.PublicURL = parsed
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	if raw := strings.TrimSpace(getenv("APP_COOKIE_SECURE")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_COOKIE_SECURE: %w", err)
		}
		cfg.cookieSecure = &v
	}

	if _, err := cfg.StoreKind(); err != nil {
		return Config{}, err
	}

	cfg.FrontendOrigins = parseCSV(getenv("APP_FRONTEND_URL"))

	cfg.GitHub = loadOAuthClient(getenv, "GITHUB")
	cfg.Google = loadOAuthClient(getenv, "GOOGLE")
	cfg.Discord = loadOAuthClient(getenv, "DISCORD")

	cfg.S3 = S3Config{
		Bucket:    strings.TrimSpace(getenv("APP_S3_BUCKET")),
		Region:    strings.TrimSpace(getenv("APP_S3_REGION")),
		Endpoint:  strings.TrimSpace(getenv("APP_S3_ENDPOINT")),
		AccessKey: getenv("APP_S3_ACCESS_KEY"),
		SecretKey: getenv("APP_S3_SECRET_KEY"),
	}
	if cfg.S3.Enabled() && cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}

	smtpCfg, err := loadSMTP(getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.SMTP = smtpCfg

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.cookieSecure != nil {
		return *c.cookieSecure
	}
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// StoreKind picks the persistence backend from the DSN scheme.
func (c Config) StoreKind() (StoreKind, error) {
	dsn := strings.ToLower(c.DBDSN)
	switch {
	case dsn == "":
		return StoreMemory, nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return StoreMongo, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return StorePostgres, nil
	default:
		return "", errors.New("APP_DB_DSN: scheme must be mongodb, mongodb+srv, postgres or postgresql")
	}
}

// CallbackURL returns the configured callback or one derived from APP_PUBLIC_URL.
func (c Config) CallbackURL(provider string, client OAuthClient) string {
	if client.CallbackURL != "" {
		return client.CallbackURL
	}
	return c.AbsoluteURL("/auth/" + provider + "/callback")
}

func (c Config) AbsoluteURL(path string) string {
	if c.PublicURL == nil {
		return "http://" + c.Addr + path
	}
	return c.PublicURL.String() + path
}

func loadOAuthClient(getenv func(string) string, name string) OAuthClient {
	return OAuthClient{
		ClientID:     strings.TrimSpace(getenv("APP_" + name + "_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(getenv("APP_" + name + "_CLIENT_SECRET")),
		CallbackURL:  strings.TrimSpace(getenv("APP_" + name + "_CALLBACK_URL")),
	}
}

func loadSMTP(getenv func(string) string) (SMTPConfig, error) {
	s := SMTPConfig{
		Host:     strings.TrimSpace(getenv("APP_SMTP_HOST")),
		Port:     587,
		Username: getenv("APP_SMTP_USERNAME"),
		Password: getenv("APP_SMTP_PASSWORD"),
		TLSMode:  strings.ToLower(strings.TrimSpace(getenv("APP_SMTP_TLS"))),
		From:     strings.TrimSpace(getenv("APP_SMTP_FROM")),
		FromName: strings.TrimSpace(getenv("APP_SMTP_FROM_NAME")),
	}
	if raw := strings.TrimSpace(getenv("APP_SMTP_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return SMTPConfig{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		s.Port = port
	}
	switch s.TLSMode {
	case "", "starttls", "tls", "none":
	default:
		return SMTPConfig{}, errors.New("APP_SMTP_TLS: must be one of starttls, tls, none")
	}
	if s.FromName == "" {
		s.FromName = "Career Pointer"
	}
	return s, nil
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
