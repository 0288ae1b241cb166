package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/config"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/email"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/httpapi"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/oauth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/service"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/upload"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/userui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	secret := []byte(cfg.CookieSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		logger.Warn("APP_COOKIE_SECRET not set; using a random secret, sessions end on restart")
	}
	cookieCodec := auth.NewCookieCodec(secret)
	stateCodec, err := auth.NewStateCodec(secret, 10*time.Minute)
	if err != nil {
		return err
	}

	sessionSvc := &service.SessionService{Store: st.sessions, Users: st.app, TTL: cfg.SessionTTL}
	authSvc := &service.AuthService{Users: st.app}
	profileSvc := &service.ProfileService{Store: st.app}
	applicationSvc := &service.ApplicationService{Store: st.app}
	resetSvc := &service.PasswordResetService{Store: st.app, Users: st.app, Logger: logger}
	if cfg.SMTP.Enabled() {
		resetSvc.Notifier = &service.EmailService{
			Settings: email.SMTPSettings{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				TLSMode:  cfg.SMTP.TLSMode,
			},
			FromName:  cfg.SMTP.FromName,
			FromEmail: cfg.SMTP.From,
			ResetURL:  func(token string) string { return cfg.AbsoluteURL("/password/reset/" + token) },
		}
		logger.Info("password reset mail enabled", "smtp_host", cfg.SMTP.Host)
	}

	providers, err := oauthProviders(cfg, logger)
	if err != nil {
		return err
	}

	uploads, err := openUploads(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ui, err := userui.New(userui.Opts{
		Logger:          logger,
		Sessions:        sessionSvc,
		Auth:            authSvc,
		Reset:           resetSvc,
		Profiles:        profileSvc,
		Applications:    applicationSvc,
		OAuth:           providers,
		State:           stateCodec,
		Upload:          uploads,
		CookieCodec:     cookieCodec,
		CookieSecure:    cfg.CookieSecure(),
		LoginRate:       cfg.LoginRate,
		ShowErrorDetail: !cfg.IsProd(),
		ShowResetLink:   !cfg.IsProd() && !cfg.SMTP.Enabled(),
	})
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:          logger,
		IsProd:          cfg.IsProd(),
		StorePing:       st.ping,
		UI:              ui,
		Sessions:        sessionSvc,
		Applications:    applicationSvc,
		CookieCodec:     cookieCodec,
		FrontendOrigins: cfg.FrontendOrigins,
	})

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	if j, ok := st.sessions.(expiredSessionDeleter); ok {
		go runJanitor(janitorCtx, logger, j, time.Hour)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "store", st.kind)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func oauthProviders(cfg config.Config, logger *slog.Logger) (map[domain.Provider]oauth.Provider, error) {
	clients := map[domain.Provider]config.OAuthClient{
		domain.ProviderGitHub:  cfg.GitHub,
		domain.ProviderGoogle:  cfg.Google,
		domain.ProviderDiscord: cfg.Discord,
	}
	out := make(map[domain.Provider]oauth.Provider, len(clients))
	for p, c := range clients {
		if !c.Enabled() {
			continue
		}
		prov, err := oauth.New(p, oauth.Credentials{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  cfg.CallbackURL(string(p), c),
		})
		if err != nil {
			return nil, err
		}
		out[p] = prov
		logger.Info("oauth provider enabled", "provider", p)
	}
	return out, nil
}

func openUploads(ctx context.Context, cfg config.Config, logger *slog.Logger) (upload.Store, error) {
	if cfg.S3.Enabled() {
		s3Store, err := upload.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info("avatar storage: s3", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		return s3Store, nil
	}
	disk, err := upload.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	logger.Info("avatar storage: disk", "dir", cfg.UploadDir)
	return disk, nil
}

type expiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// runJanitor purges sessions that expired more than a day ago.
func runJanitor(ctx context.Context, logger *slog.Logger, d expiredSessionDeleter, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := d.DeleteExpired(ctx, now.Add(-24*time.Hour))
			if err != nil {
				logger.Warn("session janitor failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("session janitor", "deleted", n)
			}
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
