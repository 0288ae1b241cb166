package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/config"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/httpapi"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/service"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/store/memory"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/store/mongodb"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/store/postgres"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/store/redisstore"
)

// appStore is what every backend provides.
type appStore interface {
	service.UsersStore
	service.ResetUsersStore
	service.PasswordResetStore
	service.ProfileStore
	service.ApplicationsStore
	service.SessionsStore
}

type stores struct {
	kind     config.StoreKind
	app      appStore
	sessions service.SessionsStore
	pings    []func(context.Context) error
	closers  []func()
}

func (s *stores) ping(ctx context.Context) error {
	for _, p := range s.pings {
		if err := p(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	kind, err := cfg.StoreKind()
	if err != nil {
		return nil, err
	}
	st := &stores{kind: kind}

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch kind {
	case config.StorePostgres:
		pool, err := postgres.Open(openCtx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		if err := postgres.Migrate(openCtx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		pg := postgres.NewStore(pool)
		st.app = pg
		st.pings = append(st.pings, pg.Ping)
		st.closers = append(st.closers, pg.Close)
	case config.StoreMongo:
		mg, err := mongodb.Open(openCtx, cfg.DBDSN, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("mongodb open: %w", err)
		}
		if err := mg.EnsureIndexes(openCtx); err != nil {
			_ = mg.Close(context.Background())
			return nil, fmt.Errorf("mongodb indexes: %w", err)
		}
		st.app = mg
		st.pings = append(st.pings, mg.Ping)
		st.closers = append(st.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mg.Close(closeCtx)
		})
	default:
		mem := memory.New()
		st.app = mem
		st.pings = append(st.pings, mem.Ping)
		logger.Warn("APP_DB_DSN not set; using the in-memory store, data is lost on restart")
	}
	st.sessions = st.app

	if cfg.RedisURL != "" {
		rdb, err := redisstore.Open(openCtx, cfg.RedisURL)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("redis open: %w", err)
		}
		rdb.AddHook(redisstore.ErrorHook{Errors: httpapi.RedisErrors})
		st.sessions = redisstore.NewSessionsStore(rdb)
		st.pings = append(st.pings, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		logger.Info("session storage: redis")
	}
	return st, nil
}
