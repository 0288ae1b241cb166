package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `
	u.id, u.username, u.display_name, u.email, u.avatar_url, u.created_at, u.updated_at,
	COALESCE(
		(SELECT jsonb_object_agg(ea.provider, ea.provider_id) FROM external_accounts ea WHERE ea.user_id = u.id),
		'{}'::jsonb
	)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (domain.User, error) {
	var (
		u         domain.User
		idUUID    pgtype.UUID
		emailText pgtype.Text
		external  map[string]string
	)
	dest := append([]any{&idUUID, &u.Username, &u.DisplayName, &emailText, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt, &external}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Email = textOrEmpty(emailText)
	if len(external) > 0 {
		u.ExternalIDs = make(map[domain.Provider]string, len(external))
		for p, id := range external {
			u.ExternalIDs[domain.Provider(p)] = id
		}
	}
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	const insertUser = `
		INSERT INTO users (username, display_name, email, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	const insertExternal = `
		INSERT INTO external_accounts (user_id, provider, provider_id)
		VALUES ($1, $2, $3)
	`

	u := domain.User{
		Username:    nu.Username,
		DisplayName: nu.DisplayName,
		Email:       nu.Email,
		AvatarURL:   nu.AvatarURL,
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var idUUID pgtype.UUID
		err := tx.QueryRow(ctx, insertUser, nu.Username, nu.DisplayName, nullIfEmpty(nu.Email), nu.PasswordHash, nu.AvatarURL).
			Scan(&idUUID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return err
		}
		u.ID = uuidOrEmpty(idUUID)

		if nu.Provider == "" {
			return nil
		}
		if _, err := tx.Exec(ctx, insertExternal, u.ID, string(nu.Provider), nu.ProviderID); err != nil {
			return err
		}
		u.ExternalIDs = map[domain.Provider]string{nu.Provider: nu.ProviderID}
		return nil
	})
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error) {
	q := `SELECT ` + userColumns + `, u.password_hash FROM users u WHERE u.username = $1`

	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, q, username), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by username: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	q := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.email IS NOT NULL AND lower(u.email) = lower($1)
		ORDER BY u.created_at
		LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByExternalID(ctx context.Context, provider domain.Provider, providerID string) (domain.User, error) {
	q := `SELECT ` + userColumns + `
		FROM users u
		JOIN external_accounts x ON x.user_id = u.id
		WHERE x.provider = $1 AND x.provider_id = $2`

	u, err := scanUser(s.pool.QueryRow(ctx, q, string(provider), providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by external id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	if !validID(userID) {
		return "", domain.ErrNotFound
	}
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	return s.execUserUpdate(ctx, "set password hash", q, userID, passwordHash)
}

func (s *UsersStore) UpdateProfile(ctx context.Context, userID, displayName, email string) error {
	const q = `
		UPDATE users
		SET display_name = $2, email = $3, updated_at = now()
		WHERE id = $1
	`
	return s.execUserUpdate(ctx, "update profile", q, userID, displayName, nullIfEmpty(email))
}

func (s *UsersStore) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	const q = `
		UPDATE users
		SET avatar_url = $2, updated_at = now()
		WHERE id = $1
	`
	return s.execUserUpdate(ctx, "set avatar", q, userID, avatarURL)
}

func (s *UsersStore) execUserUpdate(ctx context.Context, op, q, userID string, args ...any) error {
	if !validID(userID) {
		return domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, q, append([]any{userID}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "users_username_uq":
			return domain.ErrUsernameTaken
		case "external_accounts_provider_uq", "external_accounts_user_provider_uq":
			return domain.ErrExternalAccountExists
		default:
			return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
		}
	}
	return fmt.Errorf("create user: %w", err)
}
