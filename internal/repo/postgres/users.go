package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jjinnspecs/authhub/internal/domain/user"
	"github.com/jjinnspecs/authhub/internal/observability"
)

const userColumns = `id, first_name, last_name, phone_number, email, username, password_hash, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateRequest) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, first_name, last_name, phone_number, email, username, password_hash, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.FirstName, u.LastName, u.PhoneNumber, u.Email, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrDuplicate
		}

		return user.User{}, err
	}

	return u, nil
}

// GetByIdentifier resolves a login identifier against username, email and
// phone number. Uniqueness constraints make more than one match a narrow
// store-level race; ordering by id keeps the pick deterministic.
func (r *UsersRepo) GetByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_identifier", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE username = $1 OR email = $1 OR phone_number = $1
			 ORDER BY id
			 LIMIT 1`,
			identifier,
		).Scan(
			&u.ID,
			&u.FirstName,
			&u.LastName,
			&u.PhoneNumber,
			&u.Email,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.FirstName,
			&u.LastName,
			&u.PhoneNumber,
			&u.Email,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
