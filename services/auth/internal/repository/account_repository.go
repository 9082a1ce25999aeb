package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository is the account system the identity resolver logs people into.
type AccountRepository interface {
	FindByLogin(ctx context.Context, login string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, acc *domain.NewAccount, passwordHash string) (*domain.Account, error)
	SetMeta(ctx context.Context, accountID int64, key, value string) error
	GetMeta(ctx context.Context, accountID int64, key string) (string, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountCols = `id, login, password_hash, role, email, display_name, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Login, &a.PasswordHash, &a.Role, &a.Email, &a.DisplayName, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) FindByLogin(ctx context.Context, login string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE login = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, login))
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, id))
}

func (r *accountRepository) Create(ctx context.Context, acc *domain.NewAccount, passwordHash string) (*domain.Account, error) {
	const q = `
		INSERT INTO accounts (login, password_hash, role, email, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, acc.Login, passwordHash, acc.Role, acc.Email, acc.DisplayName))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.New("account insert returned no row")
	}
	return a, nil
}

func (r *accountRepository) SetMeta(ctx context.Context, accountID int64, key, value string) error {
	const q = `
		INSERT INTO account_meta (account_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, accountID, key, value)
	return err
}

func (r *accountRepository) GetMeta(ctx context.Context, accountID int64, key string) (string, error) {
	const q = `SELECT meta_value FROM account_meta WHERE account_id = $1 AND meta_key = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var value string
	err := r.pool.QueryRow(ctx, q, accountID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}
