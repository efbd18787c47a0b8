package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pistigreen/pistigreen-backend/internal/platform/db"
)

const uniqueViolation = "23505"

// txAttempts bounds how often a transaction aborted by a concurrent writer is re-run.
const txAttempts = 3

const accountColumns = `id, email, name, password_hash, is_active, created_at, updated_at`

// Repository is the account store.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error)
	// LockByIDAndEmail behaves like FindByIDAndEmail but holds a row lock
	// until the surrounding transaction ends.
	LockByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error)
	Create(ctx context.Context, account Account) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool db.TxBeginner
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn at READ COMMITTED, so a row lock taken with FOR UPDATE
// re-reads the committed row instead of failing the transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
			return fn(ctx, &repository{db: tx, pool: r.pool})
		})
		if !db.IsRetryable(err) {
			return err
		}
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (r *repository) FindByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND email = $2`, id, email)
	return scanAccount(row)
}

func (r *repository) LockByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND email = $2 FOR UPDATE`, id, email)
	return scanAccount(row)
}

func (r *repository) Create(ctx context.Context, account Account) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO accounts (email, name, password_hash, is_active) VALUES ($1, $2, $3, $4) RETURNING `+accountColumns,
		account.Email, account.Name, account.PasswordHash, account.IsActive,
	)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) Save(ctx context.Context, account *Account) error {
	if account == nil {
		return errors.New("account: save nil account")
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET email = $2, name = $3, password_hash = $4, is_active = $5, updated_at = NOW() WHERE id = $1`,
		account.ID, account.Email, account.Name, account.PasswordHash, account.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("account: save %d: %w", account.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}
