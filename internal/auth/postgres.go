package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"docuvault.org/internal/ids"
)

const uniqueViolation = "23505"

// PGStore implements AccountStore on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ AccountStore = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, username, email, password_hash, role, provider, active, coalesce(avatar,''), last_login, login_attempts, lock_until, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, username, email, password_hash, role, provider, active, avatar)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		account.ID, account.Username, account.Email, account.PasswordHash,
		string(account.Role), string(account.Provider), account.Active, account.Avatar,
	)
	return s.storeErr(err)
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where lower(email)=lower($1)`, email)
	return scanAccount(row)
}

func (s *PGStore) FindByUsernameOrEmail(ctx context.Context, q string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where lower(username)=lower($1) or lower(email)=lower($1)`, q)
	return scanAccount(row)
}

func (s *PGStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts order by created_at asc`)
	if err != nil {
		return nil, s.storeErr(err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, account *Account) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts
		 set username=$2, email=$3, password_hash=$4, role=$5, active=$6, avatar=$7, updated_at=now()
		 where id=$1`,
		account.ID, account.Username, account.Email, account.PasswordHash,
		string(account.Role), account.Active, account.Avatar,
	)
	if err != nil {
		return s.storeErr(err)
	}
	return requireRow(res)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id=$1`, id)
	if err != nil {
		return s.storeErr(err)
	}
	return requireRow(res)
}

// RegisterFailure advances the lockout state in a single statement so
// concurrent failed logins never lose increments. The CASE expressions read
// the pre-update column values: an expired lock restarts the counter at 1,
// otherwise the counter advances and a fresh lock window opens once the
// policy threshold is reached.
func (s *PGStore) RegisterFailure(ctx context.Context, id string, now time.Time, policy LockoutPolicy) (int, *time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`update accounts set
			login_attempts = case
				when lock_until is not null and lock_until <= $2 then 1
				else login_attempts + 1
			end,
			lock_until = case
				when lock_until is not null and lock_until <= $2 then null
				when lock_until is null and login_attempts + 1 >= $3 then $4
				else lock_until
			end,
			updated_at = $2
		 where id = $1
		 returning login_attempts, lock_until`,
		id, now, policy.MaxAttempts, now.Add(policy.LockWindow),
	)
	var (
		attempts  int
		lockUntil sql.NullTime
	)
	if err := row.Scan(&attempts, &lockUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, s.storeErr(err)
	}
	if !lockUntil.Valid {
		return attempts, nil, nil
	}
	until := lockUntil.Time
	return attempts, &until, nil
}

func (s *PGStore) ResetLockout(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts
		 set login_attempts = 0, lock_until = null, last_login = $2, updated_at = $2
		 where id = $1`,
		id, now,
	)
	if err != nil {
		return s.storeErr(err)
	}
	return requireRow(res)
}

func (s *PGStore) storeErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		account   Account
		role      string
		provider  string
		lastLogin sql.NullTime
		lockUntil sql.NullTime
	)
	err := row.Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&role, &provider, &account.Active, &account.Avatar,
		&lastLogin, &account.LoginAttempts, &lockUntil,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	account.Role = Role(role)
	account.Provider = Provider(provider)
	if lastLogin.Valid {
		t := lastLogin.Time
		account.LastLogin = &t
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		account.LockUntil = &t
	}
	return &account, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
