package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/telemetry/metrics"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
	"github.com/2beens/partnerdesk/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS Users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		full_name TEXT,
		role TEXT DEFAULT 'viewer'
	)
`

// Store persists accounts in the Users table. It enforces no admin policy:
// that is the gate's job.
type Store struct {
	db             *sql.DB
	hasher         *Hasher
	metricsManager *metrics.Manager
}

func NewStore(sqlDB *sql.DB, hasher *Hasher, metricsManager *metrics.Manager) *Store {
	return &Store{
		db:             sqlDB,
		hasher:         hasher,
		metricsManager: metricsManager,
	}
}

// EnsureSchema creates the Users table, or adds the role column to an older
// one. It is idempotent and runs before every other store operation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createUsersTable); err != nil {
		return storeErr("create users table", err)
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(Users)")
	if err != nil {
		return storeErr("users table info", err)
	}
	defer rows.Close()

	hasRole := false
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return storeErr("users table info [scan]", err)
		}
		if strings.EqualFold(name, "role") {
			hasRole = true
		}
	}
	if err := rows.Err(); err != nil {
		return storeErr("users table info [rows]", err)
	}
	// close before the ALTER, the pool has a single connection
	_ = rows.Close()

	if !hasRole {
		log.Infoln("accounts: adding role column to Users table")
		if _, err := s.db.ExecContext(ctx, "ALTER TABLE Users ADD COLUMN role TEXT DEFAULT 'viewer'"); err != nil {
			return storeErr("add role column", err)
		}
	}

	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.count(ctx, "count", "SELECT COUNT(*) FROM Users")
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	return s.count(ctx, "count admins", "SELECT COUNT(*) FROM Users WHERE role = ?", string(RoleAdmin))
}

func (s *Store) count(ctx context.Context, op, query string, args ...any) (int, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// Create hashes rawPassword and inserts a new account.
func (s *Store) Create(ctx context.Context, username, rawPassword, fullName string, role Role) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "accounts.store.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("username", username))

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return storeErr("hash password", err)
	}
	return s.insert(ctx, username, hash, fullName, role)
}

// CreateWithHash inserts an account whose password hash was produced
// elsewhere (a provisioned admin). Any format Verify accepts is allowed.
func (s *Store) CreateWithHash(ctx context.Context, username, passwordHash, fullName string, role Role) error {
	if strings.TrimSpace(passwordHash) == "" {
		return NewValidationError("Password hash is required")
	}
	return s.insert(ctx, username, passwordHash, fullName, role)
}

func (s *Store) insert(ctx context.Context, username, passwordHash, fullName string, role Role) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if !role.Valid() {
		return NewValidationError("invalid role: " + string(role))
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var existing int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM Users WHERE username = ?", username,
		).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateUsername
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO Users(username, password_hash, full_name, role) VALUES (?, ?, ?, ?)",
			username, passwordHash, nullString(fullName), string(role),
		)
		if pkg.IsUniqueViolationError(err) {
			return ErrDuplicateUsername
		}
		return err
	})
	if errors.Is(err, ErrDuplicateUsername) {
		return fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
	}
	if err != nil {
		return storeErr("create", err)
	}

	s.countMutation("create")
	return nil
}

func (s *Store) Find(ctx context.Context, username string) (Account, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return Account{}, err
	}
	return s.find(ctx, username)
}

func (s *Store) find(ctx context.Context, username string) (Account, error) {
	var (
		account  Account
		fullName sql.NullString
		role     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT username, password_hash, full_name, role FROM Users WHERE username = ?",
		username,
	).Scan(&account.Username, &account.PasswordHash, &fullName, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, storeErr("find", err)
	}

	account.FullName = fullName.String
	account.Role = roleFromColumn(role)
	return account, nil
}

// Verify checks the credentials and returns the account identity. Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials.
//
// Verify may write: a legacy or weaker stored hash is replaced by a current
// one after a successful match. A failed upgrade is logged and does not fail
// the login.
func (s *Store) Verify(ctx context.Context, username, rawPassword string) (_ Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "accounts.store.verify")
	defer func() {
		if errors.Is(err, ErrInvalidCredentials) {
			tracing.EndSpanWithErrCheck(span, nil)
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.EnsureSchema(ctx); err != nil {
		return Identity{}, err
	}

	account, err := s.find(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		s.hasher.Burn(rawPassword)
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}

	ok, needsRehash := s.hasher.Verify(rawPassword, account.PasswordHash)
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}

	if needsRehash {
		if err := s.upgradeHash(ctx, account, rawPassword); err != nil {
			log.Warnf("accounts: upgrade password hash for [%s]: %s", username, err)
		} else {
			log.Debugf("accounts: password hash upgraded for [%s]", username)
			if s.metricsManager != nil {
				s.metricsManager.CounterHashUpgrades.Inc()
			}
		}
	}

	return account.Identity(), nil
}

func (s *Store) upgradeHash(ctx context.Context, account Account, rawPassword string) error {
	newHash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return err
	}
	// only replace the hash that was verified, a concurrent password change wins
	return db.WithTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE Users SET password_hash = ? WHERE username = ? AND password_hash = ?",
			newHash, account.Username, account.PasswordHash,
		)
		return err
	})
}

// SetPassword overwrites the stored hash. Callers check the old password if they need to.
func (s *Store) SetPassword(ctx context.Context, username, rawPassword string) error {
	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return storeErr("hash password", err)
	}
	return s.updateOne(ctx, "set_password",
		"UPDATE Users SET password_hash = ? WHERE username = ?", hash, username)
}

func (s *Store) SetRole(ctx context.Context, username string, role Role) error {
	if !role.Valid() {
		return NewValidationError("invalid role: " + string(role))
	}
	return s.updateOne(ctx, "set_role",
		"UPDATE Users SET role = ? WHERE username = ?", string(role), username)
}

// SetFullName stores fullName, or NULL when it is blank.
func (s *Store) SetFullName(ctx context.Context, username, fullName string) error {
	return s.updateOne(ctx, "set_full_name",
		"UPDATE Users SET full_name = ? WHERE username = ?", nullString(fullName), username)
}

func (s *Store) Delete(ctx context.Context, username string) error {
	return s.updateOne(ctx, "delete", "DELETE FROM Users WHERE username = ?", username)
}

// updateOne runs a single-row write in its own transaction.
func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "accounts.store."+op)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	err = db.WithTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
	if errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if err != nil {
		return storeErr(op, err)
	}

	s.countMutation(op)
	return nil
}

// List returns every account ordered by username (byte order).
func (s *Store) List(ctx context.Context) ([]Identity, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT username, full_name, role FROM Users ORDER BY username")
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	identities := []Identity{}
	for rows.Next() {
		var (
			identity Identity
			fullName sql.NullString
			role     sql.NullString
		)
		if err := rows.Scan(&identity.Username, &fullName, &role); err != nil {
			return nil, storeErr("list [scan]", err)
		}
		identity.FullName = fullName.String
		identity.Role = roleFromColumn(role)
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list [rows]", err)
	}

	return identities, nil
}

func (s *Store) countMutation(op string) {
	if s.metricsManager != nil {
		s.metricsManager.CounterAccountMutations.WithLabelValues(op).Inc()
	}
}
