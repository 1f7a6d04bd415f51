// Package journal persists send attempts so a confirmed request is never
// lost or counted twice.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/clock"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// sqliteOptionPrefix is the string prefix sqlite uses to set various
	// options. This is used in the following format:
	//   * sqliteOptionPrefix || option_name = option_value.
	sqliteOptionPrefix = "_pragma"

	// sqliteTxLockImmediate is a dsn option used to ensure that write
	// transactions are started immediately.
	sqliteTxLockImmediate = "_txlock=immediate"

	// defaultBusyTimeout is how long sqlite waits for a lock.
	defaultBusyTimeout = 5 * time.Second
)

var (
	// ErrDatabasePathRequired is returned when no database file is
	// configured.
	ErrDatabasePathRequired = errors.New("database path required")

	// ErrAttemptNotFound is returned when no attempt has the given ID.
	ErrAttemptNotFound = errors.New("send attempt not found")

	// ErrAlreadyFinished is returned when an attempt's outcome is
	// recorded twice.
	ErrAlreadyFinished = errors.New("send attempt already finished")

	// ErrOutcomeRequired is returned when finishing without an outcome.
	ErrOutcomeRequired = errors.New("outcome required")
)

// Config holds configuration for the journal database.
type Config struct {
	// DatabaseFileName is the full path of the sqlite file. ":memory:"
	// opens a private in-memory database.
	DatabaseFileName string

	// SkipMigrations skips applying the schema migrations.
	SkipMigrations bool

	// Clock timestamps attempts.
	// Default: the system clock
	Clock clock.Clock
}

// DefaultConfig returns a default configuration for the given file.
func DefaultConfig(dbPath string) *Config {
	return &Config{
		DatabaseFileName: dbPath,
		Clock:            clock.NewDefaultClock(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DatabaseFileName == "" {
		return ErrDatabasePathRequired
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}

	return nil
}

// Attempt is one recorded send attempt.
type Attempt struct {
	// ID identifies the attempt.
	ID int64

	// CoinID is the coin type the attempt paid in.
	CoinID string

	// Destination is the encoded destination address.
	Destination string

	// Amount is the amount being paid.
	Amount btcutil.Amount

	// Outcome is the terminal outcome, empty while pending.
	Outcome string

	// Detail carries the failure cause, if any.
	Detail string

	// CreatedAt is when the attempt was confirmed.
	CreatedAt time.Time

	// FinishedAt is when the outcome was recorded, zero while pending.
	FinishedAt time.Time
}

// Pending reports whether the attempt has no outcome yet.
func (a *Attempt) Pending() bool {
	return a.FinishedAt.IsZero()
}

// Store is a sqlite backed journal of send attempts. It is safe for
// concurrent use.
type Store struct {
	cfg *Config
	db  *sql.DB
}

// Open opens or creates the journal database and applies migrations.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pragmaOptions := []struct {
		name  string
		value string
	}{
		{name: "busy_timeout", value: fmt.Sprintf(
			"%d", defaultBusyTimeout.Milliseconds(),
		)},
		{name: "foreign_keys", value: "on"},
		{name: "journal_mode", value: "WAL"},
		{name: "synchronous", value: "full"},
	}
	sqliteOptions := make(url.Values)
	for _, option := range pragmaOptions {
		sqliteOptions.Add(
			sqliteOptionPrefix,
			fmt.Sprintf("%v=%v", option.name, option.value),
		)
	}

	dsn := fmt.Sprintf(
		"file:%v?%v&%v", cfg.DatabaseFileName, sqliteOptions.Encode(),
		sqliteTxLockImmediate,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open journal: %w", err)
	}

	// A single connection serializes writers and keeps an in-memory
	// database alive for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if !cfg.SkipMigrations {
		if err := applyMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.Infof("Opened send journal at %v", cfg.DatabaseFileName)

	return &Store{cfg: cfg, db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records a new pending attempt and returns its ID.
func (s *Store) Begin(ctx context.Context, coinID, destination string,
	amount btcutil.Amount) (int64, error) {

	now := s.cfg.Clock.Now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO send_attempts (
			coin_id, destination, amount_sat, created_at
		) VALUES (?, ?, ?, ?)`,
		coinID, destination, int64(amount), now.UnixMicro(),
	)
	if err != nil {
		return 0, fmt.Errorf("unable to record attempt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unable to read attempt id: %w", err)
	}

	log.Debugf("Recorded attempt %d: %v %s to %s", id, amount, coinID,
		destination)

	return id, nil
}

// Finish records the terminal outcome of a pending attempt.
func (s *Store) Finish(ctx context.Context, id int64, outcome,
	detail string) error {

	if outcome == "" {
		return ErrOutcomeRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var finishedAt sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT finished_at FROM send_attempts WHERE id = ?`, id,
	).Scan(&finishedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %d", ErrAttemptNotFound, id)

	case err != nil:
		return fmt.Errorf("unable to query attempt %d: %w", id, err)

	case finishedAt.Valid:
		return fmt.Errorf("%w: %d", ErrAlreadyFinished, id)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE send_attempts
		SET outcome = ?, detail = ?, finished_at = ?
		WHERE id = ?`,
		outcome, detail, s.cfg.Clock.Now().UnixMicro(), id,
	)
	if err != nil {
		return fmt.Errorf("unable to finish attempt %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit attempt %d: %w", id, err)
	}

	log.Debugf("Attempt %d finished: %s", id, outcome)

	return nil
}

// List returns the most recent attempts, newest first. A limit of zero or
// less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = -1
	}

	return s.query(ctx, `
		SELECT id, coin_id, destination, amount_sat, outcome, detail,
			created_at, finished_at
		FROM send_attempts
		ORDER BY id DESC
		LIMIT ?`, limit,
	)
}

// Pending returns the attempts without an outcome, oldest first. After a
// crash these are the requests whose fate is unknown.
func (s *Store) Pending(ctx context.Context) ([]*Attempt, error) {
	return s.query(ctx, `
		SELECT id, coin_id, destination, amount_sat, outcome, detail,
			created_at, finished_at
		FROM send_attempts
		WHERE finished_at IS NULL
		ORDER BY id ASC`,
	)
}

func (s *Store) query(ctx context.Context, query string,
	args ...interface{}) ([]*Attempt, error) {

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var (
			a          Attempt
			amount     int64
			outcome    sql.NullString
			createdAt  int64
			finishedAt sql.NullInt64
		)
		err := rows.Scan(
			&a.ID, &a.CoinID, &a.Destination, &amount, &outcome,
			&a.Detail, &createdAt, &finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to read attempt: %w", err)
		}

		a.Amount = btcutil.Amount(amount)
		a.Outcome = outcome.String
		a.CreatedAt = time.UnixMicro(createdAt)
		if finishedAt.Valid {
			a.FinishedAt = time.UnixMicro(finishedAt.Int64)
		}

		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read attempts: %w", err)
	}

	return attempts, nil
}
