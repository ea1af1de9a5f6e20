package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Queryer is the part of sqlx shared by *sqlx.DB and *sqlx.Tx, so every
// repository can run inside a transaction.
type Queryer interface {
	Rebind(query string) string
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Repositories bundles every repository over one connection
type Repositories struct {
	Classes    *ClassRepository
	Students   *StudentRepository
	Words      *WordRepository
	Plans      *StudentWordRepository
	Tasks      *DailyTaskRepository
	Answers    *AnswerRepository
	Statistics *StatisticsRepository

	db Queryer
}

// NewRepositories creates all repositories
func NewRepositories(db *sqlx.DB) *Repositories {
	return newRepositories(db)
}

func newRepositories(db Queryer) *Repositories {
	return &Repositories{
		Classes:    NewClassRepository(db),
		Students:   NewStudentRepository(db),
		Words:      NewWordRepository(db),
		Plans:      NewStudentWordRepository(db),
		Tasks:      NewDailyTaskRepository(db),
		Answers:    NewAnswerRepository(db),
		Statistics: NewStatisticsRepository(db),
		db:         db,
	}
}

// WithinTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calling
// it on repositories that are already inside a transaction reuses it.
func (r *Repositories) WithinTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return inTx(ctx, r.db, func(q Queryer) error {
		return fn(newRepositories(q))
	})
}

func inTx(ctx context.Context, q Queryer, fn func(Queryer) error) error {
	db, ok := q.(*sqlx.DB)
	if !ok {
		return fn(q)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// utc stores every instant in UTC so text-encoded timestamps compare correctly
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcNull(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else
func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// IsUnavailable reports whether err means the store itself is unreachable or
// broken, as opposed to a problem with one particular row.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrIoErr, sqlite3.ErrCorrupt, sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
			return true
		}
		return false
	}

	// database/sql does not export its closed-handle error
	return strings.Contains(err.Error(), "sql: database is closed")
}
