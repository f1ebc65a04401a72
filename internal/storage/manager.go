// package storage wraps the SQLite engine with retry, circuit breaking,
// and the row providers consumed by the library cache.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/quaverd/quaver/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxAttempts is the per-Open retry budget.
	DefaultMaxAttempts = 3
	// DefaultInitialDelay seeds the exponential backoff between attempts.
	DefaultInitialDelay = 250 * time.Millisecond
	// DefaultBackoffFactor multiplies the delay after each failed attempt.
	DefaultBackoffFactor = 2.0
	// DefaultMaxJitter bounds the random jitter added to each backoff delay.
	DefaultMaxJitter = 500 * time.Millisecond

	validateTimeout = 2 * time.Second
)

// RetryPolicy controls how Open retries failed connection attempts.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxJitter     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = DefaultBackoffFactor
	}
	if p.MaxJitter <= 0 {
		p.MaxJitter = DefaultMaxJitter
	}
	return p
}

// Tuning holds the engine settings applied after a successful open.
// Failures applying them are logged and otherwise ignored.
type Tuning struct {
	BusyTimeout time.Duration
	CacheSizeKB int
	Synchronous string
}

// ManagerOpts configures a [Manager].
type ManagerOpts struct {
	Path    string
	Breaker *Breaker
	Retry   RetryPolicy
	Tuning  Tuning
	Logger  *log.Logger
}

// Manager opens and validates connections to the backing store.
//
// All managers sharing a [Breaker] also share its consecutive-failure
// state: repeated failures anywhere fail fast everywhere.
type Manager struct {
	path    string
	breaker *Breaker
	retry   RetryPolicy
	tuning  Tuning
	logger  *log.Logger
	probes  *rate.Limiter

	mu     sync.Mutex
	db     *sql.DB
	usable bool
}

// NewManager creates a Manager for the database at path.
// A nil breaker gets a private instance; callers that want cross-manager
// breaking must pass a shared one.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	m := &Manager{
		path:    opts.Path,
		breaker: opts.Breaker,
		retry:   opts.Retry.withDefaults(),
		tuning:  opts.Tuning,
		logger:  opts.Logger,
		probes:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
	return m
}

// Open returns a live database handle, retrying with exponential backoff
// and jitter before giving up.
//
// When the shared breaker is open, Open fails immediately with a
// *CircuitOpenError and makes no connection attempt. Exhausting the retry
// budget records one failure against the breaker; any success resets it.
func (m *Manager) Open(ctx context.Context) (*sql.DB, error) {
	if err := m.breaker.Allow(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil && m.usable {
		return m.db, nil
	}
	if m.db != nil {
		m.db.Close()
		m.db = nil
	}

	var lastErr *ConnError
	delay := m.retry.InitialDelay

	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		db, err := m.openOnce(ctx)
		if err == nil {
			m.breaker.RecordSuccess()
			m.applyTuning(ctx, db)
			m.db = db
			m.usable = true
			return db, nil
		}

		if ctx.Err() != nil {
			return nil, wrapTimeout(ctx.Err())
		}

		lastErr = Classify(err)
		m.logger.Warn("connection attempt failed",
			"attempt", attempt, "of", m.retry.MaxAttempts, "kind", lastErr.Kind, "err", err)

		if attempt == m.retry.MaxAttempts {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(m.retry.MaxJitter)))
		select {
		case <-time.After(delay + jitter):
		case <-ctx.Done():
			return nil, wrapTimeout(ctx.Err())
		}
		delay = time.Duration(float64(delay) * m.retry.BackoffFactor)
	}

	m.breaker.RecordFailure()
	return nil, lastErr
}

// wrapTimeout surfaces deadline expiry as the caller-facing timeout
// sentinel. Plain cancellation passes through untouched.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}
	return err
}

func (m *Manager) openOnce(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// applyTuning sets the engine pragmas. Configuration, not control flow:
// a pragma that fails leaves the connection usable.
func (m *Manager) applyTuning(ctx context.Context, db *sql.DB) {
	busy := m.tuning.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	syncMode := m.tuning.Synchronous
	if syncMode == "" {
		syncMode = "NORMAL"
	}
	cacheKB := m.tuning.CacheSizeKB
	if cacheKB <= 0 {
		cacheKB = 8192
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", syncMode),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheKB),
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			m.logger.Warn("pragma failed", "pragma", pragma, "err", err)
		}
	}
}

// Command is a bound, parameterized statement ready to run.
type Command struct {
	db    *sql.DB
	query string
	args  []any
}

// Query runs the command and returns its rows.
func (c *Command) Query(ctx context.Context) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.query, c.args...)
}

// QueryRow runs the command expecting at most one row.
func (c *Command) QueryRow(ctx context.Context) *sql.Row {
	return c.db.QueryRowContext(ctx, c.query, c.args...)
}

// Exec runs the command without returning rows.
func (c *Command) Exec(ctx context.Context) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.query, c.args...)
}

// CreateCommand binds query parameters, re-opening the connection first if
// it has dropped.
//
// Nil parameters (including typed nil pointers) bind as SQL NULL; non-nil
// pointers bind their pointed-to value. Parameters are never silently
// omitted.
func (m *Manager) CreateCommand(ctx context.Context, query string, params ...any) (*Command, error) {
	db, err := m.Open(ctx)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = normalizeArg(p)
	}
	return &Command{db: db, query: query, args: args}, nil
}

func normalizeArg(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

// ValidateConnection runs a trivial round-trip query under a short timeout.
//
// It never returns an error: any failure marks the connection unusable and
// reports false. Probes are rate limited so a tight validation loop cannot
// hammer a locked database file; a throttled call reports the last known
// state.
func (m *Manager) ValidateConnection(ctx context.Context) bool {
	m.mu.Lock()
	db, usable := m.db, m.usable
	m.mu.Unlock()

	if db == nil {
		return false
	}
	if !m.probes.Allow() {
		return usable
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil || one != 1 {
		m.logger.Warn("connection validation failed", "err", err)
		m.mu.Lock()
		m.usable = false
		m.mu.Unlock()
		return false
	}
	return true
}

// Close releases the underlying handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	m.usable = false
	return err
}
