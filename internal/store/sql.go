package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore persists recommendations to SQLite or Postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
	log    zerolog.Logger
}

// Open connects to the database and runs migrations. For sqlite the dsn is a
// file path.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	l := logger.Component("store")
	var db *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &SQLStore{db: db, driver: driver, log: l}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	l.Info().Str("driver", driver).Msg("recommendation store opened")
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recommendations (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			action       TEXT NOT NULL,
			confidence   DOUBLE PRECISION NOT NULL,
			target_price DOUBLE PRECISION NOT NULL,
			stop_loss    DOUBLE PRECISION NOT NULL,
			entry_price  DOUBLE PRECISION NOT NULL,
			reasoning    TEXT NOT NULL,
			timeframe    TEXT NOT NULL,
			risk_level   TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   BIGINT NOT NULL,
			evaluated_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_status ON recommendations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_created ON recommendations(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const selectColumns = `SELECT id, symbol, action, confidence, target_price, stop_loss, entry_price,
	reasoning, timeframe, risk_level, status, created_at, evaluated_at FROM recommendations`

func (s *SQLStore) Insert(ctx context.Context, rec *model.Recommendation) error {
	if err := validateInsert(rec); err != nil {
		return wrap("insert", err)
	}
	reasoning, err := json.Marshal(rec.Reasoning)
	if err != nil {
		return wrap("insert", fmt.Errorf("encode reasoning: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO recommendations
		(id, symbol, action, confidence, target_price, stop_loss, entry_price,
		 reasoning, timeframe, risk_level, status, created_at, evaluated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.Symbol, string(rec.Action), rec.Confidence,
		rec.TargetPrice, rec.StopLoss, rec.EntryPrice,
		string(reasoning), rec.Timeframe, string(rec.RiskLevel), string(rec.Status),
		rec.CreatedAt.UnixMilli(), nullableMillis(rec.EvaluatedAt),
	)
	return wrap("insert", err)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id)
	if err != nil {
		return nil, wrap("get", err)
	}
	recs, err := scanAll(rows)
	if err != nil {
		return nil, wrap("get", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

func (s *SQLStore) ListByStatus(ctx context.Context, status model.Status) ([]model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` WHERE status = ? ORDER BY created_at ASC, id ASC`), string(status))
	if err != nil {
		return nil, wrap("list_by_status", err)
	}
	recs, err := scanAll(rows)
	return recs, wrap("list_by_status", err)
}

func (s *SQLStore) ListRecent(ctx context.Context, status model.Status, limit int) ([]model.Recommendation, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx, s.rebind(selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.rebind(selectColumns+` WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`), string(status), limit)
	}
	if err != nil {
		return nil, wrap("list_recent", err)
	}
	recs, err := scanAll(rows)
	return recs, wrap("list_recent", err)
}

func (s *SQLStore) ListAll(ctx context.Context) ([]model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, wrap("list_all", err)
	}
	recs, err := scanAll(rows)
	return recs, wrap("list_all", err)
}

func (s *SQLStore) UpdateStatus(ctx context.Context, id string, status model.Status, evaluatedAt time.Time) error {
	if err := validateUpdate(status); err != nil {
		return wrap("update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE recommendations SET status = ?, evaluated_at = ?
		WHERE id = ? AND status = ?`),
		string(status), evaluatedAt.UnixMilli(), id, string(model.StatusPending))
	if err != nil {
		return wrap("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("update", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM recommendations WHERE id = ?`), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return wrap("update", err)
	}
	return ErrNotPending
}

func (s *SQLStore) Close() error {
	s.log.Info().Msg("closing recommendation store")
	return s.db.Close()
}

func scanAll(rows *sql.Rows) ([]model.Recommendation, error) {
	defer rows.Close()
	var out []model.Recommendation
	for rows.Next() {
		var (
			rec         model.Recommendation
			action      string
			risk        string
			status      string
			reasoning   string
			createdAt   int64
			evaluatedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &action, &rec.Confidence,
			&rec.TargetPrice, &rec.StopLoss, &rec.EntryPrice,
			&reasoning, &rec.Timeframe, &risk, &status, &createdAt, &evaluatedAt); err != nil {
			return nil, err
		}
		rec.Action = model.Action(action)
		rec.RiskLevel = model.RiskLevel(risk)
		rec.Status = model.Status(status)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		if evaluatedAt.Valid {
			t := time.UnixMilli(evaluatedAt.Int64).UTC()
			rec.EvaluatedAt = &t
		}
		if err := json.Unmarshal([]byte(reasoning), &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("decode reasoning for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
