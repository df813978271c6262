package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

// Dialect adapts statements to the SQL backend.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders as $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

const createRecordsTable = `CREATE TABLE IF NOT EXISTS records (
	entity TEXT NOT NULL,
	id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (entity, id)
)`

// OpenSQL opens a database for the given driver, "sqlite" or "pgx", and
// makes sure the records table exists.
func OpenSQL(ctx context.Context, driver string, dsn string) (*sql.DB, Dialect, error) {
	var (
		database *sql.DB
		dialect  Dialect
		err      error
	)

	switch strings.ToLower(driver) {
	case "sqlite":
		if !strings.Contains(dsn, "_pragma=busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)"
		}
		database, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, dialect, err
		}
		// A single connection keeps in-memory databases shared.
		database.SetMaxOpenConns(1)
		dialect = SQLite
	case "pgx", "postgres":
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, dialect, err
		}
		database = stdlib.OpenDB(*cfg)
		dialect = Postgres
	default:
		return nil, dialect, fmt.Errorf("unsupported sql driver %q", driver)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, dialect, err
	}
	if _, err := database.ExecContext(ctx, createRecordsTable); err != nil {
		_ = database.Close()
		return nil, dialect, err
	}
	return database, dialect, nil
}

// SQLRepository stores the records of one entity as JSON documents in a
// shared records table.
type SQLRepository struct {
	db       *sql.DB
	dialect  Dialect
	registry *filter.Registry
	filter   *filter.RecordFilter
}

func NewSQLRepository(database *sql.DB, dialect Dialect, registry *filter.Registry, opts ...filter.Option) *SQLRepository {
	return &SQLRepository{
		db:       database,
		dialect:  dialect,
		registry: registry,
		filter:   filter.ForRegistry(registry, opts...),
	}
}

func (r *SQLRepository) entity() string {
	return r.registry.Entity()
}

func (r *SQLRepository) Load(ctx context.Context, records []types.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	row := tx.QueryRowContext(ctx,
		r.dialect.rebind("SELECT COALESCE(MAX(seq), -1) + 1 FROM records WHERE entity = ?"), r.entity())
	if err := row.Scan(&seq); err != nil {
		return err
	}

	insert := r.dialect.rebind(
		"INSERT INTO records (entity, id, seq, data) VALUES (?, ?, ?, ?) ON CONFLICT (entity, id) DO NOTHING")
	for i, record := range records {
		normalized := normalizeRecord(r.registry, record)
		id := normalized.ID()
		if id == "" {
			return fmt.Errorf("record %d of %s has no id", i, r.entity())
		}
		data, err := json.Marshal(normalized)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, r.entity(), id, seq, string(data)); err != nil {
			return err
		}
		seq++
	}
	return tx.Commit()
}

func (r *SQLRepository) List(ctx context.Context, query Query) (*types.QueryResult, error) {
	rows, err := r.db.QueryContext(ctx,
		r.dialect.rebind("SELECT data FROM records WHERE entity = ? ORDER BY seq, id"), r.entity())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.Record, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		record, err := r.decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runQuery(records, query, r.filter), nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (types.Record, error) {
	return r.get(ctx, r.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *SQLRepository) get(ctx context.Context, q queryRower, id string) (types.Record, error) {
	var data string
	err := q.QueryRowContext(ctx,
		r.dialect.rebind("SELECT data FROM records WHERE entity = ? AND id = ?"), r.entity(), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, r.entity(), id)
	}
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

func (r *SQLRepository) Update(ctx context.Context, id string, patch types.Record) (types.Record, error) {
	prepared, err := preparePatch(r.registry, id, patch)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated := current.Merge(prepared)
	data, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		r.dialect.rebind("UPDATE records SET data = ? WHERE entity = ? AND id = ?"),
		string(data), r.entity(), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLRepository) decode(data string) (types.Record, error) {
	var record types.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("corrupt record of %s: %w", r.entity(), err)
	}
	return normalizeRecord(r.registry, record), nil
}
