// Package sqlstore implements storage.Driver over ent's SQL dialect driver.
// It is database-agnostic and is embedded by the sqlite and postgres drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

const table = "thought_records"

var columns = []string{
	"id", "created_at", "status", "fields", "error", "meta", "provider", "model",
	"chunks", "duration_ms", "prompt_tokens", "completion_tokens",
}

// Store provides storage operations over an ent SQL driver.
type Store struct {
	DB *entsql.Driver
}

// New wraps db with ent's driver for the given dialect (dialect.SQLite or
// dialect.Postgres) and creates the schema. The schema only ever grows, so
// migration is idempotent.
func New(ctx context.Context, db *sql.DB, name string) (*Store, error) {
	if name != dialect.SQLite && name != dialect.Postgres {
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}

	s := &Store{DB: entsql.OpenDB(name, db)}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b := entsql.Dialect(s.DB.Dialect())

	timestamp := "DATETIME"
	if s.DB.Dialect() == dialect.Postgres {
		timestamp = "TIMESTAMPTZ"
	}

	text := func(name string) *entsql.ColumnBuilder {
		return b.Column(name).Type("TEXT").Attr("NOT NULL")
	}
	integer := func(name, typ string) *entsql.ColumnBuilder {
		return b.Column(name).Type(typ).Attr("NOT NULL DEFAULT 0")
	}

	stmts := []entsql.Querier{
		b.CreateTable(table).IfNotExists().
			Columns(
				text("id"),
				b.Column("created_at").Type(timestamp).Attr("NOT NULL"),
				text("status"),
				text("fields"),
				b.Column("error").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
				b.Column("meta").Type("TEXT").Attr("NOT NULL DEFAULT '{}'"),
				b.Column("provider").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
				b.Column("model").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
				integer("chunks", "INTEGER"),
				integer("duration_ms", "BIGINT"),
				integer("prompt_tokens", "INTEGER"),
				integer("completion_tokens", "INTEGER"),
			).
			PrimaryKey("id"),
		b.CreateIndex(table + "_created_at").IfNotExists().Table(table).Column("created_at"),
		b.CreateIndex(table + "_status").IfNotExists().Table(table).Column("status"),
	}

	for _, stmt := range stmts {
		query, args := stmt.Query()
		if err := s.DB.Exec(ctx, query, args, nil); err != nil {
			return err
		}
	}
	return nil
}

// Put upserts a record by ID.
func (s *Store) Put(ctx context.Context, rec *storage.Record) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	fields, err := json.Marshal(nonNil(rec.Fields))
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}
	if rec.Meta == nil {
		meta = []byte("{}")
	}

	query, args := entsql.Dialect(s.DB.Dialect()).
		Insert(table).
		Columns(columns...).
		Values(
			rec.ID,
			rec.CreatedAt.UTC(),
			string(rec.Status),
			string(fields),
			rec.Error,
			string(meta),
			rec.Provider,
			rec.Model,
			rec.Chunks,
			rec.DurationMs,
			rec.PromptTokens,
			rec.CompletionTokens,
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := s.DB.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	sel := s.selector().Where(entsql.EQ("id", id))

	recs, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if len(recs) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return recs[0], nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	sel := s.selector()
	if opts.Status != "" {
		sel.Where(entsql.EQ("status", string(opts.Status)))
	}
	sel.OrderBy(entsql.Desc("created_at"), entsql.Asc("id")).
		Limit(opts.EffectiveLimit())

	recs, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return recs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) selector() *entsql.Selector {
	return entsql.Dialect(s.DB.Dialect()).
		Select(columns...).
		From(entsql.Table(table))
}

func (s *Store) query(ctx context.Context, sel *entsql.Selector) ([]*storage.Record, error) {
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := s.DB.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*storage.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scan(rows *entsql.Rows) (*storage.Record, error) {
	var (
		rec       storage.Record
		createdAt time.Time
		status    string
		fields    string
		meta      string
	)

	err := rows.Scan(
		&rec.ID,
		&createdAt,
		&status,
		&fields,
		&rec.Error,
		&meta,
		&rec.Provider,
		&rec.Model,
		&rec.Chunks,
		&rec.DurationMs,
		&rec.PromptTokens,
		&rec.CompletionTokens,
	)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = createdAt.UTC()
	rec.Status = reducer.Status(status)

	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
	}
	if len(rec.Meta) == 0 {
		rec.Meta = nil
	}
	return &rec, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
