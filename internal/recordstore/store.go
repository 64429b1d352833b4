// Package recordstore is a SQLite-backed source record store. It keeps a
// class hierarchy, records with JSON attributes, and named relations
// between records, and exposes them through the record capability
// interfaces.
package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// Accessor computes a virtual field of a record.
type Accessor func(rec *Record) string

// Data is the stored content of one record.
type Data struct {
	Class string
	ID    int64
	Attrs map[string]any
	// Published is nil for classes without a published concept.
	Published *bool
	// File is the path of the backing file, if any.
	File   string
	Folder bool
	Link   string
}

// Store is a SQLite record store.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	parents   map[string]string
	relations map[string]map[string]record.RelationKind
	accessors map[string]map[string]Accessor
	logger    *slog.Logger
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (or creates) the record database at path. An empty path gives
// an in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		db:        db,
		parents:   make(map[string]string),
		relations: make(map[string]map[string]record.RelationKind),
		accessors: make(map[string]map[string]Accessor),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.loadSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classes (
		name TEXT PRIMARY KEY,
		parent TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS relation_defs (
		class TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (class, name)
	);

	CREATE TABLE IF NOT EXISTS records (
		class TEXT NOT NULL,
		id INTEGER NOT NULL,
		attrs TEXT NOT NULL DEFAULT '{}',
		published INTEGER,
		file_path TEXT NOT NULL DEFAULT '',
		is_folder INTEGER NOT NULL DEFAULT 0,
		link TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (class, id)
	);

	CREATE TABLE IF NOT EXISTS relations (
		class TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		target_class TEXT NOT NULL,
		target_id INTEGER NOT NULL,
		PRIMARY KEY (class, id, name, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// loadSchema caches the class hierarchy and relation declarations.
func (s *Store) loadSchema() error {
	rows, err := s.db.Query(`SELECT name, parent FROM classes`)
	if err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}
	for rows.Next() {
		var name, parent string
		if err := rows.Scan(&name, &parent); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan class: %w", err)
		}
		s.parents[name] = parent
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT class, name, kind FROM relation_defs`)
	if err != nil {
		return fmt.Errorf("failed to load relations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var class, name, kind string
		if err := rows.Scan(&class, &name, &kind); err != nil {
			return fmt.Errorf("failed to scan relation: %w", err)
		}
		k, err := parseRelationKind(kind)
		if err != nil {
			return err
		}
		s.declare(class, name, k)
	}
	return rows.Err()
}

func (s *Store) declare(class, name string, kind record.RelationKind) {
	if s.relations[class] == nil {
		s.relations[class] = make(map[string]record.RelationKind)
	}
	s.relations[class][name] = kind
}

// DefineClass declares class with an optional parent class.
func (s *Store) DefineClass(ctx context.Context, name, parent string) error {
	if name == "" {
		return serrors.New(serrors.ErrCodeInvalidInput, "class name is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defineClass(ctx, name, parent)
}

func (s *Store) defineClass(ctx context.Context, name, parent string) error {
	for p := parent; p != ""; p = s.parents[p] {
		if p == name {
			return serrors.New(serrors.ErrCodeInvalidInput, "class hierarchy would loop", nil).
				WithDetail("class", name)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes (name, parent) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET parent = excluded.parent`, name, parent)
	if err != nil {
		return fmt.Errorf("failed to define class %s: %w", name, err)
	}
	s.parents[name] = parent
	return nil
}

// DefineRelation declares a named relation on class and its subclasses.
func (s *Store) DefineRelation(ctx context.Context, class, name string, kind record.RelationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relation_defs (class, name, kind) VALUES (?, ?, ?)
		ON CONFLICT(class, name) DO UPDATE SET kind = excluded.kind`, class, name, kind.String())
	if err != nil {
		return fmt.Errorf("failed to define relation %s.%s: %w", class, name, err)
	}
	s.declare(class, name, kind)
	return nil
}

// RegisterAccessor adds a virtual field to class and its subclasses.
// Accessors take precedence over stored attributes of the same name.
func (s *Store) RegisterAccessor(class, name string, fn Accessor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessors[class] == nil {
		s.accessors[class] = make(map[string]Accessor)
	}
	s.accessors[class][name] = fn
}

// Ancestors implements record.Hierarchy.
func (s *Store) Ancestors(class string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ancestors(class)
}

func (s *Store) ancestors(class string) []string {
	var out []string
	for p := s.parents[class]; p != "" && len(out) <= len(s.parents); p = s.parents[p] {
		out = append(out, p)
	}
	return out
}

// lineage returns class followed by its ancestors.
func (s *Store) lineage(class string) []string {
	return append([]string{class}, s.ancestors(class)...)
}

// descendants returns class and every class inheriting from it, sorted.
func (s *Store) descendants(class string) []string {
	out := []string{class}
	for name := range s.parents {
		if name == class {
			continue
		}
		for _, a := range s.ancestors(name) {
			if a == class {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out[1:])
	return out
}

// Put inserts or replaces a record. Undeclared classes are declared without
// a parent.
func (s *Store) Put(ctx context.Context, d Data) error {
	if d.Class == "" {
		return serrors.New(serrors.ErrCodeInvalidInput, "record class is empty", nil)
	}
	attrs := d.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	aj, err := json.Marshal(attrs)
	if err != nil {
		return serrors.New(serrors.ErrCodeInvalidInput, "record attributes are not JSON", err).
			WithDetail("record", record.Ref{Class: d.Class, ID: d.ID}.String())
	}
	var published sql.NullBool
	if d.Published != nil {
		published = sql.NullBool{Bool: *d.Published, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.parents[d.Class]; !known {
		if err := s.defineClass(ctx, d.Class, ""); err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (class, id, attrs, published, file_path, is_folder, link)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(class, id) DO UPDATE SET
			attrs = excluded.attrs,
			published = excluded.published,
			file_path = excluded.file_path,
			is_folder = excluded.is_folder,
			link = excluded.link`,
		d.Class, d.ID, string(aj), published, d.File, d.Folder, d.Link)
	if err != nil {
		return fmt.Errorf("failed to save %s#%d: %w", d.Class, d.ID, err)
	}
	return nil
}

// Relate replaces the targets of a relation on from, in order.
func (s *Store) Relate(ctx context.Context, from record.Ref, name string, targets ...record.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE class = ? AND id = ? AND name = ?`,
		from.Class, from.ID, name); err != nil {
		return fmt.Errorf("failed to clear relation %s.%s: %w", from, name, err)
	}
	for i, t := range targets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relations (class, id, name, position, target_class, target_id)
			VALUES (?, ?, ?, ?, ?, ?)`, from.Class, from.ID, name, i, t.Class, t.ID); err != nil {
			return fmt.Errorf("failed to save relation %s.%s: %w", from, name, err)
		}
	}
	return tx.Commit()
}

// Delete removes a record and its outgoing relations.
func (s *Store) Delete(ctx context.Context, ref record.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE class = ? AND id = ?`, ref.Class, ref.ID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ref)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM relations WHERE class = ? AND id = ?`, ref.Class, ref.ID); err != nil {
		return fmt.Errorf("failed to delete relations of %s: %w", ref, err)
	}
	return nil
}

// List implements index.Source. It returns records of class and of every
// subclass. A non-empty filter is a trusted SQL boolean expression over the
// records table columns (class, id, attrs, published, file_path, is_folder,
// link), for example json_extract(attrs, '$.ShowInSearch') = 1.
func (s *Store) List(ctx context.Context, class, filter string) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("record store is closed")
	}

	classes := s.descendants(class)
	args := make([]any, len(classes))
	for i, c := range classes {
		args[i] = c
	}
	query := `SELECT class, id, attrs, published, file_path, is_folder, link FROM records
		WHERE class IN (?` + strings.Repeat(", ?", len(classes)-1) + `)`
	if strings.TrimSpace(filter) != "" {
		query += ` AND (` + filter + `)`
	}
	query += ` ORDER BY id, class`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, serrors.ConfigError("index filter rejected by record store", err).
			WithDetail("class", class).
			WithDetail("filter", filter)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", class, err)
	}
	return out, nil
}

// Load implements index.Source. Missing records yield an error matching
// index.ErrRecordNotFound.
func (s *Store) Load(ctx context.Context, ref record.Ref) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) load(ctx context.Context, ref record.Ref) (*Record, error) {
	if s.closed {
		return nil, fmt.Errorf("record store is closed")
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT class, id, attrs, published, file_path, is_folder, link
		FROM records WHERE class = ? AND id = ?`, ref.Class, ref.ID)
	rec, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(ref)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(sc scanner) (*Record, error) {
	var (
		rec       = &Record{store: s}
		aj        string
		published sql.NullBool
	)
	err := sc.Scan(&rec.ref.Class, &rec.ref.ID, &aj, &published, &rec.file, &rec.folder, &rec.link)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal([]byte(aj), &rec.attrs); err != nil {
		return nil, fmt.Errorf("corrupt attributes for %s: %w", rec.ref, err)
	}
	if published.Valid {
		rec.publishable = true
		rec.published = published.Bool
	}
	return rec, nil
}

// relation loads the targets of a declared relation. ok is false when
// neither class nor any ancestor declares name.
func (s *Store) relation(ref record.Ref, name string) (record.Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kind, ok := s.relationKind(ref.Class, name)
	if !ok {
		return record.Relation{}, false
	}
	rel := record.Relation{Kind: kind}

	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_class, target_id FROM relations
		WHERE class = ? AND id = ? AND name = ? ORDER BY position`, ref.Class, ref.ID, name)
	if err != nil {
		s.logger.Warn("relation_load_failed",
			slog.String("record", ref.String()),
			slog.String("relation", name),
			slog.String("error", err.Error()))
		return rel, true
	}
	var targets []record.Ref
	for rows.Next() {
		var t record.Ref
		if err := rows.Scan(&t.Class, &t.ID); err == nil {
			targets = append(targets, t)
		}
	}
	rows.Close()

	for _, t := range targets {
		target, err := s.load(ctx, t)
		if err != nil {
			// Dangling targets read as absent.
			continue
		}
		rel.Records = append(rel.Records, target)
		if !kind.Multi() {
			break
		}
	}
	return rel, true
}

func (s *Store) relationKind(class, name string) (record.RelationKind, bool) {
	for _, c := range s.lineage(class) {
		if kind, ok := s.relations[c][name]; ok {
			return kind, true
		}
	}
	return 0, false
}

func (s *Store) accessor(class, name string) (Accessor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.lineage(class) {
		if fn, ok := s.accessors[c][name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func notFound(ref record.Ref) error {
	return serrors.NotFoundError("record not found", nil).
		WithDetail("class", ref.Class).
		WithDetail("id", ref.IDString())
}

func parseRelationKind(s string) (record.RelationKind, error) {
	for _, k := range []record.RelationKind{record.HasOne, record.HasMany, record.ManyMany} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown relation kind %q", s)
}
