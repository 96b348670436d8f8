package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/entityindex/entity"
)

// ErrInvalidTable is returned by NewTable for unusable configurations.
var ErrInvalidTable = errors.New("invalid table config")

// findChunk bounds the number of keys per IN list.
const findChunk = 500

// TableConfig maps a table to an entity type.
type TableConfig struct {
	EntityType string
	Table      string
	// PrimaryKey is the key column. Default: "id".
	PrimaryKey string
	// Columns are the columns read into records. Empty reads all columns.
	Columns []string
	// JSONColumns hold JSON text decoded into maps and slices, e.g. an
	// optional attributes collection.
	JSONColumns []string
	// SearchableWhere is an SQL condition selecting the searchable rows.
	SearchableWhere string
	Placeholder     PlaceholderStyle
}

// Table is a repository over one SQL table. It implements
// entity.Repository, entity.Loader and entity.Iterator.
type Table struct {
	db       *sql.DB
	cfg      TableConfig
	table    string
	pk       string
	columns  string
	jsonCols map[string]bool
}

// NewTable validates cfg and returns a table repository.
func NewTable(db *sql.DB, cfg TableConfig) (*Table, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", ErrInvalidTable)
	}
	if cfg.EntityType == "" {
		return nil, fmt.Errorf("%w: missing entity type", ErrInvalidTable)
	}
	if cfg.PrimaryKey == "" {
		cfg.PrimaryKey = "id"
	}
	idents := append([]string{cfg.Table, cfg.PrimaryKey}, cfg.Columns...)
	for _, ident := range append(idents, cfg.JSONColumns...) {
		if !validIdent(ident) {
			return nil, fmt.Errorf("%w: invalid identifier %q in %s", ErrInvalidTable, ident, cfg.EntityType)
		}
	}

	t := &Table{
		db:       db,
		cfg:      cfg,
		table:    quoteIdent(cfg.Table),
		pk:       quoteIdent(cfg.PrimaryKey),
		jsonCols: make(map[string]bool, len(cfg.JSONColumns)),
	}
	for _, c := range cfg.JSONColumns {
		t.jsonCols[c] = true
	}
	if len(cfg.Columns) == 0 {
		t.columns = "*"
	} else {
		cols := make([]string, 0, len(cfg.Columns)+1)
		hasPK := false
		for _, c := range cfg.Columns {
			hasPK = hasPK || c == cfg.PrimaryKey
			cols = append(cols, quoteIdent(c))
		}
		if !hasPK {
			cols = append(cols, t.pk)
		}
		t.columns = strings.Join(cols, ", ")
	}
	return t, nil
}

// Repository returns t, or a view that also implements
// entity.SearchableIDProvider when SearchableWhere is set.
func (t *Table) Repository() entity.Repository {
	if t.cfg.SearchableWhere != "" {
		return &SearchableTable{Table: t}
	}
	return t
}

// EntityType implements entity.Repository.
func (t *Table) EntityType() string { return t.cfg.EntityType }

// NewInstance implements entity.Repository.
func (t *Table) NewInstance() entity.Entity {
	return entity.NewRecord(t.cfg.EntityType, nil)
}

// ListAllPrimaryKeys implements entity.Repository. It reads the whole key
// column.
func (t *Table) ListAllPrimaryKeys(ctx context.Context) ([]string, error) {
	return t.keys(ctx, "")
}

func (t *Table) keys(ctx context.Context, where string) ([]string, error) {
	q := "SELECT " + t.pk + " FROM " + t.table
	if where != "" {
		q += " WHERE (" + where + ")"
	}
	q += " ORDER BY " + t.pk

	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", t.cfg.EntityType, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", t.cfg.EntityType, err)
		}
		keys = append(keys, entity.FormatKey(v))
	}
	return keys, rows.Err()
}

// Each implements entity.Iterator.
func (t *Table) Each(ctx context.Context, fn func(entity.Entity) error) error {
	rows, err := t.db.QueryContext(ctx, "SELECT "+t.columns+" FROM "+t.table+" ORDER BY "+t.pk)
	if err != nil {
		return fmt.Errorf("read %s: %w", t.cfg.EntityType, err)
	}
	defer rows.Close()

	return t.scan(rows, fn)
}

// Find implements entity.Loader.
func (t *Table) Find(ctx context.Context, keys []string) ([]entity.Entity, error) {
	found := make(map[string]entity.Entity, len(keys))
	for start := 0; start < len(keys); start += findChunk {
		chunk := keys[start:min(start+findChunk, len(keys))]

		b := builder{style: t.cfg.Placeholder}
		marks := make([]string, len(chunk))
		for i, k := range chunk {
			marks[i] = b.arg(k)
		}
		q := "SELECT " + t.columns + " FROM " + t.table +
			" WHERE " + t.pk + " IN (" + strings.Join(marks, ", ") + ")"

		rows, err := t.db.QueryContext(ctx, q, b.args...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t.cfg.EntityType, err)
		}
		err = t.scan(rows, func(e entity.Entity) error {
			raw, _ := entity.ReadNamedPath(e, t.cfg.PrimaryKey)
			found[entity.FormatKey(raw)] = e
			return nil
		})
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}

	out := make([]entity.Entity, 0, len(found))
	for _, k := range keys {
		if e, ok := found[k]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *Table) scan(rows *sql.Rows, fn func(entity.Entity) error) error {
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read %s columns: %w", t.cfg.EntityType, err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan %s: %w", t.cfg.EntityType, err)
		}
		attrs := make(map[string]any, len(cols))
		for i, c := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if s, ok := v.(string); ok && t.jsonCols[c] && s != "" {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err != nil {
					return fmt.Errorf("decode %s.%s: %w", t.cfg.EntityType, c, err)
				}
				v = decoded
			}
			attrs[c] = v
		}
		if err := fn(entity.NewRecord(t.cfg.EntityType, attrs)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SearchableTable is a Table filtered by its SearchableWhere condition.
type SearchableTable struct {
	*Table
}

// SearchableIDs implements entity.SearchableIDProvider.
func (t *SearchableTable) SearchableIDs(ctx context.Context) ([]string, error) {
	return t.keys(ctx, t.cfg.SearchableWhere)
}
