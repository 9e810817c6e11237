package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Snapshot is a point-in-time view of the datasource schema.
type Snapshot struct {
	Tables []Table
}

type Table struct {
	Name        string
	Columns     []ColumnSchema
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

type ColumnSchema struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// PromptText renders the snapshot in the layout the SQL generation prompt
// expects:
//
//	Table: <name>
//	  - <column> (<TYPE>) NULL|NOT NULL
func (s *Snapshot) PromptText() string {
	var lines []string
	for _, t := range s.Tables {
		lines = append(lines, fmt.Sprintf("Table: %s", t.Name))
		for _, c := range t.Columns {
			nullable := "NOT NULL"
			if c.Nullable {
				nullable = "NULL"
			}
			lines = append(lines, fmt.Sprintf("  - %s (%s) %s", c.Name, strings.ToUpper(c.Type), nullable))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Snapshot introspects every base table in the datasource.
func (s *Source) Snapshot(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tables: %w", err)
	}

	snap := &Snapshot{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		table, err := s.describeTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("error describing table %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

func (s *Source) tableNames(ctx context.Context) ([]string, error) {
	var query string
	switch s.engine {
	case EngineSQLite:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case EnginePostgres:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
	default:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`
	}

	var names []string
	err := s.forEachRow(ctx, query, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

// describeTable introspects a single table. Table names reach here only from
// tableNames or after checkTable, so interpolating them is safe.
func (s *Source) describeTable(ctx context.Context, name string) (*Table, error) {
	table := &Table{Name: name}

	columns, err := s.describeColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	table.Columns = columns

	switch s.engine {
	case EngineSQLite:
		err = s.forEachRow(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name), func(rows *sql.Rows) error {
			var cid, notNull, pk int
			var colName, colType string
			var defaultValue sql.NullString
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultValue, &pk); err != nil {
				return err
			}
			if pk > 0 {
				table.PrimaryKey = append(table.PrimaryKey, colName)
			}
			return nil
		})
	case EnginePostgres:
		err = s.forEachRow(ctx, `
			SELECT column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = 'public'
				AND table_name = $1
				AND constraint_name IN (
					SELECT constraint_name
					FROM information_schema.table_constraints
					WHERE table_schema = 'public'
						AND table_name = $1
						AND constraint_type = 'PRIMARY KEY'
				)
			ORDER BY ordinal_position`,
			func(rows *sql.Rows) error {
				var colName string
				if err := rows.Scan(&colName); err != nil {
					return err
				}
				table.PrimaryKey = append(table.PrimaryKey, colName)
				return nil
			}, name)
	default:
		err = s.forEachRow(ctx, `
			SELECT column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE()
				AND table_name = ?
				AND constraint_name = 'PRIMARY'
			ORDER BY ordinal_position`,
			func(rows *sql.Rows) error {
				var colName string
				if err := rows.Scan(&colName); err != nil {
					return err
				}
				table.PrimaryKey = append(table.PrimaryKey, colName)
				return nil
			}, name)
	}
	if err != nil {
		return nil, err
	}

	fks, err := s.describeForeignKeys(ctx, name)
	if err != nil {
		return nil, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func (s *Source) describeColumns(ctx context.Context, name string) ([]ColumnSchema, error) {
	var columns []ColumnSchema

	switch s.engine {
	case EngineSQLite:
		err := s.forEachRow(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name), func(rows *sql.Rows) error {
			var cid, notNull, pk int
			var colName, colType string
			var defaultValue sql.NullString
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultValue, &pk); err != nil {
				return err
			}
			columns = append(columns, ColumnSchema{
				Name:     colName,
				Type:     colType,
				Nullable: notNull == 0 && pk == 0,
				Default:  defaultValue.String,
			})
			return nil
		})
		return columns, err
	case EnginePostgres:
		err := s.forEachRow(ctx, `
			SELECT column_name, data_type, is_nullable, column_default
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
			ORDER BY ordinal_position`,
			func(rows *sql.Rows) error {
				var col ColumnSchema
				var nullable string
				var defaultValue sql.NullString
				if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultValue); err != nil {
					return err
				}
				col.Nullable = nullable == "YES"
				col.Default = defaultValue.String
				columns = append(columns, col)
				return nil
			}, name)
		return columns, err
	default:
		err := s.forEachRow(ctx, `
			SELECT column_name, column_type, is_nullable, column_default
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`,
			func(rows *sql.Rows) error {
				var col ColumnSchema
				var nullable string
				var defaultValue sql.NullString
				if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultValue); err != nil {
					return err
				}
				col.Nullable = nullable == "YES"
				col.Default = defaultValue.String
				columns = append(columns, col)
				return nil
			}, name)
		return columns, err
	}
}

func (s *Source) describeForeignKeys(ctx context.Context, name string) ([]ForeignKey, error) {
	var fks []ForeignKey

	switch s.engine {
	case EngineSQLite:
		err := s.forEachRow(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", name), func(rows *sql.Rows) error {
			var id, seq int
			var refTable, from, onUpdate, onDelete, match string
			var to sql.NullString
			if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				return err
			}
			fks = append(fks, ForeignKey{Column: from, RefTable: refTable, RefColumn: to.String})
			return nil
		})
		return fks, err
	case EnginePostgres:
		err := s.forEachRow(ctx, `
			SELECT kcu.column_name, ccu.table_name, ccu.column_name
			FROM information_schema.table_constraints AS tc
			JOIN information_schema.key_column_usage AS kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage AS ccu
				ON ccu.constraint_name = tc.constraint_name
				AND ccu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
				AND tc.table_schema = 'public'
				AND tc.table_name = $1
			ORDER BY kcu.ordinal_position`,
			func(rows *sql.Rows) error {
				var fk ForeignKey
				if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
					return err
				}
				fks = append(fks, fk)
				return nil
			}, name)
		return fks, err
	default:
		err := s.forEachRow(ctx, `
			SELECT column_name, referenced_table_name, referenced_column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE()
				AND table_name = ?
				AND referenced_table_name IS NOT NULL
			ORDER BY ordinal_position`,
			func(rows *sql.Rows) error {
				var fk ForeignKey
				if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
					return err
				}
				fks = append(fks, fk)
				return nil
			}, name)
		return fks, err
	}
}
