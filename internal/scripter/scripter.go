// Package scripter turns the source database's catalogs into T-SQL script
// text, one category at a time. It is the scripting collaborator the
// export planner writes files from; the scripts themselves are applied
// later through sqlcmd, never through this connection.
package scripter

import (
	"database/sql"
	"fmt"
	"strings"

	"sqlporter/internal/console"
	"sqlporter/internal/manifest"
)

// BatchSeparator terminates every scripted statement so the files can be
// replayed batch by batch.
const BatchSeparator = "GO"

type Scripter struct {
	DB       *sql.DB
	Log      *console.Logger
	Database string
}

type tableInfo struct {
	Schema       string
	Name         string
	Columns      []columnInfo
	PKColumns    []string
	Dependencies []string // schema.table of referenced tables
}

type columnInfo struct {
	Name       string
	DataType   string
	MaxLength  int
	Precision  int
	Scale      int
	IsNullable bool
	IsIdentity bool
	Default    string
}

func (t *tableInfo) key() string {
	return strings.ToLower(t.Schema + "." + t.Name)
}

// ListTables returns every base table as a TableRef, ordered so that
// referenced tables come before the tables referencing them. The order is
// carried into the table manifest so data loads insert parents first.
func (s *Scripter) ListTables() ([]manifest.TableRef, error) {
	tables, err := s.loadTables()
	if err != nil {
		return nil, err
	}
	sorted := sortByDependencies(tables, s.Log)

	refs := make([]manifest.TableRef, 0, len(sorted))
	for _, t := range sorted {
		refs = append(refs, manifest.TableRef{Database: s.Database, Schema: t.Schema, Table: t.Name})
	}
	return refs, nil
}

func (s *Scripter) loadTables() ([]*tableInfo, error) {
	rows, err := s.DB.Query(`
		SELECT s.name, t.name
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE t.is_ms_shipped = 0
		ORDER BY s.name, t.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tableMap := make(map[string]*tableInfo)
	var tables []*tableInfo
	for rows.Next() {
		t := &tableInfo{}
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tableMap[t.key()] = t
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	if err := s.loadColumns(tableMap); err != nil {
		return nil, err
	}
	if err := s.loadPrimaryKeys(tableMap); err != nil {
		return nil, err
	}
	if err := s.loadDependencies(tableMap); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *Scripter) loadColumns(tableMap map[string]*tableInfo) error {
	rows, err := s.DB.Query(`
		SELECT sch.name, t.name, c.name, ty.name,
		       c.max_length, c.precision, c.scale,
		       c.is_nullable, c.is_identity,
		       ISNULL(dc.definition, '')
		FROM sys.columns c
		JOIN sys.tables t ON c.object_id = t.object_id
		JOIN sys.schemas sch ON t.schema_id = sch.schema_id
		JOIN sys.types ty ON c.user_type_id = ty.user_type_id
		LEFT JOIN sys.default_constraints dc ON c.default_object_id = dc.object_id
		WHERE t.is_ms_shipped = 0
		ORDER BY t.object_id, c.column_id`)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table string
		var col columnInfo
		if err := rows.Scan(&schema, &table, &col.Name, &col.DataType,
			&col.MaxLength, &col.Precision, &col.Scale,
			&col.IsNullable, &col.IsIdentity, &col.Default); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		if t, ok := tableMap[strings.ToLower(schema+"."+table)]; ok {
			t.Columns = append(t.Columns, col)
		}
	}
	return rows.Err()
}

func (s *Scripter) loadPrimaryKeys(tableMap map[string]*tableInfo) error {
	rows, err := s.DB.Query(`
		SELECT sch.name, t.name, c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas sch ON t.schema_id = sch.schema_id
		WHERE i.is_primary_key = 1
		ORDER BY t.object_id, ic.key_ordinal`)
	if err != nil {
		return fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, col string
		if err := rows.Scan(&schema, &table, &col); err != nil {
			return fmt.Errorf("failed to scan primary key: %w", err)
		}
		if t, ok := tableMap[strings.ToLower(schema+"."+table)]; ok {
			t.PKColumns = append(t.PKColumns, col)
		}
	}
	return rows.Err()
}

func (s *Scripter) loadDependencies(tableMap map[string]*tableInfo) error {
	rows, err := s.DB.Query(`
		SELECT ps.name, pt.name, rs.name, rt.name
		FROM sys.foreign_keys fk
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id`)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pSchema, pTable, rSchema, rTable string
		if err := rows.Scan(&pSchema, &pTable, &rSchema, &rTable); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		pKey := strings.ToLower(pSchema + "." + pTable)
		rKey := strings.ToLower(rSchema + "." + rTable)
		if pKey == rKey {
			continue // self references do not affect load order
		}
		if t, ok := tableMap[pKey]; ok {
			if _, exists := tableMap[rKey]; exists {
				t.Dependencies = append(t.Dependencies, rKey)
			}
		}
	}
	return rows.Err()
}
