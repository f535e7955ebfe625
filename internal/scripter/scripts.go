package scripter

import (
	"fmt"
	"strings"
)

// TableScripts renders one CREATE TABLE statement per base table,
// including primary keys and identity columns, each terminated by a
// batch separator. Secondary indexes are scripted after the tables.
func (s *Scripter) TableScripts() (string, error) {
	tables, err := s.loadTables()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range sortByDependencies(tables, s.Log) {
		sb.WriteString(scriptCreateTable(t))
		sb.WriteString("\n" + BatchSeparator + "\n")
	}

	indexes, err := s.indexScripts()
	if err != nil {
		return "", err
	}
	sb.WriteString(indexes)

	return sb.String(), nil
}

func scriptCreateTable(t *tableInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE [%s].[%s] (\n", t.Schema, t.Name)

	lines := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		lines = append(lines, "    "+scriptColumn(c))
	}
	if len(t.PKColumns) > 0 {
		cols := make([]string, len(t.PKColumns))
		for i, c := range t.PKColumns {
			cols[i] = "[" + c + "]"
		}
		lines = append(lines, fmt.Sprintf("    CONSTRAINT [PK_%s_%s] PRIMARY KEY (%s)",
			t.Schema, t.Name, strings.Join(cols, ", ")))
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);")
	return sb.String()
}

func scriptColumn(c columnInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", c.Name, scriptType(c))
	if c.IsIdentity {
		sb.WriteString(" IDENTITY(1,1)")
	}
	if c.IsNullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != "" && !c.IsIdentity {
		sb.WriteString(" DEFAULT " + c.Default)
	}
	return sb.String()
}

func scriptType(c columnInfo) string {
	t := strings.ToLower(c.DataType)
	switch t {
	case "varchar", "char", "varbinary", "binary":
		if c.MaxLength < 0 {
			return t + "(max)"
		}
		return fmt.Sprintf("%s(%d)", t, c.MaxLength)
	case "nvarchar", "nchar":
		// max_length counts bytes; UCS-2 characters take two.
		if c.MaxLength < 0 {
			return t + "(max)"
		}
		return fmt.Sprintf("%s(%d)", t, c.MaxLength/2)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", t, c.Precision, c.Scale)
	case "datetime2", "datetimeoffset", "time":
		return fmt.Sprintf("%s(%d)", t, c.Scale)
	default:
		return t
	}
}

func (s *Scripter) indexScripts() (string, error) {
	rows, err := s.DB.Query(`
		SELECT sch.name, t.name, i.name, i.is_unique,
		       STRING_AGG(QUOTENAME(c.name), ', ') WITHIN GROUP (ORDER BY ic.key_ordinal)
		FROM sys.indexes i
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas sch ON t.schema_id = sch.schema_id
		JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		WHERE i.is_primary_key = 0 AND i.type > 0 AND t.is_ms_shipped = 0
		  AND ic.is_included_column = 0
		GROUP BY sch.name, t.name, i.name, i.is_unique
		ORDER BY sch.name, t.name, i.name`)
	if err != nil {
		return "", fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var schema, table, index, cols string
		var unique bool
		if err := rows.Scan(&schema, &table, &index, &unique, &cols); err != nil {
			return "", fmt.Errorf("failed to scan index: %w", err)
		}
		uniq := ""
		if unique {
			uniq = "UNIQUE "
		}
		fmt.Fprintf(&sb, "CREATE %sINDEX [%s] ON [%s].[%s] (%s);\n%s\n",
			uniq, index, schema, table, cols, BatchSeparator)
	}
	return sb.String(), rows.Err()
}

// ConstraintScripts renders foreign keys, check constraints, and
// triggers. Primary keys are deliberately absent: they travel with the
// tables so constraint application can always follow table creation.
func (s *Scripter) ConstraintScripts() (string, error) {
	var sb strings.Builder

	fks, err := s.foreignKeyScripts()
	if err != nil {
		return "", err
	}
	sb.WriteString(fks)

	checks, err := s.checkScripts()
	if err != nil {
		return "", err
	}
	sb.WriteString(checks)

	triggers, err := s.moduleScripts("TR")
	if err != nil {
		return "", err
	}
	sb.WriteString(triggers)

	return sb.String(), nil
}

func (s *Scripter) foreignKeyScripts() (string, error) {
	rows, err := s.DB.Query(`
		SELECT fk.name, ps.name, pt.name, rs.name, rt.name,
		       STRING_AGG(QUOTENAME(pc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id),
		       STRING_AGG(QUOTENAME(rc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id)
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		GROUP BY fk.name, ps.name, pt.name, rs.name, rt.name
		ORDER BY ps.name, pt.name, fk.name`)
	if err != nil {
		return "", fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var name, pSchema, pTable, rSchema, rTable, pCols, rCols string
		if err := rows.Scan(&name, &pSchema, &pTable, &rSchema, &rTable, &pCols, &rCols); err != nil {
			return "", fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fmt.Fprintf(&sb, "ALTER TABLE [%s].[%s] ADD CONSTRAINT [%s] FOREIGN KEY (%s) REFERENCES [%s].[%s] (%s);\n%s\n",
			pSchema, pTable, name, pCols, rSchema, rTable, rCols, BatchSeparator)
	}
	return sb.String(), rows.Err()
}

func (s *Scripter) checkScripts() (string, error) {
	rows, err := s.DB.Query(`
		SELECT sch.name, t.name, cc.name, cc.definition
		FROM sys.check_constraints cc
		JOIN sys.tables t ON cc.parent_object_id = t.object_id
		JOIN sys.schemas sch ON t.schema_id = sch.schema_id
		ORDER BY sch.name, t.name, cc.name`)
	if err != nil {
		return "", fmt.Errorf("failed to query check constraints: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var schema, table, name, definition string
		if err := rows.Scan(&schema, &table, &name, &definition); err != nil {
			return "", fmt.Errorf("failed to scan check constraint: %w", err)
		}
		fmt.Fprintf(&sb, "ALTER TABLE [%s].[%s] ADD CONSTRAINT [%s] CHECK %s;\n%s\n",
			schema, table, name, definition, BatchSeparator)
	}
	return sb.String(), rows.Err()
}

// ProcedureScripts renders stored procedures as saved in the catalog.
func (s *Scripter) ProcedureScripts() (string, error) {
	return s.moduleScripts("P")
}

// FunctionScripts renders scalar, inline, and table-valued functions.
func (s *Scripter) FunctionScripts() (string, error) {
	return s.moduleScripts("FN", "IF", "TF")
}

// ViewScripts renders views as saved in the catalog.
func (s *Scripter) ViewScripts() (string, error) {
	return s.moduleScripts("V")
}

func (s *Scripter) moduleScripts(objectTypes ...string) (string, error) {
	placeholders := make([]string, len(objectTypes))
	args := make([]interface{}, len(objectTypes))
	for i, t := range objectTypes {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		args[i] = t
	}

	query := fmt.Sprintf(`
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.objects o ON m.object_id = o.object_id
		WHERE o.type IN (%s) AND o.is_ms_shipped = 0
		ORDER BY o.object_id`, strings.Join(placeholders, ", "))

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to query module definitions: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return "", fmt.Errorf("failed to scan module definition: %w", err)
		}
		sb.WriteString(strings.TrimRight(definition, "\n"))
		sb.WriteString("\n" + BatchSeparator + "\n")
	}
	return sb.String(), rows.Err()
}
