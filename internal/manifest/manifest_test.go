package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"sqlporter/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableRef(t *testing.T) {
	ref, ok := manifest.ParseTableRef("Sales.dbo.Orders")
	require.True(t, ok)
	assert.Equal(t, "Sales", ref.Database)
	assert.Equal(t, "dbo", ref.Schema)
	assert.Equal(t, "Orders", ref.Table)
	assert.Equal(t, "dbo.Orders.fmt", ref.FormatFile())
	assert.Equal(t, "dbo.Orders.dat", ref.DataFile())

	invalid := []string{
		"",
		"Orders",
		"dbo.Orders",
		"Sales.dbo.Orders.Extra",
		"Sales..Orders",
		".dbo.Orders",
		"Sales.dbo.",
	}
	for _, line := range invalid {
		_, ok := manifest.ParseTableRef(line)
		assert.False(t, ok, "line %q should be invalid", line)
	}
}

func TestReadTablesRoutesMalformedLinesToInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), manifest.TableManifestName)
	content := "Sales.dbo.Orders\n\nnot-a-table\nSales.audit.Events\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := manifest.ReadTables(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Valid)
	assert.False(t, entries[1].Valid)
	assert.Equal(t, "not-a-table", entries[1].Raw)
	assert.True(t, entries[2].Valid)
}

func TestSchemaManifestPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), manifest.SchemaManifestName)
	files := []string{"tables.sql", "constraints.sql", "views.sql"}
	require.NoError(t, manifest.WriteSchemaFiles(path, files))

	got, err := manifest.ReadSchemaFiles(path)
	require.NoError(t, err)
	assert.Equal(t, files, got)
}

func TestSchemaOnlySetMatching(t *testing.T) {
	s := manifest.NewSchemaOnlySet([]string{"AuditLog", "Sales.dbo.Sessions", "staging.Raw"})

	ref := func(db, schema, table string) manifest.TableRef {
		return manifest.TableRef{Database: db, Schema: schema, Table: table}
	}

	assert.True(t, s.Contains(ref("Sales", "dbo", "AuditLog")), "bare table name")
	assert.True(t, s.Contains(ref("Sales", "dbo", "auditlog")), "case insensitive")
	assert.True(t, s.Contains(ref("Sales", "dbo", "Sessions")), "fully qualified")
	assert.True(t, s.Contains(ref("Sales", "staging", "Raw")), "schema qualified")
	assert.False(t, s.Contains(ref("Sales", "dbo", "Orders")))
}

func TestSchemasDistinctSorted(t *testing.T) {
	entries := []manifest.Entry{
		{Valid: true, Ref: manifest.TableRef{Database: "S", Schema: "staging", Table: "A"}},
		{Valid: true, Ref: manifest.TableRef{Database: "S", Schema: "dbo", Table: "B"}},
		{Valid: true, Ref: manifest.TableRef{Database: "S", Schema: "Staging", Table: "C"}},
		{Valid: false, Raw: "junk"},
	}

	got := manifest.Schemas(entries)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "dbo")
}
