package scripter

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTablesOrdersByForeignKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT s.name, t.name\s+FROM sys.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"schema", "table"}).
			AddRow("dbo", "Orders").
			AddRow("dbo", "Users"))
	mock.ExpectQuery(`FROM sys.columns`).
		WillReturnRows(sqlmock.NewRows([]string{"schema", "table", "col", "type", "len", "prec", "scale", "null", "ident", "default"}))
	mock.ExpectQuery(`is_primary_key = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"schema", "table", "col"}))
	mock.ExpectQuery(`FROM sys.foreign_keys fk\s+JOIN sys.tables pt`).
		WillReturnRows(sqlmock.NewRows([]string{"ps", "pt", "rs", "rt"}).
			AddRow("dbo", "Orders", "dbo", "Users"))

	s := &Scripter{DB: db, Database: "Sales"}
	refs, err := s.ListTables()
	require.NoError(t, err)

	require.Len(t, refs, 2)
	assert.Equal(t, "Sales.dbo.Users", refs[0].String())
	assert.Equal(t, "Sales.dbo.Orders", refs[1].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViewScriptsEmitBatchSeparators(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM sys.sql_modules m`).
		WithArgs("V").
		WillReturnRows(sqlmock.NewRows([]string{"definition"}).
			AddRow("CREATE VIEW dbo.ActiveUsers AS SELECT * FROM dbo.Users WHERE active = 1"))

	s := &Scripter{DB: db, Database: "Sales"}
	text, err := s.ViewScripts()
	require.NoError(t, err)

	assert.Contains(t, text, "CREATE VIEW dbo.ActiveUsers")
	assert.Contains(t, text, "\nGO\n")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScriptCreateTable(t *testing.T) {
	tbl := &tableInfo{
		Schema: "dbo",
		Name:   "Users",
		Columns: []columnInfo{
			{Name: "id", DataType: "int", IsIdentity: true},
			{Name: "email", DataType: "nvarchar", MaxLength: 510},
			{Name: "note", DataType: "nvarchar", MaxLength: -1, IsNullable: true},
			{Name: "balance", DataType: "decimal", Precision: 18, Scale: 2, Default: "((0))"},
		},
		PKColumns: []string{"id"},
	}

	got := scriptCreateTable(tbl)

	assert.Contains(t, got, "CREATE TABLE [dbo].[Users]")
	assert.Contains(t, got, "[id] int IDENTITY(1,1) NOT NULL")
	assert.Contains(t, got, "[email] nvarchar(255) NOT NULL")
	assert.Contains(t, got, "[note] nvarchar(max) NULL")
	assert.Contains(t, got, "[balance] decimal(18,2) NOT NULL DEFAULT ((0))")
	assert.Contains(t, got, "CONSTRAINT [PK_dbo_Users] PRIMARY KEY ([id])")
}
