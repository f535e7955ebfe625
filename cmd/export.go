package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sqlporter/internal/archive"
	"sqlporter/internal/client"
	"sqlporter/internal/execx"
	"sqlporter/internal/export"
	"sqlporter/internal/imports"
	"sqlporter/internal/manifest"
	"sqlporter/internal/scripter"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exportDatabase string
	exportOut      string
	exportMaxRows  int
	schemaOnlyTabs []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a database's schema and data into an archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := LoadConnection()
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = exportDatabase + ".tar.gz"
		}

		db, err := sql.Open("sqlserver", conn.DSN(exportDatabase))
		if err != nil {
			return fmt.Errorf("failed to open source database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", conn.Server, err)
		}
		Log.Infof("connected to %s, exporting %s", conn.Server, exportDatabase)

		workDir, err := os.MkdirTemp("", "sqlporter-export-")
		if err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}
		defer os.RemoveAll(workDir)

		schemaDir := filepath.Join(workDir, imports.SchemaDir)
		dataDir := filepath.Join(workDir, imports.DataDir)
		logDir := filepath.Join(workDir, imports.LogDir)
		for _, d := range []string{schemaDir, dataDir, logDir} {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", d, err)
			}
		}

		sc := &scripter.Scripter{DB: db, Log: Log, Database: exportDatabase}

		start := time.Now()
		Log.Infof("scripting schema objects...")
		planner := &export.Planner{Log: Log, Scripter: sc, OutDir: schemaDir}
		if err := planner.Run(); err != nil {
			return err
		}

		refs, err := sc.ListTables()
		if err != nil {
			return err
		}
		if err := manifest.WriteTables(filepath.Join(workDir, manifest.TableManifestName), refs); err != nil {
			return err
		}
		Log.Infof("table manifest lists %d tables", len(refs))

		entries := make([]manifest.Entry, 0, len(refs))
		for _, ref := range refs {
			entries = append(entries, manifest.Entry{Raw: ref.String(), Ref: ref, Valid: true})
		}

		runner := &execx.Runner{Log: Log}
		mode := execx.ModeForLevel(Log.Level())
		bulk := &client.BCP{Runner: runner, Conn: conn, Mode: mode, LogDir: logDir}

		schemaOnly := schemaOnlyTabs
		if len(schemaOnly) == 0 {
			schemaOnly = viper.GetStringSlice("settings.schema_only_tables")
		}

		maxRows := viper.GetInt("settings.max_rows")
		if exportMaxRows > 0 {
			maxRows = exportMaxRows
		}

		exporter := &export.DataExporter{
			Log:        Log,
			Bulk:       bulk,
			DataDir:    dataDir,
			SchemaOnly: manifest.NewSchemaOnlySet(schemaOnly),
			MaxRows:    maxRows,
		}

		var bar *uiprogress.Bar
		if len(entries) > 0 && mode != execx.ModeStream {
			uiprogress.Start()
			bar = uiprogress.AddBar(len(entries) * 2).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Exporting: "
			})
			exporter.OnProgress = func() { bar.Incr() }
		}

		outcome, counters := exporter.Run(entries)
		if bar != nil {
			uiprogress.Stop()
		}

		if outcome != export.OutcomeFailed {
			if err := archive.Pack(workDir, out); err != nil {
				return err
			}
		}

		// The summary is always shown, whatever the verbosity.
		fmt.Println("\n📦 Export Summary:")
		fmt.Printf("  format files : %d created, %d failed\n", counters.FormatCreated, counters.FormatFailed)
		fmt.Printf("  data files   : %d exported, %d failed\n", counters.DataExported, counters.DataFailed)
		fmt.Printf("  elapsed      : %s\n", time.Since(start).Round(time.Millisecond))

		switch outcome {
		case export.OutcomeOK:
			fmt.Printf("✅ Archive written to %s\n", out)
			return nil
		case export.OutcomePartial:
			fmt.Printf("⚠ Partial export written to %s\n", out)
			return &exitCodeError{code: outcome.ExitCode()}
		default:
			return &exitCodeError{code: outcome.ExitCode(), msg: "export produced no usable artifacts"}
		}
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDatabase, "database", "d", "", "source database name")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "archive path (default <database>.tar.gz)")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "cap rows exported per table (0 = no cap)")
	exportCmd.Flags().StringSliceVarP(&schemaOnlyTabs, "schema-only-table", "t", nil,
		"table whose structure is exported but whose rows are skipped (repeatable)")
	exportCmd.MarkFlagRequired("database")
}
