package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sqlporter/internal/archive"
	"sqlporter/internal/client"
	"sqlporter/internal/execx"
	"sqlporter/internal/imports"

	"github.com/spf13/cobra"
)

var (
	importDatabase string
	importArchive  string
	importForce    bool
	importSchema   bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an exported archive into a target server",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := LoadConnection()
		if err != nil {
			return err
		}

		workDir, err := os.MkdirTemp("", "sqlporter-import-")
		if err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}
		// The orchestrator owns workDir from here and removes it when
		// the run ends, success or not.

		Log.Infof("unpacking %s", importArchive)
		if err := archive.Unpack(importArchive, workDir); err != nil {
			os.RemoveAll(workDir)
			return err
		}

		runner := &execx.Runner{Log: Log}
		mode := execx.ModeForLevel(Log.Level())
		logDir := filepath.Join(workDir, imports.LogDir)

		o := &imports.Orchestrator{
			Log:        Log,
			SQL:        &client.Sqlcmd{Runner: runner, Conn: conn, Mode: mode},
			Bulk:       &client.BCP{Runner: runner, Conn: conn, Mode: mode, LogDir: logDir},
			Dir:        workDir,
			Database:   importDatabase,
			Force:      importForce,
			SchemaOnly: importSchema,
		}

		start := time.Now()
		sum, err := o.Run()
		if err != nil {
			return err
		}

		// The summary is always shown, whatever the verbosity.
		fmt.Println("\n📥 Import Summary:")
		fmt.Printf("  schema files : %d applied, %d with warnings, %d failed\n",
			sum.SchemaApplied, sum.SchemaWarned, sum.SchemaFailed)
		if !importSchema {
			fmt.Printf("  data files   : %d imported, %d failed\n", sum.DataImported, sum.DataFailed)
		}
		fmt.Printf("  elapsed      : %s\n", time.Since(start).Round(time.Millisecond))

		if sum.SchemaFailed > 0 || sum.DataFailed > 0 {
			fmt.Printf("⚠ Import finished with gaps, database %s is usable\n", importDatabase)
		} else {
			fmt.Printf("✅ Import into %s complete\n", importDatabase)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importDatabase, "database", "d", "", "target database name")
	importCmd.Flags().StringVarP(&importArchive, "archive", "a", "", "archive file to import")
	importCmd.Flags().BoolVar(&importForce, "force", false, "drop and recreate the database if it already exists")
	importCmd.Flags().BoolVar(&importSchema, "schema-only", false, "apply schema scripts but skip table data")
	importCmd.MarkFlagRequired("database")
	importCmd.MarkFlagRequired("archive")
}
