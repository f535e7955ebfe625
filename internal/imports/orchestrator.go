// Package imports replays an unpacked export tree into a target server:
// resolve the database, create schemas, apply the ordered schema
// scripts, then load table data pairs.
package imports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sqlporter/internal/client"
	"sqlporter/internal/console"
	"sqlporter/internal/execx"
	"sqlporter/internal/manifest"
)

// DefaultSchema ships with every database and is never created.
const DefaultSchema = "dbo"

// Directory names inside an export tree.
const (
	SchemaDir = "schema"
	DataDir   = "data"
	LogDir    = "logs"
)

// Summary aggregates one run's results for the end-of-run report, which
// is printed regardless of verbosity.
type Summary struct {
	SchemaApplied int
	SchemaWarned  int
	SchemaFailed  int
	DataImported  int
	DataFailed    int
}

// Orchestrator walks one import run through its states. A returned error
// means the target database is definitively unusable; per-item failures
// land in the Summary instead.
type Orchestrator struct {
	Log        *console.Logger
	SQL        client.SQL
	Bulk       client.Bulk
	Dir        string
	Database   string
	Force      bool
	SchemaOnly bool
	OnProgress func()
}

func (o *Orchestrator) progress() {
	if o.OnProgress != nil {
		o.OnProgress()
	}
}

// Run executes the state machine. The working directory is removed when
// the run ends, whatever the outcome.
func (o *Orchestrator) Run() (Summary, error) {
	defer o.cleanup()

	var sum Summary

	if err := o.SQL.Ping(); err != nil {
		return sum, err
	}

	if err := o.resolveDatabase(); err != nil {
		return sum, err
	}

	entries, err := manifest.ReadTables(filepath.Join(o.Dir, manifest.TableManifestName))
	if err != nil {
		return sum, fmt.Errorf("table manifest is required: %w", err)
	}
	schemaFiles, err := manifest.ReadSchemaFiles(filepath.Join(o.Dir, SchemaDir, manifest.SchemaManifestName))
	if err != nil {
		return sum, fmt.Errorf("schema manifest is required: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(o.Dir, LogDir), 0o755); err != nil {
		o.Log.Warnf("cannot create log directory: %v", err)
	}

	o.createSchemas(entries)
	o.applySchemaFiles(schemaFiles, &sum)

	if o.SchemaOnly {
		o.Log.Infof("schema-only import, skipping data load")
	} else {
		o.loadData(entries, &sum)
	}

	return sum, nil
}

// resolveDatabase makes sure the target database exists and is ours to
// write into. An existing database without the force flag aborts before
// any mutation.
func (o *Orchestrator) resolveDatabase() error {
	exists, err := o.SQL.DatabaseExists(o.Database)
	if err != nil {
		return err
	}
	switch {
	case exists && !o.Force:
		return fmt.Errorf("database %s already exists on the target server (use --force to drop and recreate)", o.Database)
	case exists:
		o.Log.Warnf("dropping existing database %s", o.Database)
		if err := o.SQL.DropDatabase(o.Database); err != nil {
			return fmt.Errorf("dropping database %s: %w", o.Database, err)
		}
	}
	o.Log.Infof("creating database %s", o.Database)
	if err := o.SQL.CreateDatabase(o.Database); err != nil {
		return fmt.Errorf("creating database %s: %w", o.Database, err)
	}
	return nil
}

// createSchemas creates every non-default schema the table manifest
// references. Failures are warnings: a schema left over from an earlier
// partial run is an expected case.
func (o *Orchestrator) createSchemas(entries []manifest.Entry) {
	for _, schema := range manifest.Schemas(entries) {
		if strings.EqualFold(schema, DefaultSchema) {
			continue
		}
		if err := o.SQL.CreateSchema(o.Database, schema); err != nil {
			o.Log.Warnf("creating schema %s failed: %v (may already exist)", schema, err)
			continue
		}
		o.Log.Infof("created schema %s", schema)
	}
}

// applySchemaFiles replays the scripts strictly in manifest order. One
// file's failure never stops the sequence: later objects that do not
// depend on the failed one should still land.
func (o *Orchestrator) applySchemaFiles(files []string, sum *Summary) {
	for _, file := range files {
		path := filepath.Join(o.Dir, SchemaDir, file)
		if _, err := os.Stat(path); err != nil {
			o.Log.Warnf("schema file %s listed in manifest but missing, skipping", file)
			sum.SchemaFailed++
			continue
		}
		logPath := filepath.Join(o.Dir, LogDir, file+".log")

		outcome, output, err := o.SQL.ApplyFile(o.Database, path, logPath)
		if err != nil {
			o.Log.Errorf("applying %s: %v", file, err)
			sum.SchemaFailed++
			continue
		}
		switch outcome {
		case client.ApplyClean:
			o.Log.Infof("applied %s", file)
			sum.SchemaApplied++
		case client.ApplyWarned:
			o.Log.Warnf("applied %s with warnings (see %s)", file, logPath)
			sum.SchemaWarned++
		default:
			o.Log.Errorf("applying %s failed", file)
			if o.Log.Level() < console.LevelTrace {
				if tail := execx.Tail(output, 10); tail != "" {
					o.Log.Errorf("last output:\n%s", tail)
				}
			}
			sum.SchemaFailed++
		}
	}
}

// loadData loads every table's payload with its paired descriptor. An
// empty payload is a valid zero-row table; a missing descriptor skips
// the table, counted as failed, never loaded with a substitute.
func (o *Orchestrator) loadData(entries []manifest.Entry, sum *Summary) {
	for _, entry := range entries {
		if !entry.Valid {
			o.Log.Warnf("invalid table manifest entry %q", entry.Raw)
			sum.DataFailed++
			o.progress()
			continue
		}
		fmtPath := filepath.Join(o.Dir, DataDir, entry.Ref.FormatFile())
		datPath := filepath.Join(o.Dir, DataDir, entry.Ref.DataFile())

		datInfo, err := os.Stat(datPath)
		if err != nil {
			o.Log.Warnf("data payload missing for %s, skipping", entry.Ref)
			sum.DataFailed++
			o.progress()
			continue
		}
		if _, err := os.Stat(fmtPath); err != nil {
			o.Log.Warnf("format descriptor missing for %s, skipping", entry.Ref)
			sum.DataFailed++
			o.progress()
			continue
		}
		if datInfo.Size() == 0 {
			o.Log.Debugf("%s has no rows", entry.Ref)
			sum.DataImported++
			o.progress()
			continue
		}

		if err := o.Bulk.ImportData(o.Database, entry.Ref, fmtPath, datPath); err != nil {
			o.Log.Warnf("data import for %s failed: %v", entry.Ref, err)
			sum.DataFailed++
			o.progress()
			continue
		}
		sum.DataImported++
		o.progress()
	}
}

// cleanup removes the working directory. Best effort, always runs.
func (o *Orchestrator) cleanup() {
	if o.Dir == "" {
		return
	}
	if err := os.RemoveAll(o.Dir); err != nil {
		o.Log.Warnf("cannot remove working directory %s: %v", o.Dir, err)
	}
}
