package export

import (
	"os"
	"path/filepath"

	"sqlporter/internal/client"
	"sqlporter/internal/console"
	"sqlporter/internal/manifest"
)

// Outcome is the three-way exit signal of a data export run.
type Outcome int

const (
	// OutcomeOK: every table's format and data landed.
	OutcomeOK Outcome = iota
	// OutcomePartial: some artifacts failed but at least one succeeded,
	// so the dump is still worth shipping.
	OutcomePartial
	// OutcomeFailed: nothing succeeded at all.
	OutcomeFailed
)

// ExitCode translates the outcome at the process boundary.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeOK:
		return 0
	case OutcomePartial:
		return 1
	default:
		return 2
	}
}

// Counters aggregates one run's per-table results. Reset each run.
type Counters struct {
	FormatCreated int
	FormatFailed  int
	DataExported  int
	DataFailed    int
}

func (c Counters) failures() int  { return c.FormatFailed + c.DataFailed }
func (c Counters) successes() int { return c.FormatCreated + c.DataExported }

// DataExporter runs the two-pass table data transfer: formats first,
// then payloads for everything not excluded as schema-only.
type DataExporter struct {
	Log        *console.Logger
	Bulk       client.Bulk
	DataDir    string
	SchemaOnly manifest.SchemaOnlySet
	MaxRows    int
	OnProgress func()
}

func (e *DataExporter) progress() {
	if e.OnProgress != nil {
		e.OnProgress()
	}
}

// Run processes the table manifest and returns the outcome plus the
// counters for the summary. A single table's failure never stops the
// loop; a manifest where no format could be produced stops before the
// data pass, because there is nothing a data pass could pair against.
func (e *DataExporter) Run(entries []manifest.Entry) (Outcome, Counters) {
	var c Counters

	// Pass 1: format descriptors, plus an empty payload placeholder so
	// the data directory lists one pair per table even before data lands.
	for _, entry := range entries {
		if !entry.Valid {
			e.Log.Warnf("invalid table manifest entry %q (expected Database.Schema.Table)", entry.Raw)
			c.FormatFailed++
			e.progress()
			continue
		}
		fmtPath := filepath.Join(e.DataDir, entry.Ref.FormatFile())
		if err := e.Bulk.WriteFormatFile(entry.Ref, fmtPath); err != nil {
			e.Log.Warnf("format descriptor for %s failed: %v", entry.Ref, err)
			c.FormatFailed++
			e.progress()
			continue
		}
		datPath := filepath.Join(e.DataDir, entry.Ref.DataFile())
		if err := os.WriteFile(datPath, nil, 0o644); err != nil {
			e.Log.Warnf("cannot create placeholder %s: %v", datPath, err)
		}
		c.FormatCreated++
		e.progress()
	}

	// Only a run that attempted formats and produced none is a total
	// failure; a manifest with nothing to transfer is a clean no-op.
	if c.FormatCreated == 0 && c.FormatFailed > 0 {
		e.Log.Errorf("no format descriptors could be produced, skipping data pass")
		return OutcomeFailed, c
	}

	// Pass 2: data payloads. Schema-only tables are filtered out before
	// any pair generation; a missing descriptor from pass 1 skips the
	// table rather than inventing a substitute.
	for _, entry := range entries {
		if !entry.Valid {
			e.progress()
			continue
		}
		if e.SchemaOnly.Contains(entry.Ref) {
			e.Log.Infof("skipping data for schema-only table %s", entry.Ref)
			e.progress()
			continue
		}
		fmtPath := filepath.Join(e.DataDir, entry.Ref.FormatFile())
		if _, err := os.Stat(fmtPath); err != nil {
			e.Log.Warnf("format descriptor missing for %s, skipping data export", entry.Ref)
			c.DataFailed++
			e.progress()
			continue
		}
		datPath := filepath.Join(e.DataDir, entry.Ref.DataFile())
		if err := e.Bulk.ExportData(entry.Ref, fmtPath, datPath, e.MaxRows); err != nil {
			e.Log.Warnf("data export for %s failed: %v", entry.Ref, err)
			c.DataFailed++
			e.progress()
			continue
		}
		c.DataExported++
		e.progress()
	}

	switch {
	case c.failures() == 0:
		return OutcomeOK, c
	case c.successes() > 0:
		return OutcomePartial, c
	default:
		return OutcomeFailed, c
	}
}
