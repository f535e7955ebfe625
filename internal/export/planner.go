// Package export produces the portable archive tree from a source
// server: per-category schema scripts with an ordered manifest, plus one
// format-descriptor/data-payload pair per table.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"sqlporter/internal/console"
	"sqlporter/internal/manifest"
)

// Schema script files in required application order: constraints strictly
// after tables, dependent objects last.
const (
	TablesFile      = "tables.sql"
	ConstraintsFile = "constraints.sql"
	ProceduresFile  = "procedures.sql"
	FunctionsFile   = "functions.sql"
	ViewsFile       = "views.sql"
)

// SchemaScripter is the object-scripting collaborator seam; the real
// implementation is internal/scripter.
type SchemaScripter interface {
	TableScripts() (string, error)
	ConstraintScripts() (string, error)
	ProcedureScripts() (string, error)
	FunctionScripts() (string, error)
	ViewScripts() (string, error)
}

// Planner writes the schema half of an export tree.
type Planner struct {
	Log      *console.Logger
	Scripter SchemaScripter
	OutDir   string
}

// Run scripts the five object categories into OutDir and writes the
// ordered schema manifest listing every file actually produced. A
// category whose scripting fails is logged and skipped; the run keeps
// going so the archive carries as much schema as possible.
func (p *Planner) Run() error {
	categories := []struct {
		file   string
		script func() (string, error)
	}{
		{TablesFile, p.Scripter.TableScripts},
		{ConstraintsFile, p.Scripter.ConstraintScripts},
		{ProceduresFile, p.Scripter.ProcedureScripts},
		{FunctionsFile, p.Scripter.FunctionScripts},
		{ViewsFile, p.Scripter.ViewScripts},
	}

	var produced []string
	for _, cat := range categories {
		text, err := cat.script()
		if err != nil {
			p.Log.Warnf("scripting %s failed: %v (skipping)", cat.file, err)
			continue
		}
		if text == "" {
			p.Log.Debugf("no objects for %s, skipping", cat.file)
			continue
		}

		if cat.file == TablesFile {
			guarded, err := GuardTableScripts(text)
			if err != nil {
				// The unguarded script still applies cleanly on a fresh
				// target, so this is a warning, not a failure.
				p.Log.Warnf("table guard transform failed: %v (writing unguarded script)", err)
			} else {
				text = guarded
			}
		}

		path := filepath.Join(p.OutDir, cat.file)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cat.file, err)
		}
		produced = append(produced, cat.file)
		p.Log.Infof("scripted %s", cat.file)
	}

	manifestPath := filepath.Join(p.OutDir, manifest.SchemaManifestName)
	if err := manifest.WriteSchemaFiles(manifestPath, produced); err != nil {
		return err
	}
	p.Log.Infof("schema manifest lists %d files", len(produced))
	return nil
}
