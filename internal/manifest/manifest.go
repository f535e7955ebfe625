// Package manifest owns the two text manifests an archive carries: the
// table list (Database.Schema.Table, one per line) and the schema-script
// order. Both are UTF-8, blank lines ignored.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	// TableManifestName is the table-list file inside an export tree.
	TableManifestName = "tables.manifest"
	// SchemaManifestName is the ordered schema-script list.
	SchemaManifestName = "schema.manifest"
)

// TableRef is a fully qualified table name with exactly three non-empty,
// dot-free components.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

// ParseTableRef parses one manifest line. ok is false for any line that
// does not match Database.Schema.Table with all parts non-empty; callers
// route those to the per-item failure path, never a fatal parse error.
func ParseTableRef(line string) (ref TableRef, ok bool) {
	parts := strings.Split(strings.TrimSpace(line), ".")
	if len(parts) != 3 {
		return TableRef{}, false
	}
	for _, p := range parts {
		if p == "" {
			return TableRef{}, false
		}
	}
	return TableRef{Database: parts[0], Schema: parts[1], Table: parts[2]}, true
}

func (r TableRef) String() string {
	return r.Database + "." + r.Schema + "." + r.Table
}

// FormatFile is the name of the paired format descriptor.
func (r TableRef) FormatFile() string {
	return r.Schema + "." + r.Table + ".fmt"
}

// DataFile is the name of the paired data payload.
func (r TableRef) DataFile() string {
	return r.Schema + "." + r.Table + ".dat"
}

// Entry is one parsed table-manifest line. Invalid entries keep their raw
// text for diagnostics.
type Entry struct {
	Raw   string
	Ref   TableRef
	Valid bool
}

// ReadTables reads a table manifest. Malformed lines become invalid
// entries; only I/O failures are errors.
func ReadTables(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table manifest: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ref, ok := ParseTableRef(line)
		entries = append(entries, Entry{Raw: line, Ref: ref, Valid: ok})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table manifest: %w", err)
	}
	return entries, nil
}

// WriteTables writes refs one per line, preserving order.
func WriteTables(path string, refs []TableRef) error {
	var sb strings.Builder
	for _, r := range refs {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing table manifest: %w", err)
	}
	return nil
}

// ReadSchemaFiles reads the ordered schema-script manifest.
func ReadSchemaFiles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema manifest: %w", err)
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading schema manifest: %w", err)
	}
	return files, nil
}

// WriteSchemaFiles writes the schema manifest in application order.
func WriteSchemaFiles(path string, files []string) error {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing schema manifest: %w", err)
	}
	return nil
}

// SchemaOnlySet holds tables whose data is deliberately skipped. Entries
// may be fully qualified names or bare table names; matching is
// case-insensitive and happens before data-pair generation.
type SchemaOnlySet map[string]struct{}

// NewSchemaOnlySet normalizes the configured entries.
func NewSchemaOnlySet(entries []string) SchemaOnlySet {
	s := make(SchemaOnlySet, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		s[strings.ToLower(e)] = struct{}{}
	}
	return s
}

// Contains reports whether ref is excluded from data transfer.
func (s SchemaOnlySet) Contains(ref TableRef) bool {
	if _, ok := s[strings.ToLower(ref.String())]; ok {
		return true
	}
	if _, ok := s[strings.ToLower(ref.Schema+"."+ref.Table)]; ok {
		return true
	}
	_, ok := s[strings.ToLower(ref.Table)]
	return ok
}

// Schemas returns the distinct schema names referenced by the valid
// entries, sorted for deterministic creation order.
func Schemas(entries []Entry) []string {
	seen := make(map[string]string)
	for _, e := range entries {
		if !e.Valid {
			continue
		}
		seen[strings.ToLower(e.Ref.Schema)] = e.Ref.Schema
	}
	names := make([]string, 0, len(seen))
	for _, name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
