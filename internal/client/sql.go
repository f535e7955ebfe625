package client

import (
	"fmt"
	"path/filepath"
	"strings"

	"sqlporter/internal/execx"
)

// ApplyOutcome classifies one schema-file application by exit code.
type ApplyOutcome int

const (
	// ApplyClean is exit code 0: every batch ran without complaint.
	ApplyClean ApplyOutcome = iota
	// ApplyWarned is exit code 2: the batches ran but the tool emitted
	// informational messages. Counted as success.
	ApplyWarned
	// ApplyFailed is any other non-zero exit.
	ApplyFailed
)

// ClassifyApply maps a schema-apply exit code onto an outcome.
func ClassifyApply(exitCode int) ApplyOutcome {
	switch exitCode {
	case 0:
		return ApplyClean
	case 2:
		return ApplyWarned
	default:
		return ApplyFailed
	}
}

// SQL is the statement-execution collaborator seam, backed by sqlcmd.
type SQL interface {
	// Ping runs a trivial query to prove the server is reachable and the
	// credentials work.
	Ping() error
	// DatabaseExists reports whether name exists on the server.
	DatabaseExists(name string) (bool, error)
	// CreateDatabase creates name.
	CreateDatabase(name string) error
	// DropDatabase forces name into single-user mode and drops it.
	DropDatabase(name string) error
	// CreateSchema creates schema in database.
	CreateSchema(database, schema string) error
	// ApplyFile replays the script at path against database and
	// classifies the result by exit code.
	ApplyFile(database, path, logPath string) (ApplyOutcome, []byte, error)
}

// Sqlcmd drives the sqlcmd utility.
type Sqlcmd struct {
	Runner *execx.Runner
	Conn   Connection
	Mode   execx.CaptureMode
}

// query runs a single statement and returns sqlcmd's raw output. Header
// and rowcount noise is suppressed so callers can parse the value.
func (s *Sqlcmd) query(description, statement string) (string, error) {
	args := append(s.Conn.SqlcmdArgs(), "-h", "-1", "-W", "-b", "-Q", "SET NOCOUNT ON; "+statement)
	res, err := s.Runner.Run(description, "", execx.ModeCapture, "sqlcmd", args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("sqlcmd exited with code %d: %s", res.ExitCode, execx.Tail(res.Output, 5))
	}
	return strings.TrimSpace(string(res.Output)), nil
}

// exec runs a statement where only success matters.
func (s *Sqlcmd) exec(description, statement string) error {
	_, err := s.query(description, statement)
	return err
}

func (s *Sqlcmd) Ping() error {
	if _, err := s.query("probing connectivity", "SELECT 1"); err != nil {
		return fmt.Errorf("cannot reach server %s: %w", s.Conn.Server, err)
	}
	return nil
}

func (s *Sqlcmd) DatabaseExists(name string) (bool, error) {
	out, err := s.query(
		fmt.Sprintf("checking whether database %s exists", name),
		fmt.Sprintf("SELECT CASE WHEN DB_ID(N'%s') IS NULL THEN 0 ELSE 1 END", escape(name)))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "1", nil
}

func (s *Sqlcmd) CreateDatabase(name string) error {
	return s.exec(
		fmt.Sprintf("creating database %s", name),
		fmt.Sprintf("CREATE DATABASE [%s]", bracket(name)))
}

func (s *Sqlcmd) DropDatabase(name string) error {
	// Single-user with rollback kicks other sessions off so the drop
	// cannot block on them.
	stmt := fmt.Sprintf(
		"ALTER DATABASE [%[1]s] SET SINGLE_USER WITH ROLLBACK IMMEDIATE; DROP DATABASE [%[1]s]",
		bracket(name))
	return s.exec(fmt.Sprintf("dropping database %s", name), stmt)
}

func (s *Sqlcmd) CreateSchema(database, schema string) error {
	stmt := fmt.Sprintf("USE [%s]; EXEC(N'CREATE SCHEMA [%s]')", bracket(database), bracket(schema))
	return s.exec(fmt.Sprintf("creating schema %s in %s", schema, database), stmt)
}

func (s *Sqlcmd) ApplyFile(database, path, logPath string) (ApplyOutcome, []byte, error) {
	args := append(s.Conn.SqlcmdArgs(), "-d", database, "-i", path)
	res, err := s.Runner.Run(
		fmt.Sprintf("applying %s to %s", filepath.Base(path), database),
		logPath, s.Mode, "sqlcmd", args...)
	if err != nil {
		return ApplyFailed, nil, err
	}
	return ClassifyApply(res.ExitCode), res.Output, nil
}

// escape doubles single quotes inside a string literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// bracket doubles closing brackets inside a quoted identifier.
func bracket(s string) string {
	return strings.ReplaceAll(s, "]", "]]")
}
