package client

import (
	"fmt"
	"path/filepath"
	"strconv"

	"sqlporter/internal/execx"
	"sqlporter/internal/manifest"
)

// Bulk is the bulk-copy collaborator seam. The real implementation
// shells out to bcp; tests substitute fakes.
type Bulk interface {
	// WriteFormatFile produces the format descriptor for ref without
	// touching any data.
	WriteFormatFile(ref manifest.TableRef, fmtPath string) error
	// ExportData writes ref's rows to datPath using the descriptor at
	// fmtPath. maxRows bounds the export when positive.
	ExportData(ref manifest.TableRef, fmtPath, datPath string, maxRows int) error
	// ImportData loads datPath into ref in the target database using the
	// descriptor at fmtPath.
	ImportData(database string, ref manifest.TableRef, fmtPath, datPath string) error
}

// BCP drives the bcp utility. A non-zero exit or spawn failure both
// surface as errors; per-table recovery is the caller's job.
type BCP struct {
	Runner *execx.Runner
	Conn   Connection
	Mode   execx.CaptureMode
	LogDir string
}

func (b *BCP) logPath(name string) string {
	if b.LogDir == "" {
		return ""
	}
	return filepath.Join(b.LogDir, name)
}

func (b *BCP) run(description, logName string, args []string) error {
	args = append(args, b.Conn.BcpArgs()...)
	res, err := b.Runner.Run(description, b.logPath(logName), b.Mode, "bcp", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		if tail := execx.Tail(res.Output, 10); tail != "" {
			b.Runner.Log.Warnf("bcp output:\n%s", tail)
		}
		return fmt.Errorf("bcp exited with code %d", res.ExitCode)
	}
	return nil
}

func (b *BCP) WriteFormatFile(ref manifest.TableRef, fmtPath string) error {
	args := []string{ref.String(), "format", "nul", "-n", "-f", fmtPath}
	return b.run(
		fmt.Sprintf("writing format descriptor for %s", ref),
		ref.Schema+"."+ref.Table+".format.log", args)
}

func (b *BCP) ExportData(ref manifest.TableRef, fmtPath, datPath string, maxRows int) error {
	args := []string{ref.String(), "out", datPath, "-f", fmtPath}
	if maxRows > 0 {
		args = append(args, "-L", strconv.Itoa(maxRows))
	}
	return b.run(
		fmt.Sprintf("exporting data for %s", ref),
		ref.Schema+"."+ref.Table+".export.log", args)
}

func (b *BCP) ImportData(database string, ref manifest.TableRef, fmtPath, datPath string) error {
	target := database + "." + ref.Schema + "." + ref.Table
	args := []string{target, "in", datPath, "-f", fmtPath, "-E"}
	return b.run(
		fmt.Sprintf("importing data into %s", target),
		ref.Schema+"."+ref.Table+".import.log", args)
}
