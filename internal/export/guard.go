package export

import (
	"fmt"
	"regexp"
	"strings"
)

var createTableRe = regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+\[?([^\]\.\s]+)\]?\.\[?([^\]\s\(]+)\]?`)

// GuardTableScripts wraps every CREATE TABLE batch in an existence guard
// so replaying the script against a partially-populated target creates
// nothing twice. Batches that are already guarded pass through unchanged,
// which makes the transform idempotent.
func GuardTableScripts(script string) (string, error) {
	batches := splitBatches(script)

	var out []string
	for _, batch := range batches {
		trimmed := strings.TrimSpace(batch)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToUpper(trimmed), "CREATE TABLE") {
			out = append(out, batch)
			continue
		}
		m := createTableRe.FindStringSubmatch(trimmed)
		if m == nil {
			return "", fmt.Errorf("cannot determine table name in batch: %.80s", trimmed)
		}
		guarded := fmt.Sprintf("IF OBJECT_ID(N'[%s].[%s]', N'U') IS NULL\nBEGIN\n%s\nEND", m[1], m[2], trimmed)
		out = append(out, guarded)
	}

	var sb strings.Builder
	for _, batch := range out {
		sb.WriteString(strings.TrimSpace(batch))
		sb.WriteString("\nGO\n")
	}
	return sb.String(), nil
}

// splitBatches cuts a script on lines consisting solely of GO.
func splitBatches(script string) []string {
	var batches []string
	var current []string
	for _, line := range strings.Split(script, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), "GO") {
			batches = append(batches, strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		batches = append(batches, strings.Join(current, "\n"))
	}
	return batches
}
