// Package rewrite defers secondary indexes and foreign key constraints in
// CREATE TABLE statements found in a dump stream. Building InnoDB indexes
// after the bulk load is much faster than maintaining them per inserted
// row, so KEY and CONSTRAINT clauses are cut out of the CREATE TABLE and
// re-emitted as a single ALTER TABLE ... ADD statement to run after the
// table's data has been loaded.
//
// The clause scan is lexical, one line at a time. It relies on the dump
// emitting one clause per line with backtick-quoted identifiers and is
// not a SQL validator: lines that do not look like a KEY or CONSTRAINT
// clause are left alone.
package rewrite

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/mysqlsieve/mysqlsieve/dump"
	"github.com/mysqlsieve/mysqlsieve/util"
)

var (
	keyRe        = regexp.MustCompile("^\\s*(?:UNIQUE )?KEY (`.+`) \\((.+)\\)(?: USING (?:BTREE|HASH))?,?$")
	constraintRe = regexp.MustCompile("^\\s*CONSTRAINT (`.+`) FOREIGN KEY \\((.+)\\) REFERENCES")
	identRe      = regexp.MustCompile("^CREATE TABLE .*`(.+)` \\($")
)

// clauseEntry is one KEY or CONSTRAINT line lifted from a CREATE TABLE
// body. line keeps the exact source bytes; removal and preservation
// decisions are made by line identity, never by line position.
type clauseEntry struct {
	name    []byte
	columns [][]byte
	line    []byte
}

// SplitIndexes removes deferrable KEY and CONSTRAINT clauses from the
// CREATE TABLE statement in an InnoDB table-structure section, rewrites
// the section in place and returns the ALTER TABLE statement that
// recreates the removed clauses. Non-InnoDB tables are skipped and empty
// bytes returned.
//
// With deferConstraints set, foreign key constraints are deferred along
// with every index. Otherwise an index that some constraint needs as a
// leftmost column prefix is kept in place: InnoDB checks foreign keys
// through a supporting index, so dropping it during the load would break
// referential integrity enforcement.
//
// Running SplitIndexes twice over the same section is out of contract;
// the second pass sees the already stripped DDL.
func SplitIndexes(section *dump.Section, deferConstraints bool) ([]byte, error) {
	tableDDL := extractCreateTable(section.Lines)
	if !bytes.Contains(tableDDL, []byte("ENGINE=InnoDB")) {
		slog.Debug(fmt.Sprintf("%s.%s is not an InnoDB table, skipping index rewrite",
			section.Database, section.Table))
		return nil, nil
	}

	indexes := extractClauses(tableDDL, keyRe)
	constraints := extractClauses(tableDDL, constraintRe)
	var deferred []clauseEntry
	if deferConstraints {
		deferred = append(indexes, constraints...)
	} else {
		deferred = resolvePreservedIndexes(section, indexes, constraints)
	}

	alter, err := formatAlterTable(tableDDL, deferred)
	if err != nil {
		return nil, err
	}

	patched := formatCreateTable(tableDDL, deferred)
	text := bytes.Replace(section.Text(), tableDDL, patched, 1)
	section.Lines = splitAfterLines(text)
	return alter, nil
}

// extractCreateTable returns the bytes of the CREATE TABLE statement in
// the section: the first line starting with CREATE TABLE through the
// first subsequent line ending in the statement terminator. Clause lines
// never contain semicolons, so the greedy first-";" boundary holds.
func extractCreateTable(lines [][]byte) []byte {
	var result [][]byte
	for _, line := range lines {
		if bytes.HasPrefix(line, []byte("CREATE TABLE")) {
			result = append(result, line)
		} else if len(result) > 0 {
			result = append(result, line)
			if bytes.HasSuffix(bytes.TrimRight(line, " \t\r\n"), []byte(";")) {
				break
			}
		}
	}
	return bytes.Join(result, nil)
}

// extractClauses collects every line of the DDL matching the clause
// pattern. Capture group 1 is the quoted clause name, group 2 the quoted
// column list. Non-matching lines (column definitions, PRIMARY KEY,
// table options) are skipped.
func extractClauses(tableDDL []byte, pattern *regexp.Regexp) []clauseEntry {
	var entries []clauseEntry
	for _, line := range splitAfterLines(tableDDL) {
		m := pattern.FindSubmatch(bytes.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		entries = append(entries, clauseEntry{
			name:    parseColumns(m[1])[0],
			columns: parseColumns(m[2]),
			line:    line,
		})
	}
	return entries
}

// parseColumns splits a backtick-quoted identifier list like
// "`a`, `b`" into unquoted identifiers in source order. A doubled
// backtick inside a quoted identifier is an escaped backtick.
func parseColumns(value []byte) [][]byte {
	if len(value) == 0 {
		return nil
	}
	var columns [][]byte
	for i := 0; ; {
		for i < len(value) && value[i] == ' ' {
			i++
		}
		var column []byte
		if i < len(value) && value[i] == '`' {
			i++
			for i < len(value) {
				if value[i] == '`' {
					if i+1 < len(value) && value[i+1] == '`' {
						column = append(column, '`')
						i += 2
						continue
					}
					i++
					break
				}
				column = append(column, value[i])
				i++
			}
			for i < len(value) && value[i] != ',' {
				i++
			}
		} else {
			start := i
			for i < len(value) && value[i] != ',' {
				i++
			}
			column = append([]byte(nil), value[start:i]...)
		}
		columns = append(columns, column)
		if i >= len(value) {
			return columns
		}
		i++ // skip the comma
	}
}

// resolvePreservedIndexes decides which clauses may be deferred when
// constraints stay active during the load. For each foreign key
// constraint, the first index covering the constraint's columns as a
// leftmost prefix is preserved in place and dropped from the deferred
// set; candidates are visited shortest column list first so the cheapest
// sufficient index is the one kept. A constraint with no covering index
// cannot be checked until its own index exists, so it is deferred along
// with the indexes.
func resolvePreservedIndexes(section *dump.Section, indexes, constraints []clauseEntry) []clauseEntry {
	deferred := append([]clauseEntry(nil), indexes...)
	var deferredConstraints []clauseEntry
	for _, constraint := range constraints {
		candidates := append([]clauseEntry(nil), deferred...)
		sort.SliceStable(candidates, func(i, j int) bool {
			return len(candidates[i].columns) < len(candidates[j].columns)
		})
		matched := false
		for _, index := range candidates {
			if isColumnPrefix(index.columns, constraint.columns) {
				slog.Warn(fmt.Sprintf("%s.%s index `%s` not deferred - used by constraint `%s`",
					section.Database, section.Table, index.name, constraint.name))
				deferred = removeClause(deferred, index)
				matched = true
				break
			}
		}
		if !matched {
			deferredConstraints = append(deferredConstraints, constraint)
		}
	}
	return append(deferred, deferredConstraints...)
}

// isColumnPrefix reports whether prefix equals the leading columns of
// columns. A prefix longer than the column list never matches.
func isColumnPrefix(columns, prefix [][]byte) bool {
	if len(prefix) > len(columns) {
		return false
	}
	for i, column := range prefix {
		if !bytes.Equal(columns[i], column) {
			return false
		}
	}
	return true
}

func removeClause(entries []clauseEntry, entry clauseEntry) []clauseEntry {
	for i := range entries {
		if bytes.Equal(entries[i].line, entry.line) {
			return append(entries[:i:i], entries[i+1:]...)
		}
	}
	return entries
}

// formatAlterTable renders the deferred clauses as a single
// ALTER TABLE ... ADD statement, or nil when nothing was deferred.
// Failing to find the table name means the DDL has a shape this tool
// does not understand, which is fatal for the section.
func formatAlterTable(tableDDL []byte, deferred []clauseEntry) ([]byte, error) {
	if len(deferred) == 0 {
		return nil, nil
	}
	table, err := extractTableName(tableDDL)
	if err != nil {
		return nil, err
	}

	clauses := util.TransformSlice(deferred, func(e clauseEntry) []byte {
		return bytes.TrimSpace(e.line)
	})
	var buf bytes.Buffer
	buf.WriteString("--\n-- InnoDB Fast Index Creation (generated by mysqlsieve)\n--\n\n")
	fmt.Fprintf(&buf, "ALTER TABLE `%s`\n  ADD ", table)
	buf.Write(bytes.Join(clauses, []byte("\n  ADD ")))
	ddl := bytes.TrimRight(buf.Bytes(), ",")
	return append(ddl, ';', '\n'), nil
}

func extractTableName(tableDDL []byte) ([]byte, error) {
	for _, line := range splitAfterLines(tableDDL) {
		if m := identRe.FindSubmatch(bytes.TrimRight(line, "\r\n")); m != nil {
			return m[1], nil
		}
	}
	return nil, fmt.Errorf("failed to find table name in DDL: %s", tableDDL)
}

// formatCreateTable re-emits the DDL without the deferred clause lines.
// When the closing ")" line comes up, the previously kept line loses any
// trailing comma so the remaining body stays valid SQL no matter which
// clauses were removed.
func formatCreateTable(tableDDL []byte, deferred []clauseEntry) []byte {
	dropped := make(map[string]struct{}, len(deferred))
	for _, entry := range deferred {
		dropped[string(entry.line)] = struct{}{}
	}

	var result [][]byte
	for _, line := range splitAfterLines(tableDDL) {
		if len(result) > 0 && len(line) > 0 && line[0] == ')' {
			prev := bytes.TrimRight(result[len(result)-1], " \t\r\n")
			prev = bytes.TrimRight(prev, ",")
			fixed := make([]byte, 0, len(prev)+1)
			fixed = append(fixed, prev...)
			result[len(result)-1] = append(fixed, '\n')
		}
		if _, ok := dropped[string(line)]; !ok {
			result = append(result, line)
		}
	}
	return bytes.Join(result, nil)
}

// splitAfterLines splits text into lines that keep their terminators,
// like the section reader produces them.
func splitAfterLines(text []byte) [][]byte {
	lines := bytes.SplitAfter(text, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
