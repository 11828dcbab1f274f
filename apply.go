package mysqlsieve

import (
	"bytes"
	"strings"

	"github.com/mysqlsieve/mysqlsieve/database"
	"github.com/mysqlsieve/mysqlsieve/dump"
)

// applyWriter is a dump.Writer that executes the sieved dump against a
// live server instead of writing it out. Statements are accumulated in
// stream order, so deferred index DDL still runs after the table data it
// waits for, and executed on Close.
type applyWriter struct {
	db         database.Database
	statements []string
	buf        bytes.Buffer
}

func NewApplyWriter(db database.Database) dump.Writer {
	return &applyWriter{db: db}
}

func (a *applyWriter) WriteSection(section *dump.Section) error {
	for _, line := range section.Lines {
		a.feed(line)
	}
	return nil
}

func (a *applyWriter) WriteStatement(database, table string, text []byte) error {
	for _, line := range bytes.SplitAfter(text, []byte("\n")) {
		a.feed(line)
	}
	return nil
}

// feed accumulates one dump line into the current statement. Comment
// lines and blank lines between statements are dropped; a line ending in
// ";" completes the statement. Conditional /*!...*/ statements are kept,
// the server is expected to interpret them.
func (a *applyWriter) feed(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 && a.buf.Len() == 0 {
		return
	}
	if bytes.HasPrefix(trimmed, []byte("--")) {
		return
	}
	a.buf.Write(line)
	if bytes.HasSuffix(trimmed, []byte(";")) {
		a.statements = append(a.statements, strings.TrimSpace(a.buf.String()))
		a.buf.Reset()
	}
}

func (a *applyWriter) Close() error {
	defer a.db.Close()
	return database.RunStatements(a.db, a.statements)
}
