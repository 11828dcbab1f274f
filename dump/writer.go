package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mysqlsieve/mysqlsieve/util"
)

// Writer receives sieved sections in stream order. WriteStatement
// carries extra statements generated for a table (deferred index DDL)
// that were not part of the input stream.
type Writer interface {
	WriteSection(section *Section) error
	WriteStatement(database, table string, text []byte) error
	Close() error
}

// StreamWriter reassembles sections into a single dump stream.
type StreamWriter struct {
	w io.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

func (sw *StreamWriter) WriteSection(section *Section) error {
	for _, line := range section.Lines {
		if _, err := sw.w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (sw *StreamWriter) WriteStatement(database, table string, text []byte) error {
	if _, err := sw.w.Write(text); err != nil {
		return err
	}
	_, err := io.WriteString(sw.w, "\n")
	return err
}

func (sw *StreamWriter) Close() error {
	if c, ok := sw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DirectoryWriter splits a dump into one <database>/<table>.sql file per
// table. Each file is wrapped with the dump's global header and footer so
// it can be replayed on its own.
type DirectoryWriter struct {
	root            string
	compressCommand string
	header          []byte
	footer          []byte
	files           map[string]io.WriteCloser
}

func NewDirectoryWriter(root, compressCommand string) *DirectoryWriter {
	return &DirectoryWriter{
		root:            root,
		compressCommand: compressCommand,
		files:           map[string]io.WriteCloser{},
	}
}

func (dw *DirectoryWriter) WriteSection(section *Section) error {
	switch section.Kind {
	case SectionHeader:
		dw.header = append(dw.header, section.Text()...)
		return nil
	case SectionFooter:
		dw.footer = append(dw.footer, section.Text()...)
		return nil
	case SectionDatabase, SectionReplication:
		// Database DDL and replication coordinates have no table file
		// of their own; they are skipped in directory format.
		return nil
	}

	w, err := dw.file(section.Database, section.Table)
	if err != nil {
		return err
	}
	_, err = w.Write(section.Text())
	return err
}

func (dw *DirectoryWriter) WriteStatement(database, table string, text []byte) error {
	w, err := dw.file(database, table)
	if err != nil {
		return err
	}
	if _, err := w.Write(text); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (dw *DirectoryWriter) file(database, table string) (io.WriteCloser, error) {
	key := database + "." + table
	if w, ok := dw.files[key]; ok {
		return w, nil
	}

	dir := filepath.Join(dw.root, database)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, table+".sql"+CompressExtension(dw.compressCommand))
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}

	var w io.WriteCloser = f
	if dw.compressCommand != "" {
		pipe, err := CompressPipe(dw.compressCommand, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		w = compressedFile{WriteCloser: pipe, f: f}
	}
	if _, err := w.Write(dw.header); err != nil {
		w.Close()
		return nil, err
	}
	dw.files[key] = w
	return w, nil
}

// Close appends the footer to every open table file and closes them in
// deterministic order.
func (dw *DirectoryWriter) Close() error {
	var firstErr error
	for key, w := range util.CanonicalMapIter(dw.files) {
		if _, err := w.Write(dw.footer); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("finalizing %s: %w", key, err)
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", key, err)
		}
	}
	dw.files = map[string]io.WriteCloser{}
	return firstErr
}

// compressedFile closes the filter process before the file it writes to.
type compressedFile struct {
	io.WriteCloser
	f *os.File
}

func (cf compressedFile) Close() error {
	err := cf.WriteCloser.Close()
	if cerr := cf.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// CompressExtension guesses the file extension produced by a compression
// filter command, from its program name.
func CompressExtension(command string) string {
	if command == "" {
		return ""
	}
	program := filepath.Base(strings.Fields(command)[0])
	switch program {
	case "gzip", "pigz":
		return ".gz"
	case "bzip2", "pbzip2":
		return ".bz2"
	case "xz", "lzma":
		return ".xz"
	case "lzop":
		return ".lzo"
	default:
		return "." + program
	}
}
