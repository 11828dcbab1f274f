package dump

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
)

// mysqldump announces each section with a three-line comment banner:
//
//	--
//	-- Table structure for table `t`
//	--
//
// The reader splits the stream on those banners. Everything before the
// first banner is the header; the trailing session-restore block and the
// "Dump completed" comment form the footer.
var (
	tableStructureRe  = regexp.MustCompile("^-- Table structure for table `(.+)`")
	tableDataRe       = regexp.MustCompile("^-- Dumping data for table `(.+)`")
	currentDatabaseRe = regexp.MustCompile("^-- Current Database: `(.+)`")
	viewRe            = regexp.MustCompile("^-- (?:Temporary table|Temporary view|Final view) structure for view `(.+)`")
	replicationRe     = regexp.MustCompile(`^-- Position to start replication`)
	dumpCompletedRe   = regexp.MustCompile(`^-- Dump completed`)
	footerStartRe     = regexp.MustCompile(`^/\*!40103 SET TIME_ZONE=@OLD_TIME_ZONE \*/;`)
)

// Reader splits a mysqldump stream into sections. Lines are read with
// bufio.Reader rather than a Scanner because INSERT lines routinely
// exceed any fixed buffer size.
type Reader struct {
	br       *bufio.Reader
	cur      *Section
	held     []byte // a bare "--" line awaiting banner classification
	database string // current database, stamped onto table sections
	eof      bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		br:  bufio.NewReader(r),
		cur: &Section{Kind: SectionHeader},
	}
}

// Next returns the next complete section, or io.EOF after the last one.
func (r *Reader) Next() (*Section, error) {
	for !r.eof {
		line, err := r.br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			r.eof = true
			if len(line) == 0 {
				break
			}
		}

		if done := r.feed(line); done != nil {
			return done, nil
		}
	}

	if r.cur != nil {
		done := r.cur
		r.cur = nil
		if r.held != nil {
			done.Lines = append(done.Lines, r.held)
			r.held = nil
		}
		if len(done.Lines) > 0 {
			return done, nil
		}
	}
	return nil, io.EOF
}

// feed consumes one line and returns a section when the line starts a
// new one.
func (r *Reader) feed(line []byte) *Section {
	if r.held != nil {
		held := r.held
		r.held = nil
		if next := r.classify(line); next != nil && !r.continuesFooter(next) {
			done := r.flush(next)
			r.cur.Lines = append(r.cur.Lines, held, line)
			return done
		}
		r.cur.Lines = append(r.cur.Lines, held, line)
		return nil
	}

	if isCommentDelimiter(line) {
		r.held = line
		return nil
	}

	if next := r.classify(line); next != nil && !r.continuesFooter(next) {
		done := r.flush(next)
		r.cur.Lines = append(r.cur.Lines, line)
		return done
	}

	if r.cur.Kind != SectionFooter && r.cur.Kind != SectionHeader && footerStartRe.Match(line) {
		done := r.flush(&Section{Kind: SectionFooter})
		r.cur.Lines = append(r.cur.Lines, line)
		return done
	}

	r.cur.Lines = append(r.cur.Lines, line)
	return nil
}

// flush swaps in the next section under construction and returns the
// finished one, or nil when it carried no lines.
func (r *Reader) flush(next *Section) *Section {
	done := r.cur
	r.cur = next
	if len(done.Lines) == 0 {
		return nil
	}
	return done
}

// continuesFooter reports whether the classified section would only
// restate the footer already under construction ("Dump completed" after
// the session-restore block).
func (r *Reader) continuesFooter(next *Section) bool {
	return next.Kind == SectionFooter && r.cur.Kind == SectionFooter
}

// classify maps a banner comment line to the section it opens.
func (r *Reader) classify(line []byte) *Section {
	trimmed := bytes.TrimRight(line, "\r\n")
	if m := currentDatabaseRe.FindSubmatch(trimmed); m != nil {
		r.database = string(m[1])
		return &Section{Kind: SectionDatabase, Database: r.database}
	}
	if m := tableStructureRe.FindSubmatch(trimmed); m != nil {
		return &Section{Kind: SectionTableStructure, Database: r.database, Table: string(m[1])}
	}
	if m := tableDataRe.FindSubmatch(trimmed); m != nil {
		return &Section{Kind: SectionTableData, Database: r.database, Table: string(m[1])}
	}
	if m := viewRe.FindSubmatch(trimmed); m != nil {
		return &Section{Kind: SectionView, Database: r.database, Table: string(m[1])}
	}
	if replicationRe.Match(trimmed) {
		return &Section{Kind: SectionReplication}
	}
	if dumpCompletedRe.Match(trimmed) {
		return &Section{Kind: SectionFooter}
	}
	return nil
}

func isCommentDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, "\r\n")) == "--"
}
