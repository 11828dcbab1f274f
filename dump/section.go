// Package dump models a mysqldump stream as a sequence of sections. Never
// deal with DDL rewriting here; that belongs to the rewrite package.
package dump

import "bytes"

// SectionKind classifies one contiguous chunk of a mysqldump stream.
type SectionKind int

const (
	SectionHeader SectionKind = iota
	SectionDatabase
	SectionTableStructure
	SectionTableData
	SectionView
	SectionReplication
	SectionFooter
)

func (k SectionKind) String() string {
	switch k {
	case SectionHeader:
		return "header"
	case SectionDatabase:
		return "database"
	case SectionTableStructure:
		return "tablestructure"
	case SectionTableData:
		return "tabledata"
	case SectionView:
		return "view"
	case SectionReplication:
		return "replication"
	case SectionFooter:
		return "footer"
	default:
		return "unknown"
	}
}

// Section is one chunk of dump lines. Every line keeps its original
// terminator, so writing the sections back in order reproduces the
// input byte for byte.
type Section struct {
	Kind     SectionKind
	Database string
	Table    string
	Lines    [][]byte
}

// Text returns the section as a single byte slice.
func (s *Section) Text() []byte {
	return bytes.Join(s.Lines, nil)
}

// Key returns the qualified table identifier used to pair structure,
// data and deferred statements of the same table.
func (s *Section) Key() string {
	return s.Database + "." + s.Table
}
