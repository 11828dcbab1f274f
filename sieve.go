package mysqlsieve

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mysqlsieve/mysqlsieve/dump"
	"github.com/mysqlsieve/mysqlsieve/rewrite"
	"github.com/mysqlsieve/mysqlsieve/util"
)

// Options drive one sieve run.
type Options struct {
	InputFile       string
	Format          string // "stream" or "directory"
	Directory       string
	CompressCommand string
	Config          SieveConfig
}

// Run reads a mysqldump stream from in, filters and rewrites its
// sections per the config, and hands them to the writer. Deferred index
// DDL produced by the rewrite is emitted right after the owning table's
// data section, so the indexes are built only once the rows are in.
func Run(options *Options, in io.Reader, w dump.Writer) error {
	config := &options.Config
	reader := dump.NewReader(in)

	deferredDDL := map[string][]byte{}
	tableCounts := map[string]int{}

	for {
		section, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading dump: %w", err)
		}

		switch section.Kind {
		case dump.SectionDatabase:
			if !config.WantDatabase(section.Database) {
				continue
			}
		case dump.SectionView:
			if !config.WantTable(section.Database, section.Table) {
				continue
			}
		case dump.SectionTableStructure:
			if !config.WantTable(section.Database, section.Table) {
				continue
			}
			tableCounts[section.Database]++
			if config.DeferIndexes {
				alter, err := rewrite.SplitIndexes(section, config.DeferConstraints)
				if err != nil {
					return fmt.Errorf("deferring indexes for %s: %w", section.Key(), err)
				}
				if len(alter) > 0 {
					deferredDDL[section.Key()] = alter
				}
			}
		case dump.SectionTableData:
			if !config.WantTable(section.Database, section.Table) || config.ExcludeTableData {
				continue
			}
		}

		if err := w.WriteSection(section); err != nil {
			return fmt.Errorf("writing section: %w", err)
		}

		if donePoint(section, config) {
			if alter, ok := deferredDDL[section.Key()]; ok {
				if err := w.WriteStatement(section.Database, section.Table, alter); err != nil {
					return fmt.Errorf("writing deferred DDL for %s: %w", section.Key(), err)
				}
				delete(deferredDDL, section.Key())
			}
		}
	}

	// Tables whose data section never showed up (e.g. --no-data dumps)
	// still get their deferred DDL, after everything else.
	for key, alter := range util.CanonicalMapIter(deferredDDL) {
		parts := splitKey(key)
		if err := w.WriteStatement(parts[0], parts[1], alter); err != nil {
			return fmt.Errorf("writing deferred DDL for %s: %w", key, err)
		}
	}

	for database, count := range util.CanonicalMapIter(tableCounts) {
		slog.Debug("sieved table structures", "database", database, "tables", count)
	}

	return w.Close()
}

// donePoint reports whether a table's dump content is complete at this
// section, i.e. deferred DDL may now be emitted: after the table's data,
// or right after its structure when data is excluded from the output.
func donePoint(section *dump.Section, config *SieveConfig) bool {
	switch section.Kind {
	case dump.SectionTableData:
		return true
	case dump.SectionTableStructure:
		return config.ExcludeTableData
	default:
		return false
	}
}

func splitKey(key string) [2]string {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return [2]string{key[:i], key[i+1:]}
		}
	}
	return [2]string{"", key}
}
