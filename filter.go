package mysqlsieve

import "path"

// WantDatabase reports whether sections for the database should be kept.
// Exclusion wins; an empty include list keeps everything.
func (c *SieveConfig) WantDatabase(database string) bool {
	if matchAny(c.ExcludeDatabases, database) {
		return false
	}
	return len(c.TargetDatabases) == 0 || matchAny(c.TargetDatabases, database)
}

// WantTable reports whether sections for database.table should be kept.
func (c *SieveConfig) WantTable(database, table string) bool {
	if !c.WantDatabase(database) {
		return false
	}
	qualified := database + "." + table
	if matchAny(c.ExcludeTables, table) || matchAny(c.ExcludeTables, qualified) {
		return false
	}
	if len(c.TargetTables) == 0 {
		return true
	}
	return matchAny(c.TargetTables, table) || matchAny(c.TargetTables, qualified)
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
