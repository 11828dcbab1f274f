package mysqlsieve

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// SieveConfig selects which parts of the dump are kept and how table
// DDL is rewritten. Include and exclude lists hold shell-style glob
// patterns, matched against the bare table name and the qualified
// "database.table" form.
type SieveConfig struct {
	TargetDatabases  []string
	ExcludeDatabases []string
	TargetTables     []string
	ExcludeTables    []string
	DeferIndexes     bool
	DeferConstraints bool
	ExcludeTableData bool
}

// ParseSieveConfig loads a YAML sieve config file.
func ParseSieveConfig(configFile string) SieveConfig {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal(err)
	}
	return parseSieveConfig(buf)
}

// ParseSieveConfigString parses an inline YAML sieve config.
func ParseSieveConfigString(config string) SieveConfig {
	return parseSieveConfig([]byte(config))
}

func parseSieveConfig(buf []byte) SieveConfig {
	var config struct {
		TargetDatabases  string `yaml:"target_databases"`
		ExcludeDatabases string `yaml:"exclude_databases"`
		TargetTables     string `yaml:"target_tables"`
		ExcludeTables    string `yaml:"exclude_tables"`
		DeferIndexes     bool   `yaml:"defer_indexes"`
		DeferConstraints bool   `yaml:"defer_foreign_keys"`
		ExcludeTableData bool   `yaml:"exclude_table_data"`
	}
	if err := yaml.UnmarshalStrict(buf, &config); err != nil {
		log.Fatal(err)
	}

	return SieveConfig{
		TargetDatabases:  splitList(config.TargetDatabases),
		ExcludeDatabases: splitList(config.ExcludeDatabases),
		TargetTables:     splitList(config.TargetTables),
		ExcludeTables:    splitList(config.ExcludeTables),
		DeferIndexes:     config.DeferIndexes,
		DeferConstraints: config.DeferConstraints,
		ExcludeTableData: config.ExcludeTableData,
	}
}

// splitList turns a newline-separated YAML scalar into a pattern list.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(strings.Trim(value, "\n"), "\n")
}

// MergeSieveConfigs combines configs in the order given: pattern lists
// append, booleans turn on once any config sets them.
func MergeSieveConfigs(configs []SieveConfig) SieveConfig {
	var merged SieveConfig
	for _, c := range configs {
		merged.TargetDatabases = append(merged.TargetDatabases, c.TargetDatabases...)
		merged.ExcludeDatabases = append(merged.ExcludeDatabases, c.ExcludeDatabases...)
		merged.TargetTables = append(merged.TargetTables, c.TargetTables...)
		merged.ExcludeTables = append(merged.ExcludeTables, c.ExcludeTables...)
		merged.DeferIndexes = merged.DeferIndexes || c.DeferIndexes
		merged.DeferConstraints = merged.DeferConstraints || c.DeferConstraints
		merged.ExcludeTableData = merged.ExcludeTableData || c.ExcludeTableData
	}
	return merged
}
