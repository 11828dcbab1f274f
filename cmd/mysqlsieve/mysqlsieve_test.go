// Integration test of the mysqlsieve command.
//
// Test requirement:
//   - go command
package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOptionsDefaults(t *testing.T) {
	cmd := parseOptions([]string{})
	assert.Equal(t, "stream", cmd.options.Format)
	assert.Equal(t, "-", cmd.options.InputFile)
	assert.False(t, cmd.options.Config.DeferIndexes)
	assert.Equal(t, "", cmd.apply)
	assert.Equal(t, "root", cmd.config.User)
	assert.Equal(t, 3306, cmd.config.Port)
	assert.Equal(t, "preferred", cmd.config.SslMode)
}

func TestParseOptionsFilters(t *testing.T) {
	cmd := parseOptions([]string{
		"--defer-indexes", "--defer-foreign-keys",
		"-t", "actor", "-T", "tmp_*", "-d", "sakila",
	})
	config := cmd.options.Config
	assert.True(t, config.DeferIndexes)
	assert.True(t, config.DeferConstraints)
	assert.Equal(t, []string{"actor"}, config.TargetTables)
	assert.Equal(t, []string{"tmp_*"}, config.ExcludeTables)
	assert.Equal(t, []string{"sakila"}, config.TargetDatabases)
}

func TestParseOptionsConfigInline(t *testing.T) {
	cmd := parseOptions([]string{
		"--config-inline", "defer_indexes: true",
		"-T", "log",
	})
	assert.True(t, cmd.options.Config.DeferIndexes)
	assert.Equal(t, []string{"log"}, cmd.options.Config.ExcludeTables)
}

func TestMysqlsieveStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping binary integration test")
	}
	build(t)

	input := strings.Join([]string{
		"--",
		"-- Table structure for table `t`",
		"--",
		"",
		"CREATE TABLE `t` (",
		"  `a` INT,",
		"  KEY `idx_a` (`a`)",
		") ENGINE=InnoDB;",
		"",
	}, "\n")

	cmd := exec.Command("./mysqlsieve", "--defer-indexes")
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.Output()
	assert.NoError(t, err)
	assert.NotContains(t, string(out), "  KEY `idx_a` (`a`)\n")
	assert.Contains(t, string(out), "ALTER TABLE `t`")
}

func build(t *testing.T) {
	t.Helper()
	cmd := exec.Command("go", "build")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("go build: %s", err)
	}
}
