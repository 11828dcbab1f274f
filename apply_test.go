package mysqlsieve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mysqlsieve/mysqlsieve/dump"
)

func TestApplyWriterSplitsStatements(t *testing.T) {
	w := &applyWriter{}

	section := &dump.Section{
		Kind:     dump.SectionTableStructure,
		Database: "db",
		Table:    "t",
		Lines: [][]byte{
			[]byte("--\n"),
			[]byte("-- Table structure for table `t`\n"),
			[]byte("--\n"),
			[]byte("\n"),
			[]byte("DROP TABLE IF EXISTS `t`;\n"),
			[]byte("CREATE TABLE `t` (\n"),
			[]byte("  `a` INT\n"),
			[]byte(") ENGINE=InnoDB;\n"),
			[]byte("/*!40101 SET character_set_client = @saved_cs_client */;\n"),
		},
	}
	assert.NoError(t, w.WriteSection(section))
	assert.NoError(t, w.WriteStatement("db", "t", []byte("ALTER TABLE `t`\n  ADD KEY `k` (`a`);\n")))

	if assert.Len(t, w.statements, 4) {
		assert.Equal(t, "DROP TABLE IF EXISTS `t`;", w.statements[0])
		assert.Equal(t, "CREATE TABLE `t` (\n  `a` INT\n) ENGINE=InnoDB;", w.statements[1])
		assert.Equal(t, "/*!40101 SET character_set_client = @saved_cs_client */;", w.statements[2])
		assert.Equal(t, "ALTER TABLE `t`\n  ADD KEY `k` (`a`);", w.statements[3])
	}
}

func TestApplyWriterSkipsCommentOnlySections(t *testing.T) {
	w := &applyWriter{}
	assert.NoError(t, w.WriteSection(&dump.Section{
		Kind:  dump.SectionHeader,
		Lines: [][]byte{[]byte("-- MySQL dump 10.13\n"), []byte("--\n"), []byte("\n")},
	}))
	assert.Empty(t, w.statements)
}
