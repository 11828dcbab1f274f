package dump

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func section(kind SectionKind, database, table string, text string) *Section {
	return &Section{
		Kind:     kind,
		Database: database,
		Table:    table,
		Lines:    [][]byte{[]byte(text)},
	}
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)

	assert.NoError(t, w.WriteSection(section(SectionHeader, "", "", "-- header\n")))
	assert.NoError(t, w.WriteSection(section(SectionTableData, "db", "t", "INSERT INTO `t` VALUES (1);\n")))
	assert.NoError(t, w.WriteStatement("db", "t", []byte("ALTER TABLE `t`\n  ADD KEY `k` (`a`);\n")))
	assert.NoError(t, w.Close())

	assert.Equal(t, "-- header\nINSERT INTO `t` VALUES (1);\nALTER TABLE `t`\n  ADD KEY `k` (`a`);\n\n", buf.String())
}

func TestDirectoryWriter(t *testing.T) {
	root := t.TempDir()
	w := NewDirectoryWriter(root, "")

	assert.NoError(t, w.WriteSection(section(SectionHeader, "", "", "-- header\n")))
	assert.NoError(t, w.WriteSection(section(SectionDatabase, "db", "", "CREATE DATABASE `db`;\n")))
	assert.NoError(t, w.WriteSection(section(SectionTableStructure, "db", "a", "CREATE TABLE `a` ();\n")))
	assert.NoError(t, w.WriteSection(section(SectionTableData, "db", "a", "INSERT INTO `a` VALUES (1);\n")))
	assert.NoError(t, w.WriteSection(section(SectionTableStructure, "db", "b", "CREATE TABLE `b` ();\n")))
	assert.NoError(t, w.WriteSection(section(SectionFooter, "", "", "-- footer\n")))
	assert.NoError(t, w.Close())

	a, err := os.ReadFile(filepath.Join(root, "db", "a.sql"))
	assert.NoError(t, err)
	assert.Equal(t, "-- header\nCREATE TABLE `a` ();\nINSERT INTO `a` VALUES (1);\n-- footer\n", string(a))

	b, err := os.ReadFile(filepath.Join(root, "db", "b.sql"))
	assert.NoError(t, err)
	assert.Equal(t, "-- header\nCREATE TABLE `b` ();\n-- footer\n", string(b))
}

func TestDirectoryWriterDeferredStatements(t *testing.T) {
	root := t.TempDir()
	w := NewDirectoryWriter(root, "")

	assert.NoError(t, w.WriteSection(section(SectionTableStructure, "db", "t", "CREATE TABLE `t` ();\n")))
	assert.NoError(t, w.WriteStatement("db", "t", []byte("ALTER TABLE `t`\n  ADD KEY `k` (`a`);\n")))
	assert.NoError(t, w.Close())

	out, err := os.ReadFile(filepath.Join(root, "db", "t.sql"))
	assert.NoError(t, err)
	assert.Contains(t, string(out), "ADD KEY `k` (`a`);")
}

func TestCompressExtension(t *testing.T) {
	tests := []struct {
		command  string
		expected string
	}{
		{"", ""},
		{"gzip", ".gz"},
		{"gzip -9", ".gz"},
		{"/usr/bin/pigz -p4", ".gz"},
		{"bzip2", ".bz2"},
		{"xz -2", ".xz"},
		{"lzop", ".lzo"},
		{"zstd", ".zstd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompressExtension(tt.command), tt.command)
	}
}

func TestCompressPipe(t *testing.T) {
	var buf bytes.Buffer
	// "cat" is a pass-through filter, which keeps the test free of any
	// real compressor dependency.
	w, err := CompressPipe("cat", &buf)
	assert.NoError(t, err)

	_, err = w.Write([]byte("hello\n"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.Equal(t, "hello\n", buf.String())
}

func TestCompressPipeEmptyCommand(t *testing.T) {
	_, err := CompressPipe("", &bytes.Buffer{})
	assert.Error(t, err)
}
