package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestYAMLFormatter_Format_BasicOutput(t *testing.T) {
	formatter := &YAMLFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, sampleResult()))

	var parsed yamlOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))

	require.Len(t, parsed.Groups, 2)
	assert.Len(t, parsed.Groups[0].Paths, 3)
	assert.Equal(t, int64(12), parsed.Groups[1].Size)
	assert.Equal(t, []string{"/home/user", "/mnt/disk"}, parsed.Meta.Roots)
	assert.Equal(t, 5, parsed.Meta.TotalFiles)
	assert.Equal(t, int64(10), parsed.Stats.DirsScanned)
}

func TestYAMLFormatter_Format_Indentation(t *testing.T) {
	formatter := &YAMLFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, sampleResult()))

	// Nested keys use two-space indentation.
	assert.Contains(t, buf.String(), "\n  dirs_scanned: 10\n")
	assert.True(t, strings.HasPrefix(buf.String(), "groups:\n"))
}

func TestYAMLFormatter_Format_EmptyResult(t *testing.T) {
	formatter := &YAMLFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, &Result{}))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))
	assert.Contains(t, parsed, "groups")
	assert.Contains(t, parsed, "meta")
}

func TestYAMLFormatter_Registration(t *testing.T) {
	formatter, err := Get("yaml")
	require.NoError(t, err)
	assert.IsType(t, &YAMLFormatter{}, formatter)
}
