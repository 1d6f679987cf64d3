package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainFormatter_Format_BasicOutput(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, []string{"GROUP", "SIZE", "DIGEST", "PATH"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "1.0", "GiB", "0a1b2c3d4e5f", "/home/user/backup/large.zip"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "12", "B", "ff00ff00ff00", "/home/user/b.txt"}, strings.Fields(lines[5]))
}

func TestPlainFormatter_Format_Aligned(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	col := strings.Index(lines[0], "PATH")
	for _, line := range lines[1:] {
		assert.Equal(t, "/", string(line[col]), "line %q", line)
	}
}

func TestPlainFormatter_Format_NoANSI(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, sampleResult()))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainFormatter_Format_EmptyResult(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	require.NoError(t, formatter.Format(&buf, &Result{}))
	assert.Equal(t, "GROUP SIZE DIGEST PATH\n", buf.String())
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "abc", shortDigest("abc"))
	assert.Equal(t, "0123456789ab", shortDigest("0123456789abcdef"))
}
