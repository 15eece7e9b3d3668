// File: internal/creds/parse_test.go
package creds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	src := strings.Join([]string{
		"a:1",
		"b:2",
		"# comment",
		"",
		"c:3",
	}, "\n")

	pairs, err := ParseLines(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"a", "1"}, {"b", "2"}, {"c", "3"}}, pairs)
}

func TestParseLinesSkipsMalformed(t *testing.T) {
	src := strings.Join([]string{
		"no-colon-here",
		":missing-login",
		"missing-password:",
		"  spaced :  ok  ",
		"  : ",
		"valid:secret",
	}, "\n")

	pairs, err := ParseLines(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"spaced", "ok"}, {"valid", "secret"}}, pairs)
}

func TestParseLinesPasswordMayContainColon(t *testing.T) {
	pairs, err := ParseLines(strings.NewReader("user:pa:ss:word"))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{"user", "pa:ss:word"}, pairs[0])
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte("a:1\nb:2\n"), 0o644))

	pairs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestParseFileEmptyIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte("# only comments\n\n"), 0o644))

	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestParseFileMissingIsAnError(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestPairRendering(t *testing.T) {
	p := Pair{Login: "user", Password: "secret"}
	assert.Equal(t, "user:secret", p.Plain())
	assert.Equal(t, "user:******", p.Masked())
}
