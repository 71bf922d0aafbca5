package discovery

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memTree(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x\n"), 0o644))
	}
	return fs
}

func TestToRegexp(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"*.txt", "combo.txt", true},
		{"*.txt", "COMBO.TXT", true},
		{"*.txt", "combo.txt.bak", false},
		{"*.txt", "combotxt", false},
		{"part?.txt", "part1.txt", true},
		{"part?.txt", "part12.txt", false},
		{"a+b(1).txt", "a+b(1).txt", true},
		{"a+b(1).txt", "aab1.txt", false},
		{"[x]*", "[x]file", true},
		{"data_*_202?.log", "data_eu_2024.log", true},
	}
	for _, tc := range testCases {
		re, err := ToRegexp(tc.pattern)
		require.NoError(t, err)
		assert.Equal(t, tc.want, re.MatchString(tc.subject), "%s vs %s", tc.pattern, tc.subject)
	}
}

func TestIsWildcard(t *testing.T) {
	t.Parallel()
	assert.True(t, IsWildcard("*.txt"))
	assert.True(t, IsWildcard("file?.txt"))
	assert.False(t, IsWildcard("dumps/a.txt"))
}

func TestExpandWildcardByName(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "b.txt", "a.txt", "sub/c.TXT", "notes.md", "filtered_output.txt", "config.ini")
	got, err := Expand(fs, ".", []string{"*.txt"}, []string{"filtered_output.txt", "config.ini"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", filepath.Join("sub", "c.TXT")}, got)
}

func TestExpandWildcardByRelativePath(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "dumps/one.txt", "dumps/deep/two.txt", "other/three.txt")
	got, err := Expand(fs, ".", []string{"dumps/*.txt"}, nil)
	require.NoError(t, err)
	// '*' crosses directory separators, as in the name-only form.
	assert.Equal(t, []string{filepath.Join("dumps", "deep", "two.txt"), filepath.Join("dumps", "one.txt")}, got)
}

func TestExpandVerbatimAndDedup(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "a.txt", "b.txt")
	got, err := Expand(fs, ".", []string{"missing.txt", "a.txt", "*.txt", "./a.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing.txt", "a.txt", "b.txt"}, got)
}

func TestExpandExcludesVerbatimOutput(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "out.txt")
	_, err := Expand(fs, ".", []string{"out.txt"}, []string{"./out.txt"})
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestExpandNoMatches(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "a.log")
	_, err := Expand(fs, ".", []string{"*.txt", "  "}, nil)
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestExpandCustomRoot(t *testing.T) {
	t.Parallel()

	fs := memTree(t, "/data/x.txt", "/data/y.csv", "/elsewhere/z.txt")
	got, err := Expand(fs, "/data", []string{"*.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/data", "x.txt")}, got)
}

func TestExpandExcludesRelativeOutputUnderAbsoluteRoot(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	chdir(t, root)

	fs := afero.NewOsFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "combo.txt"), []byte("x\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "out.txt"), []byte("x\n"), 0o644))

	got, err := Expand(fs, root, []string{"*.txt", "combo.txt"}, []string{"out.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "combo.txt")}, got)
}
