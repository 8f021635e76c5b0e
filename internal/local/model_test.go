package local

import (
	"os"
	"path/filepath"
	"testing"

	"ampyfm/internal/config"
	"ampyfm/internal/errors"
	"ampyfm/internal/remote"
	"ampyfm/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, dir string, patterns []string) *Model {
	t.Helper()
	ig, err := NewIgnore(patterns)
	require.NoError(t, err)
	m, err := NewModel(dir, ig)
	require.NoError(t, err)
	require.NoError(t, m.Refresh())
	return m
}

func TestListingOrder(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"b.py": "", "a.py": ""})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "A"), 0o755))

	m := newTestModel(t, dir, nil)
	assert.Equal(t, []string{"A"}, m.Dirs())
	assert.Equal(t, []string{"a.py", "b.py"}, m.Files())
	assert.Equal(t, []Entry{
		{Name: "..", Kind: remote.KindParent},
		{Name: "A", Kind: remote.KindDir},
		{Name: "a.py", Kind: remote.KindFile},
		{Name: "b.py", Kind: remote.KindFile},
	}, m.Entries())
}

func TestCaseInsensitiveSort(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{
		"zeta.py": "", "Alpha.py": "", "alpha.py": "", "Beta.py": "",
	})
	m := newTestModel(t, dir, nil)
	assert.Equal(t, []string{"Alpha.py", "alpha.py", "Beta.py", "zeta.py"}, m.Files())
}

func TestIgnore(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{
		".ds_store":   "",
		".IDEA/x.xml": "",
		"cache.PYC":   "",
	})

	m := newTestModel(t, dir, append(config.DefaultIgnore, "*.pyc"))
	assert.Equal(t, []string{"data", "lib"}, m.Dirs())
	assert.Equal(t, []string{"boot.py", "main.py", "README.md"}, m.Files())

	for _, e := range m.Entries() {
		assert.NotContains(t, []string{".git", ".ds_store", ".IDEA", "cache.PYC"}, e.Name)
	}
}

func TestNewIgnoreInvalid(t *testing.T) {
	_, err := NewIgnore([]string{"[unclosed"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))

	var nilIgnore *Ignore
	assert.False(t, nilIgnore.Match("anything"))
}

func TestNavigation(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)
	m := newTestModel(t, dir, config.DefaultIgnore)

	require.NoError(t, m.Enter("lib"))
	assert.Equal(t, filepath.Join(dir, "lib"), m.Path())
	assert.Equal(t, []string{"blink.py"}, m.Files())
	assert.Equal(t, filepath.Join(dir, "lib", "blink.py"), m.Join("blink.py"))

	require.NoError(t, m.Enter(".."))
	assert.Equal(t, dir, m.Path())

	err := m.Enter("main.py")
	assert.True(t, errors.IsInvalidSelection(err))

	err = m.SetPath(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsFileNotFound(err))
	assert.Equal(t, dir, m.Path())

	require.NoError(t, m.Up())
	assert.Equal(t, filepath.Dir(dir), m.Path())
}

func TestKind(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)
	m := newTestModel(t, dir, config.DefaultIgnore)

	kind, ok := m.Kind("lib")
	assert.True(t, ok)
	assert.Equal(t, remote.KindDir, kind)
	kind, ok = m.Kind("main.py")
	assert.True(t, ok)
	assert.Equal(t, remote.KindFile, kind)
	kind, _ = m.Kind("..")
	assert.Equal(t, remote.KindParent, kind)
	_, ok = m.Kind(".git")
	assert.False(t, ok)
	assert.True(t, m.IsDir(".."))
}

func TestNewModelDefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	m, err := NewModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, wd, m.Path())
}
