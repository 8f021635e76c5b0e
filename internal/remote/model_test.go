package remote_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ampyfm/internal/device"
	"ampyfm/internal/device/scripts"
	"ampyfm/internal/errors"
	"ampyfm/internal/remote"
	"ampyfm/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScripts = scripts.Paths{
	Files:       "/tmp/ampyfm/print_files.py",
	Directories: "/tmp/ampyfm/print_directories.py",
}

func newModel(board *testutils.FakeBoard) *remote.Model {
	a := device.NewAdapter(device.Settings{Port: "/dev/ttyUSB0", Baud: 115200}, device.WithRunner(board))
	return remote.NewModel(a, testScripts)
}

func sampleBoard() *testutils.FakeBoard {
	return testutils.NewFakeBoard().
		AddFile("/main.py", "").
		AddFile("/boot.py", "").
		AddDir("/Lib").
		AddFile("/lib/b.py", "").
		AddFile("/lib/A.py", "").
		AddFile("/lib/a.py", "").
		AddDir("/lib/drivers")
}

func TestRefreshRootUsesScripts(t *testing.T) {
	board := sampleBoard()
	m := newModel(board)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, []string{"Lib", "lib"}, m.Dirs())
	assert.Equal(t, []string{"boot.py", "main.py"}, m.Files())

	calls := board.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"run", testScripts.Files}, calls[0].Args[6:])
	assert.Equal(t, []string{"run", testScripts.Directories}, calls[1].Args[6:])
	assert.Empty(t, board.CallsFor(device.CmdLs))
}

func TestRefreshSubdirProbesEachEntry(t *testing.T) {
	board := sampleBoard()
	m := newModel(board)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))
	board.ResetCalls()

	require.NoError(t, m.Enter(ctx, "lib"))
	assert.Equal(t, "/lib", m.Path())
	assert.Equal(t, []string{"drivers"}, m.Dirs())
	assert.Equal(t, []string{"A.py", "a.py", "b.py"}, m.Files())

	ls := board.CallsFor(device.CmdLs)
	// One listing plus one probe for each of the four entries.
	require.Len(t, ls, 5)
	assert.Equal(t, []string{"/lib"}, ls[0].Operands())
	probes := map[string]bool{}
	for _, c := range ls[1:] {
		probes[c.Operands()[0]] = true
	}
	assert.Equal(t, map[string]bool{
		"/lib/A.py": true, "/lib/a.py": true, "/lib/b.py": true, "/lib/drivers": true,
	}, probes)
	assert.Empty(t, board.CallsFor(device.CmdRun))
}

func TestEntries(t *testing.T) {
	board := testutils.NewFakeBoard().AddFile("/b.py", "").AddFile("/a.py", "").AddDir("/A")
	m := newModel(board)
	require.NoError(t, m.Refresh(context.Background()))

	assert.Equal(t, []remote.Entry{
		{Name: "..", Kind: remote.KindParent},
		{Name: "A", Kind: remote.KindDir},
		{Name: "a.py", Kind: remote.KindFile},
		{Name: "b.py", Kind: remote.KindFile},
	}, m.Entries())

	kind, ok := m.Kind("A")
	assert.True(t, ok)
	assert.Equal(t, remote.KindDir, kind)
	_, ok = m.Kind("zzz")
	assert.False(t, ok)
}

func TestFailedRefreshKeepsListing(t *testing.T) {
	ctx := context.Background()
	board := sampleBoard()
	m := newModel(board)
	require.NoError(t, m.Refresh(ctx))
	before := m.Entries()

	board.Fail(device.CmdRun, testScripts.Directories, "RuntimeError: could not enter raw repl")
	err := m.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsToolFailed(err))
	assert.Equal(t, before, m.Entries())

	board.ClearFailures()
	board.Fail(device.CmdLs, "/lib", "RuntimeError: timeout")
	err = m.Enter(ctx, "lib")
	require.Error(t, err)
	assert.Equal(t, remote.Root, m.Path())
	assert.Equal(t, before, m.Entries())
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	board := sampleBoard()
	m := newModel(board)
	require.NoError(t, m.Refresh(ctx))

	require.NoError(t, m.Enter(ctx, "lib"))
	require.NoError(t, m.Enter(ctx, "drivers"))
	assert.Equal(t, "/lib/drivers", m.Path())
	assert.Equal(t, "/lib/drivers/x.py", m.Join("x.py"))

	require.NoError(t, m.Up(ctx))
	assert.Equal(t, "/lib", m.Path())
	require.NoError(t, m.Enter(ctx, ".."))
	assert.Equal(t, remote.Root, m.Path())
	assert.Equal(t, "/", m.DisplayPath())
	assert.Equal(t, "/main.py", m.Join("main.py"))

	// Up from the root stays there.
	require.NoError(t, m.Up(ctx))
	assert.Equal(t, remote.Root, m.Path())

	err := m.Enter(ctx, "main.py")
	assert.True(t, errors.IsInvalidSelection(err))

	require.NoError(t, m.SetPath(ctx, "/lib/"))
	assert.Equal(t, "/lib", m.Path())
}

func TestMkdirAtRoot(t *testing.T) {
	ctx := context.Background()
	board := testutils.NewFakeBoard().AddFile("/main.py", "")
	m := newModel(board)
	require.NoError(t, m.Refresh(ctx))
	board.ResetCalls()

	require.NoError(t, m.Mkdir(ctx, "test"))
	assert.Contains(t, m.Dirs(), "test")
	assert.True(t, board.HasDir("/test"))

	calls := board.Calls()
	require.Len(t, calls, 1, "no re-listing after mkdir")
	assert.Equal(t, []string{"--port", "/dev/ttyUSB0", "--baud", "115200", "--delay", "0", "mkdir", "/test"}, calls[0].Args)

	err := m.Mkdir(ctx, "test")
	require.Error(t, err)
	assert.True(t, errors.IsToolFailed(err))
	assert.Equal(t, []string{"test"}, m.Dirs())

	assert.True(t, errors.IsInvalidSelection(m.Mkdir(ctx, "  ")))
	assert.True(t, errors.IsInvalidSelection(m.Mkdir(ctx, "a/b")))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	board := sampleBoard()
	m := newModel(board)
	require.NoError(t, m.Refresh(ctx))

	board.Fail(device.CmdRm, "/boot.py", "RuntimeError: busy")
	removed, errs := m.Remove(ctx, []remote.Entry{
		{Name: "..", Kind: remote.KindParent},
		{Name: "boot.py", Kind: remote.KindFile},
		{Name: "main.py", Kind: remote.KindFile},
		{Name: "Lib", Kind: remote.KindDir},
	})

	assert.Equal(t, []string{"main.py", "Lib"}, removed)
	require.Len(t, errs, 1)
	assert.True(t, errors.IsToolFailed(errs[0]))
	assert.Equal(t, []string{"lib"}, m.Dirs())
	assert.Equal(t, []string{"boot.py"}, m.Files())
	assert.False(t, board.HasDir("/Lib"))
}

func TestUploadStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"a.py": "a", "c.py": "c"})

	board := testutils.NewFakeBoard()
	m := newModel(board)
	require.NoError(t, m.Refresh(ctx))

	done, err := m.Upload(ctx, dir, []string{"a.py", "missing.py", "c.py"})
	require.Error(t, err)
	assert.Equal(t, []string{"a.py"}, done)
	assert.Equal(t, []string{"a.py"}, m.Files())
	assert.Len(t, board.CallsFor(device.CmdPut), 2)
	assert.Equal(t, "a", board.File("/a.py"))
	assert.False(t, board.HasFile("/c.py"))
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	board := sampleBoard()
	board.AddFile("/lib/a.py", "print('a')")
	m := newModel(board)
	require.NoError(t, m.SetPath(ctx, "/lib"))

	done, errs := m.Download(ctx, []string{"a.py", "gone.py", "b.py"}, dir)
	assert.Equal(t, []string{"a.py", "b.py"}, done)
	assert.Len(t, errs, 1)

	data, err := os.ReadFile(filepath.Join(dir, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('a')", string(data))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	board := sampleBoard()
	m := newModel(board)
	require.NoError(t, m.SetPath(ctx, "/lib"))

	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, 1, board.Resets)
	assert.Equal(t, remote.Root, m.Path())
	assert.Equal(t, []string{"boot.py", "main.py"}, m.Files())

	board.Fail(device.CmdReset, "", "RuntimeError: no response")
	require.NoError(t, m.SetPath(ctx, "/lib"))
	require.Error(t, m.Reset(ctx))
	assert.Equal(t, "/lib", m.Path())
}

func TestClear(t *testing.T) {
	m := newModel(sampleBoard())
	require.NoError(t, m.Refresh(context.Background()))
	m.Clear()
	assert.Equal(t, []remote.Entry{{Name: "..", Kind: remote.KindParent}}, m.Entries())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", remote.Normalize("/"))
	assert.Equal(t, "", remote.Normalize(""))
	assert.Equal(t, "/a/b", remote.Normalize("a/b/"))
	assert.Equal(t, "/a", remote.Normalize("/a/b/.."))
}

func TestSortNames(t *testing.T) {
	names := []string{"b.py", "A", "a.py", "a", "B"}
	remote.SortNames(names)
	assert.Equal(t, []string{"A", "a", "a.py", "B", "b.py"}, names)
}
