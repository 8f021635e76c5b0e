package controller_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ampyfm/internal/controller"
	"ampyfm/internal/device"
	"ampyfm/internal/device/scripts"
	"ampyfm/internal/local"
	"ampyfm/internal/remote"
	"ampyfm/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	kind controller.MsgKind
	text string
}

type fakeView struct {
	mu        sync.Mutex
	lines     []logLine
	alerts    []string
	confirms  []string
	answer    bool
	refreshes int
	cleared   int
}

func (v *fakeView) Log(kind controller.MsgKind, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append(v.lines, logLine{kind, text})
}

func (v *fakeView) ClearLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = nil
	v.cleared++
}

func (v *fakeView) Alert(message string, done func()) {
	v.mu.Lock()
	v.alerts = append(v.alerts, message)
	v.mu.Unlock()
	if done != nil {
		done()
	}
}

func (v *fakeView) Confirm(message string, answer func(bool)) {
	v.mu.Lock()
	v.confirms = append(v.confirms, message)
	yes := v.answer
	v.mu.Unlock()
	answer(yes)
}

func (v *fakeView) Refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refreshes++
}

func (v *fakeView) texts(kind controller.MsgKind) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, l := range v.lines {
		if l.kind == kind {
			out = append(out, l.text)
		}
	}
	return out
}

type fakeProbe struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProbe) probe(port string, baud int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProbe) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type fixture struct {
	ctrl     *controller.Controller
	view     *fakeView
	board    *testutils.FakeBoard
	probe    *fakeProbe
	localDir string
}

var testScripts = scripts.Paths{
	Files:       "/tmp/ampyfm/print_files.py",
	Directories: "/tmp/ampyfm/print_directories.py",
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)

	board := testutils.NewFakeBoard().
		AddFile("/main.py", "print('board main')").
		AddFile("/boot.py", "").
		AddFile("/lib/util.py", "")

	ig, err := local.NewIgnore([]string{".git"})
	require.NoError(t, err)
	lm, err := local.NewModel(dir, ig)
	require.NoError(t, err)
	require.NoError(t, lm.Refresh())

	probe := &fakeProbe{}
	adapter := device.NewAdapter(device.Settings{Port: "/dev/ttyUSB0", Baud: 115200}, device.WithRunner(board))
	ctrl := controller.New(context.Background(), controller.Options{
		Adapter: adapter,
		Scripts: testScripts,
		Local:   lm,
		Probe:   probe.probe,
		TempDir: func() (string, error) { return os.MkdirTemp(t.TempDir(), "run-") },
	})
	view := &fakeView{answer: true}
	ctrl.SetView(view)

	return &fixture{ctrl: ctrl, view: view, board: board, probe: probe, localDir: dir}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	f.ctrl.Connect()
	require.True(t, f.ctrl.Connected())
	f.board.ResetCalls()
}

func names(entries []remote.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestConnect(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.ctrl.Connected())

	f.ctrl.Connect()
	assert.True(t, f.ctrl.Connected())
	assert.Equal(t, []string{"..", "lib", "boot.py", "main.py"}, names(f.ctrl.RemoteEntries()))
	assert.Equal(t, "/", f.ctrl.RemotePath())
	assert.Contains(t, f.view.texts(controller.Info), "Connected to device /dev/ttyUSB0")
	assert.Positive(t, f.view.refreshes)
}

func TestDeviceNotFound(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.probe.set(fmt.Errorf("no such file or directory"))
	f.ctrl.RefreshRemote()

	require.Len(t, f.view.alerts, 1)
	assert.Equal(t, controller.DeviceNotFoundMessage("/dev/ttyUSB0"), f.view.alerts[0])
	assert.True(t, strings.HasPrefix(f.view.alerts[0], "Can't find your remote device '/dev/ttyUSB0'"))
	assert.False(t, f.ctrl.Connected())
	assert.Equal(t, []string{".."}, names(f.ctrl.RemoteEntries()))
	assert.Empty(t, f.board.Calls(), "no tool invocation without a device")

	b := f.ctrl.Buttons([]string{"main.py"}, []string{"main.py"})
	assert.Equal(t, controller.Buttons{}, b)
}

func TestTickDetectsDisconnect(t *testing.T) {
	f := newFixture(t)

	// Not connected yet: ticking never probes into a connection
	f.ctrl.Tick()
	assert.False(t, f.ctrl.Connected())
	assert.Empty(t, f.view.alerts)

	f.connect(t)
	f.ctrl.Tick()
	assert.True(t, f.ctrl.Connected())

	f.probe.set(fmt.Errorf("gone"))
	f.ctrl.Tick()
	assert.False(t, f.ctrl.Connected())
	assert.Len(t, f.view.alerts, 1)

	f.ctrl.Tick()
	assert.Len(t, f.view.alerts, 1)
}

func TestMkdirAtRoot(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.ctrl.Mkdir("test")

	assert.Contains(t, names(f.ctrl.RemoteEntries()), "test")
	calls := f.board.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"--port", "/dev/ttyUSB0", "--baud", "115200", "--delay", "0", "mkdir", "/test"}, calls[0].Args)
	assert.Empty(t, f.view.texts(controller.Error))
}

func TestMkdirFailureLogsError(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	before := f.ctrl.RemoteEntries()

	f.ctrl.Mkdir("lib")

	assert.Equal(t, []string{"RuntimeError: Directory already exists: /lib"}, f.view.texts(controller.Error))
	assert.Equal(t, before, f.ctrl.RemoteEntries())
}

func TestPut(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.ctrl.Put([]string{"main.py", "boot.py"})
	assert.Equal(t, "import blink\nblink.run()\n", f.board.File("/main.py"))
	assert.Equal(t, []string{"File(s) 'main.py, boot.py' successfully uploaded to remote device"},
		f.view.texts(controller.Info)[1:])

	t.Run("empty_selection", func(t *testing.T) {
		f.board.ResetCalls()
		f.ctrl.Put(nil)
		f.ctrl.Put([]string{".."})
		assert.Equal(t, []string{"No file selected", "No file selected"}, f.view.texts(controller.Warning))
		assert.Empty(t, f.board.CallsFor(device.CmdPut))
	})

	t.Run("into_subdirectory", func(t *testing.T) {
		require.True(t, f.ctrl.ActivateRemote("lib"))
		f.ctrl.Put([]string{"README.md"})
		assert.True(t, f.board.HasFile("/lib/README.md"))
		assert.Contains(t, names(f.ctrl.RemoteEntries()), "README.md")
	})
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	f.ctrl.Get([]string{"main.py", "lib", ".."})

	data, err := os.ReadFile(filepath.Join(f.localDir, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('board main')", string(data))
	assert.Contains(t, f.view.texts(controller.Info), "File '/main.py' successfully fetched from device")
	assert.Len(t, f.board.CallsFor(device.CmdGet), 1)

	f.ctrl.Get([]string{"lib"})
	assert.Equal(t, []string{"No file selected"}, f.view.texts(controller.Warning))
}

func TestGetFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.board.Fail(device.CmdGet, "/boot.py", "Traceback\nRuntimeError: read failed\n")

	f.ctrl.Get([]string{"boot.py"})
	assert.Equal(t, []string{"Error fetching file from device: 'RuntimeError: read failed'"}, f.view.texts(controller.Error))
}

func TestDelete(t *testing.T) {
	t.Run("single_confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)

		f.ctrl.Delete([]string{"main.py"})
		assert.Equal(t, []string{"Are you sure you want to delete 'main.py'?"}, f.view.confirms)
		assert.False(t, f.board.HasFile("/main.py"))
		assert.NotContains(t, names(f.ctrl.RemoteEntries()), "main.py")
		assert.Contains(t, f.view.texts(controller.Info), "File 'main.py' successfully deleted from device")
	})

	t.Run("multiple_confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)

		f.ctrl.Delete([]string{"..", "boot.py", "lib"})
		assert.Equal(t, []string{"Are you sure you want to delete these 2 files?"}, f.view.confirms)
		assert.Len(t, f.board.CallsFor(device.CmdRm), 1)
		assert.Len(t, f.board.CallsFor(device.CmdRmdir), 1)
		assert.Equal(t, []string{"..", "main.py"}, names(f.ctrl.RemoteEntries()))
		assert.Contains(t, f.view.texts(controller.Info), "Files 'boot.py, lib' successfully deleted from device")
	})

	t.Run("directory", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)

		f.ctrl.Delete([]string{"lib"})
		assert.Contains(t, f.view.texts(controller.Info), "Directory 'lib' successfully deleted from device")
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)
		f.view.answer = false

		f.ctrl.Delete([]string{"main.py"})
		assert.Len(t, f.view.confirms, 1)
		assert.True(t, f.board.HasFile("/main.py"))
		assert.Empty(t, f.board.CallsFor(device.CmdRm))
	})

	t.Run("partial_failure", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)
		f.board.Fail(device.CmdRm, "/boot.py", "RuntimeError: busy")

		f.ctrl.Delete([]string{"boot.py", "main.py"})
		assert.Equal(t, []string{"RuntimeError: busy"}, f.view.texts(controller.Error))
		assert.Equal(t, []string{"..", "lib", "boot.py"}, names(f.ctrl.RemoteEntries()))
	})

	t.Run("nothing_selected", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t)

		f.ctrl.Delete([]string{".."})
		assert.Empty(t, f.view.confirms)
		assert.Equal(t, []string{"No file selected"}, f.view.texts(controller.Warning))
	})
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	require.True(t, f.ctrl.ActivateRemote("lib"))
	assert.Equal(t, "/lib", f.ctrl.RemotePath())

	f.ctrl.Reset()
	assert.Equal(t, 1, f.board.Resets)
	assert.Equal(t, "/", f.ctrl.RemotePath())
	assert.Contains(t, f.view.texts(controller.Info), "Device reset")
}

func TestRunLocal(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.board.RunOutput = "blink\n"

	f.ctrl.RunLocal([]string{"main.py", "lib"})

	info := f.view.texts(controller.Info)
	require.GreaterOrEqual(t, len(info), 3)
	assert.Equal(t, []string{
		"---------Running local file main.py---------",
		"blink",
		"----------------------------",
	}, info[len(info)-3:])

	runs := f.board.CallsFor(device.CmdRun)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{filepath.Join(f.localDir, "main.py")}, runs[0].Operands())
}

func TestRunLocalFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.board.Fail(device.CmdRun, "", "Traceback (most recent call last):\nNameError: name 'x' isn't defined\n")

	f.ctrl.RunLocal([]string{"boot.py"})
	errs := f.view.texts(controller.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "NameError: name 'x' isn't defined")
}

func TestRunRemote(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.board.RunOutput = "board main\n"

	f.ctrl.RunRemote([]string{"main.py"})

	gets := f.board.CallsFor(device.CmdGet)
	require.Len(t, gets, 1)
	tmpCopy := gets[0].Operands()[1]
	runs := f.board.CallsFor(device.CmdRun)
	require.Len(t, runs, 1)
	assert.Equal(t, tmpCopy, runs[0].Operands()[0])

	_, err := os.Stat(filepath.Dir(tmpCopy))
	assert.True(t, os.IsNotExist(err), "temporary copy is removed")
	assert.Contains(t, f.view.texts(controller.Info), "---------Running local file main.py---------")
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	var hooked []string
	f.ctrl.OnLocalDirChange(func(dir string) { hooked = append(hooked, dir) })

	assert.False(t, f.ctrl.ActivateLocal("main.py"))
	assert.True(t, f.ctrl.ActivateLocal("lib"))
	assert.Equal(t, filepath.Join(f.localDir, "lib"), f.ctrl.LocalPath())
	assert.True(t, f.ctrl.ActivateLocal(".."))
	assert.Equal(t, f.localDir, f.ctrl.LocalPath())

	other := t.TempDir()
	f.ctrl.ChooseLocalDir(other)
	assert.Equal(t, other, f.ctrl.LocalPath())
	assert.Equal(t, []string{filepath.Join(f.localDir, "lib"), f.localDir, other}, hooked)

	f.ctrl.ChooseLocalDir(filepath.Join(other, "missing"))
	assert.Equal(t, other, f.ctrl.LocalPath())
	assert.Len(t, f.view.texts(controller.Error), 1)

	assert.False(t, f.ctrl.ActivateRemote("main.py"))
	assert.True(t, f.ctrl.ActivateRemote("lib"))
	assert.Equal(t, []string{"..", "util.py"}, names(f.ctrl.RemoteEntries()))
	assert.True(t, f.ctrl.ActivateRemote(".."))
	assert.Equal(t, "/", f.ctrl.RemotePath())
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	require.NoError(t, f.ctrl.SetBaud(9600))
	require.NoError(t, f.ctrl.SetDelay(0.5))
	assert.Error(t, f.ctrl.SetBaud(1234))
	assert.Error(t, f.ctrl.SetDelay(12))
	assert.Equal(t, device.Settings{Port: "/dev/ttyUSB0", Baud: 9600, Delay: 0.5}, f.ctrl.Settings())

	f.ctrl.RefreshRemote()
	for _, c := range f.board.Calls() {
		assert.Equal(t, []string{"--port", "/dev/ttyUSB0", "--baud", "9600", "--delay", "0.5"}, c.Args[:6])
	}

	f.ctrl.SelectPort(" /dev/ttyACM0 ")
	assert.Equal(t, "/dev/ttyACM0", f.ctrl.Settings().Port)
	assert.False(t, f.ctrl.Connected())
	assert.Equal(t, []string{".."}, names(f.ctrl.RemoteEntries()))
}

func TestButtons(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, controller.Buttons{}, f.ctrl.Buttons([]string{"main.py"}, []string{"main.py"}))

	f.connect(t)
	b := f.ctrl.Buttons(nil, nil)
	assert.Equal(t, controller.Buttons{Refresh: true, Mkdir: true, Reset: true}, b)

	b = f.ctrl.Buttons([]string{"main.py"}, []string{"main.py"})
	assert.True(t, b.Put)
	assert.True(t, b.RunLocal)
	assert.True(t, b.Get)
	assert.True(t, b.Delete)
	assert.True(t, b.RunRemote)

	b = f.ctrl.Buttons([]string{"main.py", "lib"}, []string{"lib"})
	assert.True(t, b.Put)
	assert.False(t, b.RunLocal)
	assert.True(t, b.Delete)
	assert.False(t, b.RunRemote)

	b = f.ctrl.Buttons([]string{".."}, []string{"..", "main.py"})
	assert.False(t, b.Put)
	assert.False(t, b.Get)
	assert.False(t, b.Delete)
}

func TestClearLog(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.ctrl.ClearLog()
	assert.Equal(t, 1, f.view.cleared)
	assert.Empty(t, f.view.lines)
}

func TestMsgKindString(t *testing.T) {
	assert.Equal(t, "INFO", controller.Info.String())
	assert.Equal(t, "WARNING", controller.Warning.String())
	assert.Equal(t, "ERROR", controller.Error.String())
}

// reentrantView reads controller state from inside its callbacks, as the GUI
// does when it redraws.
type reentrantView struct {
	fakeView
	ctrl    *controller.Controller
	mu      sync.Mutex
	blocked int
}

func (v *reentrantView) reenter() {
	done := make(chan struct{})
	go func() {
		v.ctrl.RemotePath()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		v.mu.Lock()
		v.blocked++
		v.mu.Unlock()
	}
}

func (v *reentrantView) Log(kind controller.MsgKind, text string) {
	v.reenter()
	v.fakeView.Log(kind, text)
}

func (v *reentrantView) Alert(message string, done func()) {
	v.reenter()
	v.fakeView.Alert(message, done)
}

func TestViewCalledWithoutLock(t *testing.T) {
	f := newFixture(t)
	view := &reentrantView{ctrl: f.ctrl}
	f.ctrl.SetView(view)

	f.ctrl.Connect()
	f.ctrl.Mkdir("test")
	f.probe.set(fmt.Errorf("no such file or directory"))
	f.ctrl.Tick()

	assert.Contains(t, view.texts(controller.Info), "Connected to device /dev/ttyUSB0")
	assert.Contains(t, view.texts(controller.Info), "Directory '/test' created on device")
	assert.Len(t, view.alerts, 1)
	view.mu.Lock()
	defer view.mu.Unlock()
	assert.Zero(t, view.blocked, "view callback ran while the controller lock was held")
}
