// Package controller binds user actions to device commands and model updates.
// It knows nothing about widgets: a View renders the listings and receives log
// lines, alerts and confirmation requests.
package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ampyfm/internal/config"
	"ampyfm/internal/device"
	"ampyfm/internal/device/scripts"
	"ampyfm/internal/errors"
	"ampyfm/internal/local"
	"ampyfm/internal/log"
	"ampyfm/internal/monitor"
	"ampyfm/internal/remote"
)

// MsgKind classifies a log pane line
type MsgKind int

const (
	Info MsgKind = iota
	Warning
	Error
)

func (k MsgKind) String() string {
	switch k {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	}
	return "INFO"
}

// RunFooter closes the output of a script run in the log pane
const RunFooter = "----------------------------"

// RunHeader opens the output of a script run
func RunHeader(name string) string {
	return fmt.Sprintf("---------Running local file %s---------", name)
}

// DeviceNotFoundMessage is the alert text shown when the port cannot be opened.
func DeviceNotFoundMessage(port string) string {
	return fmt.Sprintf("Can't find your remote device '%s'\n\n"+
		"Check the port settings or whether\n"+
		"the port is in use in another program.", port)
}

// View is implemented by the GUI and the TUI.
type View interface {
	Log(kind MsgKind, text string)
	ClearLog()
	// Alert shows a modal message; done runs once it is acknowledged.
	Alert(message string, done func())
	// Confirm asks a yes/no question; answer may run after Confirm returns.
	Confirm(message string, answer func(bool))
	// Refresh redraws both listings and the button state.
	Refresh()
}

// Buttons is the enabled state of every action.
type Buttons struct {
	Refresh   bool
	Mkdir     bool
	Reset     bool
	Put       bool
	RunLocal  bool
	Get       bool
	Delete    bool
	RunRemote bool
}

// Options holds the collaborators of a Controller.
type Options struct {
	Adapter *device.Adapter
	Scripts scripts.Paths
	Local   *local.Model
	Probe   monitor.Prober

	// TempDir creates the directory a remote file is copied to before it
	// runs. Defaults to os.MkdirTemp.
	TempDir func() (string, error)
}

// Controller serialises every operation behind one mutex so the periodic
// connection check can run on its own goroutine.
type Controller struct {
	mu sync.Mutex

	ctx     context.Context
	view    View
	dev     *device.Adapter
	remote  *remote.Model
	local   *local.Model
	mon     *monitor.Monitor
	tempDir func() (string, error)

	localDirHooks []func(dir string)

	// view calls made while mu is held, delivered by unlock
	pending []func(View)
}

// New creates a controller. The view is attached later with SetView because
// views usually need the controller to build themselves.
func New(ctx context.Context, opts Options) *Controller {
	c := &Controller{
		ctx:     ctx,
		view:    nopView{},
		dev:     opts.Adapter,
		remote:  remote.NewModel(opts.Adapter, opts.Scripts),
		local:   opts.Local,
		tempDir: opts.TempDir,
	}
	if c.tempDir == nil {
		c.tempDir = func() (string, error) { return os.MkdirTemp("", "ampyfm-run-") }
	}
	c.mon = monitor.New(opts.Probe, func() (string, int) {
		s := c.dev.Settings()
		return s.Port, s.Baud
	})
	c.mon.OnChange(func(state monitor.State, err error) {
		log.LogWithFields(log.F("port", c.dev.Settings().Port), log.F("state", state.String())).Debug("monitor transition")
	})
	return c
}

// SetView attaches the view that receives output
func (c *Controller) SetView(v View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}

// OnLocalDirChange registers fn to be told whenever the local directory
// changes, e.g. to re-target a file watcher.
func (c *Controller) OnLocalDirChange(fn func(dir string)) {
	c.mu.Lock()
	c.localDirHooks = append(c.localDirHooks, fn)
	c.mu.Unlock()
}

// do runs fn under the lock and redraws the view afterwards.
func (c *Controller) do(fn func()) {
	c.mu.Lock()
	fn()
	c.unlock().Refresh()
}

// emit queues a view call. The view is never entered with mu held.
func (c *Controller) emit(call func(View)) {
	c.pending = append(c.pending, call)
}

// unlock releases mu, then delivers the queued view calls in order.
func (c *Controller) unlock() View {
	view := c.view
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, call := range pending {
		call(view)
	}
	return view
}

// print writes a line to the log pane and to the application log.
func (c *Controller) print(kind MsgKind, text string) {
	switch kind {
	case Warning:
		log.Warn(text)
	case Error:
		log.Error(text)
	default:
		log.Info(text)
	}
	c.emit(func(v View) { v.Log(kind, text) })
}

func (c *Controller) printErr(err error) {
	var toolErr *errors.ToolError
	switch {
	case errors.As(err, &toolErr):
		c.print(Error, toolErr.Message())
	case errors.IsInvalidSelection(err):
		c.print(Warning, err.Error())
	default:
		c.print(Error, err.Error())
	}
}

// requireDevice probes the port before a remote action. On failure the
// remote listing is cleared and the user is alerted.
func (c *Controller) requireDevice() bool {
	if err := c.mon.Check(); err != nil {
		c.deviceLost(err)
		return false
	}
	return true
}

func (c *Controller) deviceLost(err error) {
	port := c.dev.Settings().Port
	log.LogWithError(errors.NewDeviceError(port, err)).Warn("remote device not reachable")
	c.remote.Clear()
	// The state is already Disconnected; acknowledging only dismisses.
	c.emit(func(v View) { v.Alert(DeviceNotFoundMessage(port), func() {}) })
}

// Snapshot accessors for views

// Settings returns the connection settings
func (c *Controller) Settings() device.Settings {
	return c.dev.Settings()
}

// Connected reports whether the last probe succeeded
func (c *Controller) Connected() bool {
	return c.mon.Connected()
}

// LocalPath returns the local directory shown
func (c *Controller) LocalPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.Path()
}

// RemotePath returns the board directory shown, with the root as "/"
func (c *Controller) RemotePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote.DisplayPath()
}

// LocalEntries returns the rendered local listing
func (c *Controller) LocalEntries() []remote.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.Entries()
}

// RemoteEntries returns the rendered board listing
func (c *Controller) RemoteEntries() []remote.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote.Entries()
}

// Buttons computes which actions are enabled for the given selections.
func (c *Controller) Buttons(localSel, remoteSel []string) Buttons {
	c.mu.Lock()
	defer c.mu.Unlock()

	connected := c.mon.Connected()
	b := Buttons{
		Refresh: connected,
		Mkdir:   connected,
		Reset:   connected,
	}
	if !connected {
		return b
	}

	if len(localSel) > 0 && !containsParent(localSel) {
		b.Put = true
		b.RunLocal = allOfKind(localSel, c.local.Kind, remote.KindFile)
	}
	if len(remoteSel) > 0 && !containsParent(remoteSel) {
		b.Get = true
		b.Delete = true
		b.RunRemote = allOfKind(remoteSel, c.remote.Kind, remote.KindFile)
	}
	return b
}

// SelectPort changes the port. The connection must be re-established.
func (c *Controller) SelectPort(port string) {
	c.do(func() {
		port = strings.TrimSpace(port)
		s := c.dev.Settings()
		if s.Port == port {
			return
		}
		s.Port = port
		c.dev.SetSettings(s)
		c.mon.MarkDisconnected()
		c.remote.Clear()
		log.LogWithFields(log.F("port", port)).Debug("port selected")
	})
}

// SetBaud changes the baud rate
func (c *Controller) SetBaud(baud int) error {
	if err := config.ValidateBaud(baud); err != nil {
		return err
	}
	c.do(func() {
		s := c.dev.Settings()
		s.Baud = baud
		c.dev.SetSettings(s)
	})
	return nil
}

// SetDelay changes the delay in seconds
func (c *Controller) SetDelay(delay float64) error {
	if err := config.ValidateDelay(delay); err != nil {
		return err
	}
	c.do(func() {
		s := c.dev.Settings()
		s.Delay = delay
		c.dev.SetSettings(s)
	})
	return nil
}

// Connect probes the port and lists the board's root directory.
func (c *Controller) Connect() {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		if err := c.remote.SetPath(c.ctx, remote.Root); err != nil {
			c.printErr(err)
			return
		}
		c.print(Info, fmt.Sprintf("Connected to device %s", c.dev.Settings().Port))
	})
}

// Tick is the periodic connection check. It only probes while connected.
func (c *Controller) Tick() {
	c.mu.Lock()
	ran, err := c.mon.Tick()
	if ran && err != nil {
		c.deviceLost(err)
	}
	view := c.unlock()
	if ran && err != nil {
		view.Refresh()
	}
}

// RefreshLocal re-reads the local directory
func (c *Controller) RefreshLocal() {
	c.do(func() {
		if err := c.local.Refresh(); err != nil {
			c.printErr(err)
		}
	})
}

// RefreshRemote re-lists the current board directory
func (c *Controller) RefreshRemote() {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		if err := c.remote.Refresh(c.ctx); err != nil {
			c.printErr(err)
		}
	})
}

// ChooseLocalDir switches the local pane to dir
func (c *Controller) ChooseLocalDir(dir string) {
	c.do(func() {
		if err := c.local.SetPath(dir); err != nil {
			c.printErr(err)
			return
		}
		c.localDirChanged()
	})
}

func (c *Controller) localDirChanged() {
	dir := c.local.Path()
	for _, fn := range c.localDirHooks {
		fn(dir)
	}
}

// ActivateLocal enters a local directory. It reports whether the listing
// changed; activating a file does nothing.
func (c *Controller) ActivateLocal(name string) bool {
	changed := false
	c.do(func() {
		if !c.local.IsDir(name) {
			return
		}
		if err := c.local.Enter(name); err != nil {
			c.printErr(err)
			return
		}
		changed = true
		c.localDirChanged()
	})
	return changed
}

// ActivateRemote enters a board directory. It reports whether the listing
// changed.
func (c *Controller) ActivateRemote(name string) bool {
	changed := false
	c.do(func() {
		kind, ok := c.remote.Kind(name)
		if !ok || kind == remote.KindFile {
			return
		}
		if !c.requireDevice() {
			return
		}
		if err := c.remote.Enter(c.ctx, name); err != nil {
			c.printErr(err)
			return
		}
		changed = true
	})
	return changed
}

// Put uploads the selected local entries into the current board directory.
func (c *Controller) Put(names []string) {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		names = withoutParent(names)
		if len(names) == 0 {
			c.printErr(errors.ErrNoSelection)
			return
		}
		done, err := c.remote.Upload(c.ctx, c.local.Path(), names)
		for _, name := range done {
			log.LogWithFields(log.F("file", name)).Debug("uploaded")
		}
		if err != nil {
			c.printErr(err)
			return
		}
		c.print(Info, fmt.Sprintf("File(s) '%s' successfully uploaded to remote device", strings.Join(done, ", ")))
	})
}

// Get downloads the selected board files into the local directory.
// Directories in the selection are skipped.
func (c *Controller) Get(names []string) {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		files := filterKind(names, c.remote.Kind, remote.KindFile)
		if len(files) == 0 {
			c.printErr(errors.ErrNoSelection)
			return
		}
		done, errs := c.remote.Download(c.ctx, files, c.local.Path())
		for _, err := range errs {
			c.print(Error, fmt.Sprintf("Error fetching file from device: '%s'", toolMessage(err)))
		}
		for _, name := range done {
			c.print(Info, fmt.Sprintf("File '%s' successfully fetched from device", c.remote.Join(name)))
		}
		if len(done) > 0 {
			if err := c.local.Refresh(); err != nil {
				c.printErr(err)
			}
		}
	})
}

// Delete removes the selected board entries after confirmation.
func (c *Controller) Delete(names []string) {
	var entries []remote.Entry
	var question string

	c.mu.Lock()
	ok := c.requireDevice()
	if ok {
		for _, name := range withoutParent(names) {
			if kind, known := c.remote.Kind(name); known {
				entries = append(entries, remote.Entry{Name: name, Kind: kind})
			}
		}
		switch len(entries) {
		case 0:
			c.printErr(errors.ErrNoSelection)
		case 1:
			question = fmt.Sprintf("Are you sure you want to delete '%s'?", entries[0].Name)
		default:
			question = fmt.Sprintf("Are you sure you want to delete these %d files?", len(entries))
		}
	}
	view := c.unlock()

	if question == "" {
		view.Refresh()
		return
	}

	view.Confirm(question, func(yes bool) {
		if !yes {
			log.Debug("File deletion canceled")
			return
		}
		c.do(func() { c.deleteEntries(entries) })
	})
}

func (c *Controller) deleteEntries(entries []remote.Entry) {
	removed, errs := c.remote.Remove(c.ctx, entries)
	for _, err := range errs {
		c.printErr(err)
	}
	if len(removed) == 0 {
		return
	}

	dirs, files := 0, 0
	for _, e := range entries {
		if !contains(removed, e.Name) {
			continue
		}
		if e.Kind == remote.KindDir {
			dirs++
		} else {
			files++
		}
	}

	var preamble string
	switch {
	case len(removed) == 1 && dirs == 1:
		preamble = "Directory"
	case len(removed) == 1:
		preamble = "File"
	case files == 0:
		preamble = "Directories"
	default:
		preamble = "Files"
	}
	c.print(Info, fmt.Sprintf("%s '%s' successfully deleted from device", preamble, strings.Join(removed, ", ")))
}

// Mkdir creates a directory in the current board directory
func (c *Controller) Mkdir(name string) {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		if strings.TrimSpace(name) == "" {
			return
		}
		if err := c.remote.Mkdir(c.ctx, name); err != nil {
			c.printErr(err)
			return
		}
		c.print(Info, fmt.Sprintf("Directory '%s' created on device", c.remote.Join(strings.TrimSpace(name))))
	})
}

// Reset soft-resets the board and returns to its root directory
func (c *Controller) Reset() {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		if err := c.remote.Reset(c.ctx); err != nil {
			c.printErr(err)
			return
		}
		c.print(Info, "Device reset")
	})
}

// RunLocal runs the selected local files on the board, printing their output.
func (c *Controller) RunLocal(names []string) {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		files := filterKind(names, c.local.Kind, remote.KindFile)
		if len(files) == 0 {
			c.printErr(errors.ErrNoSelection)
			return
		}
		for _, name := range files {
			c.runFile(name, c.local.Join(name))
		}
	})
}

// RunRemote runs board files by fetching each into a temporary directory and
// running the copy.
func (c *Controller) RunRemote(names []string) {
	c.do(func() {
		if !c.requireDevice() {
			return
		}
		files := filterKind(names, c.remote.Kind, remote.KindFile)
		if len(files) == 0 {
			c.printErr(errors.ErrNoSelection)
			return
		}
		for _, name := range files {
			c.runRemoteFile(name)
		}
	})
}

func (c *Controller) runRemoteFile(name string) {
	dir, err := c.tempDir()
	if err != nil {
		c.printErr(errors.Wrap(err, "creating temporary directory"))
		return
	}
	defer os.RemoveAll(dir)

	done, errs := c.remote.Download(c.ctx, []string{name}, dir)
	if len(errs) > 0 {
		c.print(Error, fmt.Sprintf("Error fetching file from device: '%s'", toolMessage(errs[0])))
		return
	}
	if len(done) == 1 {
		c.runFile(name, filepath.Join(dir, name))
	}
}

func (c *Controller) runFile(name, file string) {
	out, err := c.dev.Run(c.ctx, file)
	if err != nil {
		c.printErr(err)
		return
	}
	c.print(Info, RunHeader(name))
	c.print(Info, strings.TrimRight(out, "\r\n"))
	c.print(Info, RunFooter)
}

// ClearLog empties the log pane
func (c *Controller) ClearLog() {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	view.ClearLog()
}

func toolMessage(err error) string {
	var toolErr *errors.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Message()
	}
	return err.Error()
}

func containsParent(names []string) bool {
	return contains(names, remote.Parent)
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func withoutParent(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != remote.Parent {
			out = append(out, n)
		}
	}
	return out
}

func filterKind(names []string, kindOf func(string) (remote.Kind, bool), want remote.Kind) []string {
	var out []string
	for _, n := range names {
		if k, ok := kindOf(n); ok && k == want {
			out = append(out, n)
		}
	}
	return out
}

func allOfKind(names []string, kindOf func(string) (remote.Kind, bool), want remote.Kind) bool {
	return len(filterKind(names, kindOf, want)) == len(names)
}

type nopView struct{}

func (nopView) Log(MsgKind, string)        {}
func (nopView) ClearLog()                  {}
func (nopView) Alert(string, func())       {}
func (nopView) Confirm(string, func(bool)) {}
func (nopView) Refresh()                   {}
