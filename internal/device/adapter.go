// Package device drives the ampy command-line tool. Every device operation is
// one synchronous child process; a non-zero exit is the only failure signal.
package device

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"

	"ampyfm/internal/config"
	"ampyfm/internal/errors"
	"ampyfm/internal/log"
)

// Tool subcommands
const (
	CmdLs    = "ls"
	CmdGet   = "get"
	CmdPut   = "put"
	CmdRm    = "rm"
	CmdRmdir = "rmdir"
	CmdMkdir = "mkdir"
	CmdReset = "reset"
	CmdRun   = "run"
)

// Settings are the connection parameters passed to every invocation.
type Settings struct {
	Port  string
	Baud  int
	Delay float64
}

// SettingsFromConfig extracts the connection settings from cfg
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{Port: cfg.Device.Port, Baud: cfg.Device.Baud, Delay: cfg.Device.Delay}
}

// Args renders the connection flags in the order ampy expects them.
func (s Settings) Args() []string {
	return []string{
		"--port", s.Port,
		"--baud", strconv.Itoa(s.Baud),
		"--delay", config.FormatDelay(s.Delay),
	}
}

// Option configures an Adapter
type Option func(*Adapter)

// WithTool overrides the executable name
func WithTool(name string) Option {
	return func(a *Adapter) { a.tool = name }
}

// WithRunner replaces the process runner
func WithRunner(r Runner) Option {
	return func(a *Adapter) { a.runner = r }
}

// WithErrorMarker sets the stderr marker used to extract messages
func WithErrorMarker(marker string) Option {
	return func(a *Adapter) { a.marker = marker }
}

// Adapter builds and runs ampy invocations for the current settings.
type Adapter struct {
	mu       sync.RWMutex
	settings Settings
	tool     string
	marker   string
	runner   Runner
}

// NewAdapter creates an adapter with the given settings.
func NewAdapter(settings Settings, opts ...Option) *Adapter {
	a := &Adapter{
		settings: settings,
		tool:     config.DefaultTool,
		marker:   errors.DefaultErrorMarker,
		runner:   ExecRunner{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Settings returns the current connection settings
func (a *Adapter) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SetSettings replaces the connection settings. The next command uses them.
func (a *Adapter) SetSettings(s Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// Tool returns the executable name
func (a *Adapter) Tool() string {
	return a.tool
}

// Available reports whether the tool can be found on PATH
func (a *Adapter) Available() bool {
	return LookPath(a.tool)
}

// Command builds the argument vector for sub, excluding the executable.
func (a *Adapter) Command(sub string, args ...string) []string {
	argv := a.Settings().Args()
	argv = append(argv, sub)
	return append(argv, args...)
}

// Exec runs sub synchronously. A non-zero exit returns the result together
// with a *errors.ToolError.
func (a *Adapter) Exec(ctx context.Context, sub string, args ...string) (Result, error) {
	argv := a.Command(sub, args...)
	log.LogWithFields(log.F("tool", a.tool), log.F("args", strings.Join(argv, " "))).Debug("exec")

	res := a.runner.Run(ctx, a.tool, argv)
	if !res.OK() {
		err := errors.NewToolError(sub, res.ExitCode, res.Stderr, a.marker)
		log.LogWithError(err).Debug("tool failed")
		return res, err
	}
	return res, nil
}

// List returns the base names of the entries in dir. ampy prints absolute
// paths, one per line.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	args := []string{}
	if dir != "" {
		args = append(args, dir)
	}
	res, err := a.Exec(ctx, CmdLs, args...)
	if err != nil {
		return nil, err
	}
	return splitNames(res.Stdout), nil
}

// IsDir probes p with ls; exit status zero means p is a directory.
func (a *Adapter) IsDir(ctx context.Context, p string) bool {
	_, err := a.Exec(ctx, CmdLs, p)
	return err == nil
}

// Get copies the remote file to local
func (a *Adapter) Get(ctx context.Context, remote, local string) error {
	_, err := a.Exec(ctx, CmdGet, remote, local)
	return err
}

// Put copies the local file to remote
func (a *Adapter) Put(ctx context.Context, local, remote string) error {
	_, err := a.Exec(ctx, CmdPut, local, remote)
	return err
}

// Remove deletes a remote file
func (a *Adapter) Remove(ctx context.Context, remote string) error {
	_, err := a.Exec(ctx, CmdRm, remote)
	return err
}

// Rmdir deletes a remote directory
func (a *Adapter) Rmdir(ctx context.Context, remote string) error {
	_, err := a.Exec(ctx, CmdRmdir, remote)
	return err
}

// Mkdir creates a remote directory
func (a *Adapter) Mkdir(ctx context.Context, remote string) error {
	_, err := a.Exec(ctx, CmdMkdir, remote)
	return err
}

// Reset soft-resets the board
func (a *Adapter) Reset(ctx context.Context) error {
	_, err := a.Exec(ctx, CmdReset)
	return err
}

// Run executes a local script on the board and returns its output.
func (a *Adapter) Run(ctx context.Context, localFile string) (string, error) {
	res, err := a.Exec(ctx, CmdRun, localFile)
	return res.Stdout, err
}

// splitNames trims each line, drops empty ones and keeps the base name.
func splitNames(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, path.Base(line))
	}
	return names
}

// SplitLines is splitNames without the base-name step, for script output.
func SplitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
