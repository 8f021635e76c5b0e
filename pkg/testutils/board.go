package testutils

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ampyfm/internal/device"
)

// Call is one recorded tool invocation
type Call struct {
	Name string
	Args []string
}

// Sub returns the subcommand, which follows the six connection flag tokens.
func (c Call) Sub() string {
	if len(c.Args) < 7 {
		return ""
	}
	return c.Args[6]
}

// Operands returns the subcommand arguments
func (c Call) Operands() []string {
	if len(c.Args) < 7 {
		return nil
	}
	return c.Args[7:]
}

type failure struct {
	sub, arg string
	stderr   string
}

// FakeBoard is a device.Runner that answers ampy invocations from an in-memory
// board filesystem. Paths are absolute with "/" as root.
type FakeBoard struct {
	mu        sync.Mutex
	dirs      map[string]bool
	files     map[string]string
	calls     []Call
	failures  []failure
	RunOutput string
	Resets    int
}

var _ device.Runner = (*FakeBoard)(nil)

// NewFakeBoard creates an empty board holding only the root directory.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		dirs:  map[string]bool{"/": true},
		files: map[string]string{},
	}
}

// AddDir creates dir and its parents
func (b *FakeBoard) AddDir(dir string) *FakeBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addDir(clean(dir))
	return b
}

func (b *FakeBoard) addDir(dir string) {
	for d := dir; d != "/"; d = path.Dir(d) {
		b.dirs[d] = true
	}
}

// AddFile creates a file with content, along with its parent directories.
func (b *FakeBoard) AddFile(file, content string) *FakeBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	file = clean(file)
	b.addDir(path.Dir(file))
	b.files[file] = content
	return b
}

// Fail makes every sub invocation whose first operand is arg exit 1 with
// stderr. An empty arg matches any operand.
func (b *FakeBoard) Fail(sub, arg, stderr string) *FakeBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{sub: sub, arg: arg, stderr: stderr})
	return b
}

// ClearFailures removes every failure set with Fail
func (b *FakeBoard) ClearFailures() {
	b.mu.Lock()
	b.failures = nil
	b.mu.Unlock()
}

// HasDir reports whether dir exists on the board
func (b *FakeBoard) HasDir(dir string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirs[clean(dir)]
}

// HasFile reports whether file exists on the board
func (b *FakeBoard) HasFile(file string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[clean(file)]
	return ok
}

// File returns the content of file
func (b *FakeBoard) File(file string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files[clean(file)]
}

// Calls returns a copy of the recorded invocations
func (b *FakeBoard) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsFor returns the invocations of sub
func (b *FakeBoard) CallsFor(sub string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Sub() == sub {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets the recorded invocations
func (b *FakeBoard) ResetCalls() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

// Run implements device.Runner
func (b *FakeBoard) Run(ctx context.Context, name string, args []string) device.Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	call := Call{Name: name, Args: append([]string(nil), args...)}
	b.calls = append(b.calls, call)

	sub, ops := call.Sub(), call.Operands()
	first := ""
	if len(ops) > 0 {
		first = ops[0]
	}
	for _, f := range b.failures {
		if f.sub == sub && (f.arg == "" || f.arg == first) {
			return device.Result{ExitCode: 1, Stderr: f.stderr}
		}
	}

	switch sub {
	case device.CmdLs:
		return b.ls(first)
	case device.CmdRun:
		return b.run(first)
	case device.CmdGet:
		return b.get(ops)
	case device.CmdPut:
		return b.put(ops)
	case device.CmdRm:
		p := clean(first)
		if _, ok := b.files[p]; !ok {
			return runtimeError("No such file: %s", p)
		}
		delete(b.files, p)
		return device.Result{}
	case device.CmdRmdir:
		p := clean(first)
		if p == "/" || !b.dirs[p] {
			return runtimeError("No such directory: %s", p)
		}
		b.removeTree(p)
		return device.Result{}
	case device.CmdMkdir:
		p := clean(first)
		if b.dirs[p] {
			return runtimeError("Directory already exists: %s", p)
		}
		if !b.dirs[path.Dir(p)] {
			return runtimeError("Failed to find the directory: %s", path.Dir(p))
		}
		b.dirs[p] = true
		return device.Result{}
	case device.CmdReset:
		b.Resets++
		return device.Result{}
	}
	return device.Result{ExitCode: 2, Stderr: fmt.Sprintf("Error: No such command '%s'.", sub)}
}

func (b *FakeBoard) ls(dir string) device.Result {
	dir = clean(dir)
	if !b.dirs[dir] {
		return runtimeError("Failed to find the directory: %s", dir)
	}
	return device.Result{Stdout: joinLines(b.children(dir))}
}

func (b *FakeBoard) run(local string) device.Result {
	switch filepath.Base(local) {
	case "print_files.py", "print_directories.py":
		wantDir := filepath.Base(local) == "print_directories.py"
		var out []string
		for _, child := range b.children("/") {
			if b.dirs[child] == wantDir {
				out = append(out, path.Base(child))
			}
		}
		return device.Result{Stdout: joinLines(out)}
	}
	if _, err := os.Stat(local); err != nil {
		return device.Result{ExitCode: 1, Stderr: fmt.Sprintf("Error: Invalid value: Path '%s' does not exist.", local)}
	}
	return device.Result{Stdout: b.RunOutput}
}

func (b *FakeBoard) get(ops []string) device.Result {
	if len(ops) == 0 {
		return device.Result{ExitCode: 2, Stderr: "Error: Missing argument"}
	}
	content, ok := b.files[clean(ops[0])]
	if !ok {
		return runtimeError("No such file: %s", clean(ops[0]))
	}
	if len(ops) < 2 {
		return device.Result{Stdout: content}
	}
	if err := os.WriteFile(ops[1], []byte(content), 0o644); err != nil {
		return device.Result{ExitCode: 1, Stderr: err.Error()}
	}
	return device.Result{}
}

func (b *FakeBoard) put(ops []string) device.Result {
	if len(ops) == 0 {
		return device.Result{ExitCode: 2, Stderr: "Error: Missing argument"}
	}
	data, err := os.ReadFile(ops[0])
	if err != nil {
		return device.Result{ExitCode: 2, Stderr: fmt.Sprintf("Error: Invalid value: Path '%s' does not exist.", ops[0])}
	}
	dest := "/" + filepath.Base(ops[0])
	if len(ops) > 1 {
		dest = clean(ops[1])
	}
	if !b.dirs[path.Dir(dest)] {
		return runtimeError("Failed to find the directory: %s", path.Dir(dest))
	}
	b.files[dest] = string(data)
	return device.Result{}
}

// children returns the absolute paths directly below dir, sorted.
func (b *FakeBoard) children(dir string) []string {
	var out []string
	for d := range b.dirs {
		if d != "/" && path.Dir(d) == dir {
			out = append(out, d)
		}
	}
	for f := range b.files {
		if path.Dir(f) == dir {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func (b *FakeBoard) removeTree(dir string) {
	prefix := dir + "/"
	for d := range b.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(b.dirs, d)
		}
	}
	for f := range b.files {
		if strings.HasPrefix(f, prefix) {
			delete(b.files, f)
		}
	}
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func runtimeError(format string, args ...interface{}) device.Result {
	return device.Result{
		ExitCode: 1,
		Stderr:   "Traceback (most recent call last):\n  File \"ampy/files.py\"\nRuntimeError: " + fmt.Sprintf(format, args...) + "\n",
	}
}
