// Package local lists the host directory shown next to the board listing.
package local

import (
	"os"
	"path/filepath"
	"strings"

	"ampyfm/internal/errors"
	"ampyfm/internal/log"
	"ampyfm/internal/remote"

	"github.com/gobwas/glob"
)

// Entry and its kinds are shared with the board listing so both panes render
// the same way.
type (
	Entry = remote.Entry
	Kind  = remote.Kind
)

// Parent is the synthetic first entry of every listing
const Parent = remote.Parent

// Ignore matches entry names hidden from the listing, case-insensitively.
type Ignore struct {
	patterns []glob.Glob
}

// NewIgnore compiles the patterns. Each one is a glob matched against the
// lowercased entry name.
func NewIgnore(patterns []string) (*Ignore, error) {
	ig := &Ignore{}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, errors.NewConfigError("invalid ignore pattern", p, errors.InvalidConfig, err)
		}
		ig.patterns = append(ig.patterns, g)
	}
	return ig, nil
}

// Match reports whether name is ignored
func (ig *Ignore) Match(name string) bool {
	if ig == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, g := range ig.patterns {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// Model is the host-side directory listing.
type Model struct {
	path   string
	ignore *Ignore
	dirs   []string
	files  []string
}

// NewModel creates a model at dir. An empty dir means the working directory.
func NewModel(dir string, ignore *Ignore) (*Model, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewFileError("invalid directory", dir, errors.InvalidPath, err)
	}
	return &Model{path: abs, ignore: ignore}, nil
}

// Path returns the current directory
func (m *Model) Path() string {
	return m.path
}

// Join returns the host path of name in the current directory
func (m *Model) Join(name string) string {
	return filepath.Join(m.path, name)
}

// Dirs returns the sorted directory names
func (m *Model) Dirs() []string {
	return append([]string(nil), m.dirs...)
}

// Files returns the sorted file names
func (m *Model) Files() []string {
	return append([]string(nil), m.files...)
}

// IsDir reports whether name is a directory of the current listing
func (m *Model) IsDir(name string) bool {
	if name == Parent {
		return true
	}
	for _, d := range m.dirs {
		if d == name {
			return true
		}
	}
	return false
}

// Kind returns the kind of name in the current listing
func (m *Model) Kind(name string) (Kind, bool) {
	if name == Parent {
		return remote.KindParent, true
	}
	if m.IsDir(name) {
		return remote.KindDir, true
	}
	for _, f := range m.files {
		if f == name {
			return remote.KindFile, true
		}
	}
	return 0, false
}

// Entries renders the listing: "..", then directories, then files.
func (m *Model) Entries() []Entry {
	entries := make([]Entry, 0, 1+len(m.dirs)+len(m.files))
	entries = append(entries, Entry{Name: Parent, Kind: remote.KindParent})
	for _, d := range m.dirs {
		entries = append(entries, Entry{Name: d, Kind: remote.KindDir})
	}
	for _, f := range m.files {
		entries = append(entries, Entry{Name: f, Kind: remote.KindFile})
	}
	return entries
}

// Refresh re-reads the current directory.
func (m *Model) Refresh() error {
	dirs, files, err := m.read(m.path)
	if err != nil {
		return err
	}
	m.dirs, m.files = dirs, files
	return nil
}

// SetPath switches to dir and reads it. On failure the model is unchanged.
func (m *Model) SetPath(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.NewFileError("invalid directory", dir, errors.InvalidPath, err)
	}
	dirs, files, err := m.read(abs)
	if err != nil {
		return err
	}
	m.path, m.dirs, m.files = abs, dirs, files
	log.LogWithFields(log.F("path", abs)).Debug("local directory changed")
	return nil
}

// Enter descends into name, or goes up for "..".
func (m *Model) Enter(name string) error {
	if name == Parent {
		return m.Up()
	}
	if !m.IsDir(name) {
		return errors.NewSelectionError("not a directory: " + name)
	}
	return m.SetPath(m.Join(name))
}

// Up moves to the parent directory
func (m *Model) Up() error {
	return m.SetPath(filepath.Dir(m.path))
}

func (m *Model) read(dir string) ([]string, []string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		kind := errors.FileAccessDenied
		if os.IsNotExist(err) {
			kind = errors.FileNotFound
		}
		return nil, nil, errors.NewFileError("cannot read directory", dir, kind, err)
	}

	var dirs, files []string
	for _, de := range des {
		name := de.Name()
		if m.ignore.Match(name) {
			continue
		}
		if isDir(dir, de) {
			dirs = append(dirs, name)
		} else {
			files = append(files, name)
		}
	}
	remote.SortNames(dirs)
	remote.SortNames(files)
	return dirs, files, nil
}

// isDir follows symlinks so linked directories can be entered.
func isDir(dir string, de os.DirEntry) bool {
	if de.IsDir() {
		return true
	}
	if de.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, de.Name()))
	return err == nil && info.IsDir()
}
