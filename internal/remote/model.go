// Package remote keeps the listing of the board directory currently shown and
// applies file operations to it.
package remote

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"ampyfm/internal/device"
	"ampyfm/internal/device/scripts"
	"ampyfm/internal/errors"
	"ampyfm/internal/log"
)

// Root is the path of the board's top directory.
const Root = ""

// Parent is the synthetic first entry of every listing.
const Parent = ".."

// Kind classifies a listing entry
type Kind int

const (
	KindParent Kind = iota
	KindDir
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindParent:
		return "parent"
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// Entry is one rendered row
type Entry struct {
	Name string
	Kind Kind
}

// IsDir reports whether the entry can be entered
func (e Entry) IsDir() bool {
	return e.Kind == KindDir || e.Kind == KindParent
}

// Device is the subset of the adapter the model drives.
type Device interface {
	List(ctx context.Context, dir string) ([]string, error)
	IsDir(ctx context.Context, p string) bool
	Exec(ctx context.Context, sub string, args ...string) (device.Result, error)
	Get(ctx context.Context, remote, local string) error
	Put(ctx context.Context, local, remote string) error
	Remove(ctx context.Context, remote string) error
	Rmdir(ctx context.Context, remote string) error
	Mkdir(ctx context.Context, remote string) error
	Reset(ctx context.Context) error
}

// Model is the board-side directory listing.
type Model struct {
	dev     Device
	scripts scripts.Paths
	path    string
	dirs    map[string]struct{}
	files   map[string]struct{}
}

// NewModel creates an empty model at the root. s locates the helper scripts
// used to list the root directory.
func NewModel(dev Device, s scripts.Paths) *Model {
	return &Model{
		dev:     dev,
		scripts: s,
		path:    Root,
		dirs:    map[string]struct{}{},
		files:   map[string]struct{}{},
	}
}

// Path returns the current directory
func (m *Model) Path() string {
	return m.path
}

// DisplayPath is Path with the root shown as "/"
func (m *Model) DisplayPath() string {
	if m.path == Root {
		return "/"
	}
	return m.path
}

// Join returns the board path of name inside the current directory.
func (m *Model) Join(name string) string {
	return m.path + "/" + name
}

// Dirs returns the directory names, sorted
func (m *Model) Dirs() []string {
	return sortedNames(m.dirs)
}

// Files returns the file names, sorted
func (m *Model) Files() []string {
	return sortedNames(m.files)
}

// Kind returns the kind of name in the current listing
func (m *Model) Kind(name string) (Kind, bool) {
	if name == Parent {
		return KindParent, true
	}
	if _, ok := m.dirs[name]; ok {
		return KindDir, true
	}
	if _, ok := m.files[name]; ok {
		return KindFile, true
	}
	return 0, false
}

// Entries renders the listing: "..", then directories, then files.
func (m *Model) Entries() []Entry {
	entries := make([]Entry, 0, 1+len(m.dirs)+len(m.files))
	entries = append(entries, Entry{Name: Parent, Kind: KindParent})
	for _, d := range m.Dirs() {
		entries = append(entries, Entry{Name: d, Kind: KindDir})
	}
	for _, f := range m.Files() {
		entries = append(entries, Entry{Name: f, Kind: KindFile})
	}
	return entries
}

// Clear empties the listing, e.g. when the device went away.
func (m *Model) Clear() {
	m.dirs = map[string]struct{}{}
	m.files = map[string]struct{}{}
}

// Refresh rebuilds the listing of the current directory. At the root the two
// helper scripts return the partition directly; elsewhere each entry is probed
// with one ls. On failure the previous listing is kept.
func (m *Model) Refresh(ctx context.Context) error {
	var (
		dirs, files map[string]struct{}
		err         error
	)
	if m.path == Root {
		dirs, files, err = m.listRoot(ctx)
	} else {
		dirs, files, err = m.listDir(ctx, m.path)
	}
	if err != nil {
		return err
	}

	m.dirs, m.files = dirs, files
	log.LogWithFields(log.F("path", m.DisplayPath()), log.F("dirs", len(dirs)), log.F("files", len(files))).
		Debug("remote listing refreshed")
	return nil
}

func (m *Model) listRoot(ctx context.Context) (map[string]struct{}, map[string]struct{}, error) {
	fileOut, err := m.dev.Exec(ctx, device.CmdRun, m.scripts.Files)
	if err != nil {
		return nil, nil, err
	}
	dirOut, err := m.dev.Exec(ctx, device.CmdRun, m.scripts.Directories)
	if err != nil {
		return nil, nil, err
	}
	return toSet(device.SplitLines(dirOut.Stdout)), toSet(device.SplitLines(fileOut.Stdout)), nil
}

func (m *Model) listDir(ctx context.Context, dir string) (map[string]struct{}, map[string]struct{}, error) {
	names, err := m.dev.List(ctx, dir)
	if err != nil {
		return nil, nil, err
	}
	dirs, files := map[string]struct{}{}, map[string]struct{}{}
	for _, name := range names {
		if m.dev.IsDir(ctx, dir+"/"+name) {
			dirs[name] = struct{}{}
		} else {
			files[name] = struct{}{}
		}
	}
	return dirs, files, nil
}

// Enter descends into name, or goes up for "..".
func (m *Model) Enter(ctx context.Context, name string) error {
	if name == Parent {
		return m.Up(ctx)
	}
	if _, ok := m.dirs[name]; !ok {
		return errors.NewSelectionError("not a directory: " + name)
	}
	return m.navigate(ctx, m.Join(name))
}

// Up moves to the parent directory. The parent of "/a" is the root.
func (m *Model) Up(ctx context.Context) error {
	return m.navigate(ctx, parentOf(m.path))
}

// SetPath jumps to p and refreshes
func (m *Model) SetPath(ctx context.Context, p string) error {
	return m.navigate(ctx, Normalize(p))
}

func (m *Model) navigate(ctx context.Context, p string) error {
	prev := m.path
	m.path = p
	if err := m.Refresh(ctx); err != nil {
		m.path = prev
		return err
	}
	return nil
}

// Mkdir creates name in the current directory and adds it to the listing.
func (m *Model) Mkdir(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == Parent || strings.Contains(name, "/") {
		return errors.NewSelectionError("invalid directory name")
	}
	if err := m.dev.Mkdir(ctx, m.Join(name)); err != nil {
		return err
	}
	m.dirs[name] = struct{}{}
	return nil
}

// Remove deletes each entry with rm or rmdir. Failures are collected and the
// remaining entries are still processed. It returns the removed names.
func (m *Model) Remove(ctx context.Context, entries []Entry) ([]string, []error) {
	var removed []string
	var errs []error
	for _, e := range entries {
		var err error
		switch e.Kind {
		case KindFile:
			if err = m.dev.Remove(ctx, m.Join(e.Name)); err == nil {
				delete(m.files, e.Name)
			}
		case KindDir:
			if err = m.dev.Rmdir(ctx, m.Join(e.Name)); err == nil {
				delete(m.dirs, e.Name)
			}
		default:
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, e.Name)
	}
	return removed, errs
}

// Upload puts each entry of localDir into the current directory; ampy copies
// directories recursively. The first failure stops the loop and the names
// uploaded before it are returned.
func (m *Model) Upload(ctx context.Context, localDir string, names []string) ([]string, error) {
	var done []string
	for _, name := range names {
		src := filepath.Join(localDir, name)
		if err := m.dev.Put(ctx, src, m.Join(name)); err != nil {
			return done, err
		}
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			m.dirs[name] = struct{}{}
		} else {
			m.files[name] = struct{}{}
		}
		done = append(done, name)
	}
	return done, nil
}

// Download gets each remote file into localDir. Failures are collected and the
// remaining files are still fetched.
func (m *Model) Download(ctx context.Context, names []string, localDir string) ([]string, []error) {
	var done []string
	var errs []error
	for _, name := range names {
		if err := m.dev.Get(ctx, m.Join(name), filepath.Join(localDir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		done = append(done, name)
	}
	return done, errs
}

// Reset soft-resets the board and lists its root.
func (m *Model) Reset(ctx context.Context) error {
	if err := m.dev.Reset(ctx); err != nil {
		return err
	}
	m.path = Root
	if err := m.Refresh(ctx); err != nil {
		// The old listing belongs to another directory.
		m.Clear()
		return err
	}
	return nil
}

// Normalize maps a user supplied board path to the model's form: "" for the
// root, otherwise a cleaned absolute path without trailing slash.
func Normalize(p string) string {
	p = path.Clean("/" + strings.TrimSpace(p))
	if p == "/" {
		return Root
	}
	return p
}

func parentOf(p string) string {
	if p == Root {
		return Root
	}
	return Normalize(path.Dir(p))
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	SortNames(names)
	return names
}

// SortNames sorts case-insensitively with the original case as tie-break.
func SortNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ui, uj := strings.ToUpper(names[i]), strings.ToUpper(names[j])
		if ui != uj {
			return ui < uj
		}
		return names[i] < names[j]
	})
}
