// Package scripts holds the MicroPython helpers that list the board's root
// directory in one round trip each.
package scripts

import (
	_ "embed"
	"os"
	"path/filepath"

	"ampyfm/internal/errors"
)

// Script file names
const (
	FilesScript       = "print_files.py"
	DirectoriesScript = "print_directories.py"
)

//go:embed print_files.py
var printFiles []byte

//go:embed print_directories.py
var printDirectories []byte

// Paths locates the materialized helper scripts
type Paths struct {
	Files       string
	Directories string
}

// Materialize writes both scripts into dir, since ampy run needs a local file.
func Materialize(dir string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, errors.NewFileError("cannot create script directory", dir, errors.FileAccessDenied, err)
	}
	p := Paths{
		Files:       filepath.Join(dir, FilesScript),
		Directories: filepath.Join(dir, DirectoriesScript),
	}
	if err := os.WriteFile(p.Files, printFiles, 0o644); err != nil {
		return Paths{}, errors.NewFileError("cannot write script", p.Files, errors.FileAccessDenied, err)
	}
	if err := os.WriteFile(p.Directories, printDirectories, 0o644); err != nil {
		return Paths{}, errors.NewFileError("cannot write script", p.Directories, errors.FileAccessDenied, err)
	}
	return p, nil
}

// MaterializeTemp writes the scripts into a fresh temporary directory. The
// caller removes it with os.RemoveAll when done.
func MaterializeTemp() (Paths, string, error) {
	dir, err := os.MkdirTemp("", "ampyfm-scripts-")
	if err != nil {
		return Paths{}, "", errors.Wrap(err, "creating script directory")
	}
	p, err := Materialize(dir)
	if err != nil {
		os.RemoveAll(dir)
		return Paths{}, "", err
	}
	return p, dir, nil
}
