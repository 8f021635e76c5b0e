// Package testutils holds fixtures shared by the package tests: a fake board
// behind the device runner and helpers for local directory trees.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates test files with specific content.
// Names may contain slashes; parent directories are created as needed.
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// CreateTestFilesWithDefault creates a small MicroPython project
func CreateTestFilesWithDefault(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"main.py":        "import blink\nblink.run()\n",
		"boot.py":        "# boot\n",
		"lib/blink.py":   "def run():\n    print('blink')\n",
		".git/HEAD":      "ref: refs/heads/main\n",
		"README.md":      "project\n",
		"data/notes.txt": "pin 2 is the led\n",
	}
	CreateTestFilesWithContent(t, dir, files)
}

// StripANSI drops the lipgloss styling from captured command output
func StripANSI(str string) string {
	return ansi.Strip(str)
}
