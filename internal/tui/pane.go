package tui

import (
	"strings"

	"ampyfm/internal/remote"

	"github.com/charmbracelet/lipgloss"
)

// pane is one file listing with a cursor and a multi-selection.
type pane struct {
	title    string
	entries  []remote.Entry
	path     string
	cursor   int
	offset   int
	selected map[string]bool
}

func newPane(title string) *pane {
	return &pane{title: title, selected: map[string]bool{}}
}

// reload replaces the listing. The selection and cursor are kept only while
// the directory stays the same.
func (p *pane) reload(entries []remote.Entry, path string) {
	if path != p.path {
		p.selected = map[string]bool{}
		p.cursor, p.offset = 0, 0
		p.path = path
	} else {
		present := make(map[string]bool, len(entries))
		for _, e := range entries {
			present[e.Name] = true
		}
		for name := range p.selected {
			if !present[name] {
				delete(p.selected, name)
			}
		}
	}
	p.entries = entries
	p.clamp()
}

func (p *pane) clamp() {
	if p.cursor >= len(p.entries) {
		p.cursor = len(p.entries) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *pane) move(delta int) {
	p.cursor += delta
	p.clamp()
}

// current returns the entry under the cursor
func (p *pane) current() (remote.Entry, bool) {
	if p.cursor < 0 || p.cursor >= len(p.entries) {
		return remote.Entry{}, false
	}
	return p.entries[p.cursor], true
}

// toggle flips the selection of the entry under the cursor. The parent
// entry cannot be selected.
func (p *pane) toggle() {
	e, ok := p.current()
	if !ok || e.Kind == remote.KindParent {
		return
	}
	if p.selected[e.Name] {
		delete(p.selected, e.Name)
	} else {
		p.selected[e.Name] = true
	}
}

// Selected returns the selected names in listing order
func (p *pane) Selected() []string {
	var out []string
	for _, e := range p.entries {
		if p.selected[e.Name] {
			out = append(out, e.Name)
		}
	}
	return out
}

// targets is the selection, or the entry under the cursor when nothing is
// selected.
func (p *pane) targets() []string {
	if sel := p.Selected(); len(sel) > 0 {
		return sel
	}
	if e, ok := p.current(); ok && e.Kind != remote.KindParent {
		return []string{e.Name}
	}
	return nil
}

func (p *pane) view(width, rows int, focused bool) string {
	if rows < 1 {
		rows = 1
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+rows {
		p.offset = p.cursor - rows + 1
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(p.title) + " " + PathStyle.Render(p.path) + "\n")
	end := p.offset + rows
	if end > len(p.entries) {
		end = len(p.entries)
	}
	for i := p.offset; i < end; i++ {
		b.WriteString(p.row(i, focused))
		b.WriteString("\n")
	}
	for i := end - p.offset; i < rows; i++ {
		b.WriteString("\n")
	}

	style := PaneStyle
	if focused {
		style = FocusedPaneStyle
	}
	return style.Width(width).Render(strings.TrimSuffix(b.String(), "\n"))
}

func (p *pane) row(i int, focused bool) string {
	e := p.entries[i]
	mark := "[ ]"
	switch {
	case e.Kind == remote.KindParent:
		mark = "   "
	case p.selected[e.Name]:
		mark = "[x]"
	}

	name := e.Name
	var style lipgloss.Style
	switch {
	case e.Kind == remote.KindFile:
		style = FileStyle
	default:
		style = DirectoryStyle
		name += "/"
	}
	if p.selected[e.Name] {
		style = SelectedStyle
	}

	line := mark + " " + style.Render(name)
	if focused && i == p.cursor {
		return CursorStyle.Render(">") + " " + line
	}
	return "  " + line
}
