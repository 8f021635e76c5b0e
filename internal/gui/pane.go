//go:build !nogui

package gui

import (
	"sync"

	"ampyfm/internal/remote"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// filePane is one file browser. Rows carry a check box for multi-selection;
// tapping a directory row enters it and tapping a file row toggles its check.
type filePane struct {
	title    string
	entries  func() []remote.Entry
	path     func() string
	activate func(name string) bool
	changed  func()

	// mu guards the listing state below. Reload runs on the monitor and
	// watcher goroutines while fyne reads rows on its own thread.
	mu       sync.Mutex
	items    []remote.Entry
	selected map[string]bool
	shown    string

	list      *widget.List
	pathLabel *widget.Label
}

func newFilePane(title string, entries func() []remote.Entry, path func() string,
	activate func(string) bool, changed func()) *filePane {
	p := &filePane{
		title:     title,
		entries:   entries,
		path:      path,
		activate:  activate,
		changed:   changed,
		selected:  map[string]bool{},
		pathLabel: widget.NewLabel(""),
	}
	p.pathLabel.Truncation = fyne.TextTruncateEllipsis

	p.list = widget.NewList(
		p.length,
		func() fyne.CanvasObject {
			return container.NewHBox(
				widget.NewCheck("", nil),
				widget.NewIcon(theme.FileIcon()),
				widget.NewLabel("template"),
			)
		},
		p.updateRow,
	)
	p.list.OnSelected = p.tapped
	return p
}

// Object returns the pane's widget tree
func (p *filePane) Object() fyne.CanvasObject {
	header := container.NewBorder(nil, nil, widget.NewLabelWithStyle(p.title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), nil, p.pathLabel)
	return container.NewBorder(header, nil, nil, nil, p.list)
}

func (p *filePane) length() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// item returns the entry at id and whether it is checked.
func (p *filePane) item(id widget.ListItemID) (remote.Entry, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id < 0 || id >= len(p.items) {
		return remote.Entry{}, false, false
	}
	e := p.items[id]
	return e, p.selected[e.Name], true
}

func (p *filePane) updateRow(id widget.ListItemID, o fyne.CanvasObject) {
	e, checked, ok := p.item(id)
	if !ok {
		return
	}
	row := o.(*fyne.Container)
	check := row.Objects[0].(*widget.Check)
	icon := row.Objects[1].(*widget.Icon)
	label := row.Objects[2].(*widget.Label)

	label.SetText(e.Name)
	switch e.Kind {
	case remote.KindParent:
		icon.SetResource(theme.MoveUpIcon())
	case remote.KindDir:
		icon.SetResource(theme.FolderIcon())
	default:
		icon.SetResource(theme.FileIcon())
	}

	// Rows are recycled; detach the handler before syncing the state.
	check.OnChanged = nil
	if e.Kind == remote.KindParent {
		check.SetChecked(false)
		check.Hide()
		return
	}
	check.Show()
	check.SetChecked(checked)
	name := e.Name
	check.OnChanged = func(on bool) {
		p.setSelected(name, on)
	}
}

func (p *filePane) tapped(id widget.ListItemID) {
	p.list.Unselect(id)
	e, checked, ok := p.item(id)
	if !ok {
		return
	}
	if e.IsDir() {
		p.activate(e.Name)
		return
	}
	p.setSelected(e.Name, !checked)
	p.list.RefreshItem(id)
}

func (p *filePane) setSelected(name string, on bool) {
	p.mu.Lock()
	if on {
		p.selected[name] = true
	} else {
		delete(p.selected, name)
	}
	p.mu.Unlock()
	if p.changed != nil {
		p.changed()
	}
}

// Selected returns the checked names in listing order
func (p *filePane) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.items {
		if p.selected[e.Name] {
			out = append(out, e.Name)
		}
	}
	return out
}

// Reload re-reads the listing. The selection survives only while the
// directory stays the same.
func (p *filePane) Reload() {
	path := p.path()
	items := p.entries()

	p.mu.Lock()
	p.items = items
	if path != p.shown {
		p.selected = map[string]bool{}
		p.shown = path
	} else {
		present := make(map[string]bool, len(p.items))
		for _, e := range p.items {
			present[e.Name] = true
		}
		for name := range p.selected {
			if !present[name] {
				delete(p.selected, name)
			}
		}
	}
	p.mu.Unlock()

	p.pathLabel.SetText(path)
	p.list.Refresh()
}
