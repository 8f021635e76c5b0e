//go:build !nogui

package gui

import (
	"strings"
	"sync"

	"ampyfm/internal/controller"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// logPane is the read-only terminal under the file panes.
type logPane struct {
	mu     sync.Mutex
	text   *widget.RichText
	scroll *container.Scroll
}

func newLogPane() *logPane {
	l := &logPane{text: widget.NewRichText()}
	l.text.Wrapping = fyne.TextWrapWord
	l.scroll = container.NewVScroll(l.text)
	return l
}

// Object returns the pane with its "Clear terminal" button
func (l *logPane) Object(clear func()) fyne.CanvasObject {
	clearButton := widget.NewButtonWithIcon("Clear terminal", theme.ContentClearIcon(), clear)
	return container.NewBorder(nil, container.NewHBox(clearButton), nil, nil, l.scroll)
}

func colorFor(kind controller.MsgKind) fyne.ThemeColorName {
	switch kind {
	case controller.Warning:
		return theme.ColorNameWarning
	case controller.Error:
		return theme.ColorNameError
	}
	return theme.ColorNameSuccess
}

// Append adds one ">>> " prefixed line per line of text, coloured by kind.
func (l *logPane) Append(kind controller.MsgKind, text string) {
	l.mu.Lock()
	for _, line := range strings.Split(text, "\n") {
		l.text.Segments = append(l.text.Segments, &widget.TextSegment{
			Text: ">>> " + line,
			Style: widget.RichTextStyle{
				ColorName: colorFor(kind),
				TextStyle: fyne.TextStyle{Monospace: true},
			},
		})
	}
	l.mu.Unlock()
	l.text.Refresh()
	l.scroll.ScrollToBottom()
}

// Clear removes every line
func (l *logPane) Clear() {
	l.mu.Lock()
	l.text.Segments = nil
	l.mu.Unlock()
	l.text.Refresh()
}

// Lines returns the plain text of every line
func (l *logPane) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.text.Segments))
	for _, s := range l.text.Segments {
		out = append(out, s.Textual())
	}
	return out
}
