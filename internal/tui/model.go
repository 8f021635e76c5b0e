package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ampyfm/internal/config"
	"ampyfm/internal/controller"
	"ampyfm/internal/local"
	"ampyfm/internal/log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeNormal mode = iota
	modeInput
	modeConfirm
	modeAlert
)

type side int

const (
	localSide side = iota
	remoteSide
)

type inputKind int

const (
	inputMkdir inputKind = iota
	inputLocalDir
	inputPort
	inputBaud
	inputDelay
)

type tickMsg time.Time

type localChangedMsg struct{}

type logLine struct {
	kind controller.MsgKind
	text string
}

// Options tune the terminal interface
type Options struct {
	Title string
	// MonitorInterval is the connection re-check period; zero disables it.
	MonitorInterval time.Duration
	// Watch refreshes the local pane when its directory changes on disk.
	Watch bool
	// LogOutput receives log lines while the interface owns the terminal.
	// When nil they are dropped, or written to DebugLogFile in debug mode.
	LogOutput io.Writer
}

// DebugLogFile is where debug lines go while the terminal interface runs.
func DebugLogFile() string {
	return filepath.Join(os.TempDir(), "ampyfm-debug.log")
}

// redirectLogs keeps log lines off the alternate screen until restore runs.
func redirectLogs(opts Options) (restore func()) {
	switch {
	case opts.LogOutput != nil:
		return log.Redirect(log.WithOutput(opts.LogOutput))
	case log.IsDebug():
		return log.Redirect(log.WithOutput(io.Discard), log.WithFile(DebugLogFile()))
	}
	return log.Redirect(log.WithOutput(io.Discard))
}

// Model is the bubbletea model. It also implements controller.View; the
// controller only calls back into it from inside Update, so no locking is
// needed.
type Model struct {
	ctrl *controller.Controller
	opts Options

	keys    keyMap
	help    help.Model
	input   textinput.Model
	logView viewport.Model

	panes [2]*pane
	focus side
	mode  mode

	inputFor  inputKind
	prompt    string
	answer    func(bool)
	alertDone func()
	status    string

	lines    []logLine
	width    int
	height   int
	showHelp bool

	watcher *local.Watcher
}

// New builds the model and attaches it to ctrl as its view.
func New(ctrl *controller.Controller, opts Options) *Model {
	if opts.Title == "" {
		opts.Title = "ampyfm"
	}
	m := &Model{
		ctrl:    ctrl,
		opts:    opts,
		keys:    defaultKeys(),
		help:    help.New(),
		input:   textinput.New(),
		logView: viewport.New(80, 6),
		panes:   [2]*pane{newPane("Local"), newPane("Remote")},
		width:   100,
		height:  30,
	}
	m.input.CharLimit = 256
	ctrl.SetView(m)
	m.reload()
	m.resize()
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.opts.MonitorInterval > 0 {
		cmds = append(cmds, m.tick())
	}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForChange())
	}
	return tea.Batch(cmds...)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.MonitorInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitForChange() tea.Cmd {
	w := m.watcher
	return func() tea.Msg {
		select {
		case <-w.Changed():
			return localChangedMsg{}
		case <-w.Done():
			return nil
		}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tickMsg:
		m.ctrl.Tick()
		return m, m.tick()
	case localChangedMsg:
		m.ctrl.RefreshLocal()
		return m, m.waitForChange()
	case tea.KeyMsg:
		switch m.mode {
		case modeAlert:
			return m.handleAlertKeys(msg)
		case modeConfirm:
			return m.handleConfirmKeys(msg)
		case modeInput:
			return m.handleInputKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) focused() *pane {
	return m.panes[m.focus]
}

func (m *Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	p := m.focused()
	buttons := m.ctrl.Buttons(m.panes[localSide].targets(), m.panes[remoteSide].targets())

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resize()
	case key.Matches(msg, m.keys.Switch):
		m.focus = 1 - m.focus
	case key.Matches(msg, m.keys.Up):
		p.move(-1)
	case key.Matches(msg, m.keys.Down):
		p.move(1)
	case key.Matches(msg, m.keys.Toggle):
		p.toggle()
		p.move(1)
	case key.Matches(msg, m.keys.Open):
		if e, ok := p.current(); ok {
			m.activate(e.Name)
		}
	case key.Matches(msg, m.keys.Back):
		m.activate("..")
	case key.Matches(msg, m.keys.Put):
		if !buttons.Put {
			return m.unavailable("put")
		}
		m.ctrl.Put(m.panes[localSide].targets())
	case key.Matches(msg, m.keys.Get):
		if !buttons.Get {
			return m.unavailable("get")
		}
		m.ctrl.Get(m.panes[remoteSide].targets())
	case key.Matches(msg, m.keys.Delete):
		if !buttons.Delete {
			return m.unavailable("delete")
		}
		m.ctrl.Delete(m.panes[remoteSide].targets())
	case key.Matches(msg, m.keys.Run):
		if m.focus == localSide {
			if !buttons.RunLocal {
				return m.unavailable("run")
			}
			m.ctrl.RunLocal(p.targets())
		} else {
			if !buttons.RunRemote {
				return m.unavailable("run")
			}
			m.ctrl.RunRemote(p.targets())
		}
	case key.Matches(msg, m.keys.Reset):
		if !buttons.Reset {
			return m.unavailable("reset")
		}
		m.ctrl.Reset()
	case key.Matches(msg, m.keys.Refresh):
		if m.focus == localSide {
			m.ctrl.RefreshLocal()
		} else {
			if !buttons.Refresh {
				return m.unavailable("refresh")
			}
			m.ctrl.RefreshRemote()
		}
	case key.Matches(msg, m.keys.Connect):
		m.ctrl.Connect()
	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearLog()
	case key.Matches(msg, m.keys.Mkdir):
		if !buttons.Mkdir {
			return m.unavailable("mkdir")
		}
		return m, m.ask(inputMkdir, "New remote directory: ", "")
	case key.Matches(msg, m.keys.LocalDir):
		return m, m.ask(inputLocalDir, "Local directory: ", m.ctrl.LocalPath())
	case key.Matches(msg, m.keys.Port):
		return m, m.ask(inputPort, "Port: ", m.ctrl.Settings().Port)
	case key.Matches(msg, m.keys.Baud):
		return m, m.ask(inputBaud, "Baud rate: ", strconv.Itoa(m.ctrl.Settings().Baud))
	case key.Matches(msg, m.keys.Delay):
		return m, m.ask(inputDelay, "Delay (s): ", config.FormatDelay(m.ctrl.Settings().Delay))
	default:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) unavailable(action string) (tea.Model, tea.Cmd) {
	if !m.ctrl.Connected() {
		m.status = fmt.Sprintf("%s: not connected, press c to connect", action)
	} else {
		m.status = fmt.Sprintf("%s: not available for this selection", action)
	}
	return m, nil
}

func (m *Model) activate(name string) {
	if m.focus == localSide {
		m.ctrl.ActivateLocal(name)
		return
	}
	if !m.ctrl.Connected() {
		return
	}
	m.ctrl.ActivateRemote(name)
}

func (m *Model) ask(kind inputKind, prompt, value string) tea.Cmd {
	m.mode = modeInput
	m.inputFor = kind
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		kind := m.inputFor
		m.closeInput()
		m.submit(kind, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) submit(kind inputKind, value string) {
	switch kind {
	case inputMkdir:
		if strings.TrimSpace(value) != "" {
			m.ctrl.Mkdir(value)
		}
	case inputLocalDir:
		if strings.TrimSpace(value) != "" {
			m.ctrl.ChooseLocalDir(strings.TrimSpace(value))
		}
	case inputPort:
		m.ctrl.SelectPort(value)
	case inputBaud:
		baud, err := config.ParseBaud(value)
		if err == nil {
			err = m.ctrl.SetBaud(baud)
		}
		if err != nil {
			m.status = err.Error()
		}
	case inputDelay:
		delay, err := config.ParseDelay(value)
		if err == nil {
			err = m.ctrl.SetDelay(delay)
		}
		if err != nil {
			m.status = err.Error()
		}
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch strings.ToLower(msg.String()) {
	case "y":
		yes = true
	case "n", "esc", "q":
	default:
		return m, nil
	}
	answer := m.answer
	m.mode, m.prompt, m.answer = modeNormal, "", nil
	if answer != nil {
		answer(yes)
	}
	return m, nil
}

func (m *Model) handleAlertKeys(tea.KeyMsg) (tea.Model, tea.Cmd) {
	done := m.alertDone
	m.mode, m.prompt, m.alertDone = modeNormal, "", nil
	if done != nil {
		done()
	}
	return m, nil
}

// controller.View

// Log appends a line to the log viewport
func (m *Model) Log(kind controller.MsgKind, text string) {
	for _, line := range strings.Split(text, "\n") {
		m.lines = append(m.lines, logLine{kind: kind, text: line})
	}
	m.renderLog()
}

// ClearLog empties the log viewport
func (m *Model) ClearLog() {
	m.lines = nil
	m.renderLog()
}

// Alert shows message until a key is pressed
func (m *Model) Alert(message string, done func()) {
	m.mode = modeAlert
	m.prompt = message
	m.alertDone = done
	m.input.Blur()
}

// Confirm asks a y/n question; answer runs when the user replies.
func (m *Model) Confirm(message string, answer func(bool)) {
	m.mode = modeConfirm
	m.prompt = message
	m.answer = answer
}

// Refresh re-reads both listings
func (m *Model) Refresh() {
	m.reload()
}

func (m *Model) reload() {
	m.panes[localSide].reload(m.ctrl.LocalEntries(), m.ctrl.LocalPath())
	m.panes[remoteSide].reload(m.ctrl.RemoteEntries(), m.ctrl.RemotePath())
}

// Lines returns the plain text of the log
func (m *Model) Lines() []string {
	out := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		out = append(out, ">>> "+l.text)
	}
	return out
}

func styleFor(kind controller.MsgKind) lipgloss.Style {
	switch kind {
	case controller.Warning:
		return WarningStyle
	case controller.Error:
		return ErrorStyle
	}
	return SuccessStyle
}

func (m *Model) renderLog() {
	rendered := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		rendered = append(rendered, styleFor(l.kind).Render(">>> "+l.text))
	}
	m.logView.SetContent(strings.Join(rendered, "\n"))
	m.logView.GotoBottom()
}

// layout

func (m *Model) paneRows() int {
	rows := (m.height - 8) * 3 / 5
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m *Model) resize() {
	m.help.Width = m.width
	logHeight := m.height - m.paneRows() - 9
	if m.showHelp {
		logHeight -= 4
	}
	if logHeight < 3 {
		logHeight = 3
	}
	m.logView.Width = m.width - 2
	m.logView.Height = logHeight
	m.renderLog()
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	paneWidth := m.width/2 - 4
	if paneWidth < 20 {
		paneWidth = 20
	}
	rows := m.paneRows()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.panes[localSide].view(paneWidth, rows, m.focus == localSide),
		m.panes[remoteSide].view(paneWidth, rows, m.focus == remoteSide),
	))
	b.WriteString("\n")
	b.WriteString(LogStyle.Width(m.width - 2).Render(m.logView.View()))
	b.WriteString("\n")

	switch m.mode {
	case modeAlert:
		b.WriteString(AlertStyle.Render("Error: " + m.prompt + "\n" + StatusStyle.Render("press any key")))
	case modeConfirm:
		b.WriteString(PromptStyle.Render(m.prompt + " (y/n)"))
	case modeInput:
		b.WriteString(PromptStyle.Render(m.input.View()))
	default:
		if m.status != "" {
			b.WriteString(StatusStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(m.help.View(m.keys))
	}
	return App.Render(b.String())
}

func (m *Model) header() string {
	s := m.ctrl.Settings()
	state := ErrorStyle.Render("disconnected")
	if m.ctrl.Connected() {
		state = SuccessStyle.Render("connected")
	}
	info := fmt.Sprintf("port %s  baud %d  delay %ss  ", s.Port, s.Baud, config.FormatDelay(s.Delay))
	return TitleStyle.Render(m.opts.Title) + " " + StatusStyle.Render(info) + state
}

// Run starts the terminal interface and blocks until the user quits.
func Run(ctrl *controller.Controller, opts Options) error {
	restore := redirectLogs(opts)
	defer restore()

	m := New(ctrl, opts)
	if opts.Watch {
		m.startWatcher()
		defer func() {
			if m.watcher != nil {
				m.watcher.Stop()
			}
		}()
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func (m *Model) startWatcher() {
	w, err := local.NewWatcher()
	if err != nil {
		log.LogWithError(err).Warn("local directory watcher unavailable")
		return
	}
	if err := w.Watch(m.ctrl.LocalPath()); err != nil {
		log.LogWithError(err).Warn("cannot watch local directory")
	}
	m.ctrl.OnLocalDirChange(func(dir string) {
		if err := w.Watch(dir); err != nil {
			log.LogWithError(err).Warn("cannot watch local directory")
		}
	})
	if err := w.Start(); err != nil {
		log.LogWithError(err).Warn("local directory watcher not started")
		w.Stop()
		return
	}
	m.watcher = w
}
