//go:build !nogui

package gui

import (
	"context"
	"strings"
	"sync"

	"ampyfm/internal/controller"
	"ampyfm/internal/local"
	"ampyfm/internal/log"
	"ampyfm/internal/monitor"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// App is the GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	ctrl       *controller.Controller
	opts       Options

	localPane  *filePane
	remotePane *filePane
	logPane    *logPane
	settings   *settingsBar

	// Action buttons, enabled from controller.Buttons
	getButton       *widget.Button
	putButton       *widget.Button
	mkdirButton     *widget.Button
	deleteButton    *widget.Button
	resetButton     *widget.Button
	runRemoteButton *widget.Button
	runLocalButton  *widget.Button
	refreshRemote   *widget.Button

	watcher *local.Watcher

	// reloads arrive from the monitor and watcher goroutines too
	reloadMu  sync.Mutex
	buttonsMu sync.Mutex
}

// NewApp creates a new GUI application
func NewApp(ctrl *controller.Controller, opts Options) *App {
	// Create app with a unique ID for preferences storage
	return NewAppWithFyne(app.NewWithID("io.github.ampyfm"), ctrl, opts)
}

// NewAppWithFyne builds the application on an existing fyne app, e.g. the
// test driver.
func NewAppWithFyne(fyneApp fyne.App, ctrl *controller.Controller, opts Options) *App {
	a := &App{
		fyneApp: fyneApp,
		ctrl:    ctrl,
		opts:    opts.withDefaults(),
	}
	a.mainWindow = fyneApp.NewWindow(a.opts.Title)
	a.mainWindow.Resize(fyne.NewSize(1000, 720))
	a.mainWindow.SetContent(a.buildContent())
	ctrl.SetView(a)
	return a
}

// GetMainWindow returns the main window instance
func (a *App) GetMainWindow() fyne.Window {
	return a.mainWindow
}

// Run shows the window and blocks until it is closed.
func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.start(ctx)
	defer a.stop()

	a.mainWindow.ShowAndRun()
}

// start wires the background helpers: the periodic connection check and the
// local directory watcher.
func (a *App) start(ctx context.Context) {
	monitor.Start(ctx, a.opts.MonitorInterval, a.ctrl.Tick)

	if !a.opts.Watch {
		return
	}
	w, err := local.NewWatcher()
	if err != nil {
		log.LogWithError(err).Warn("local directory watcher unavailable")
		return
	}
	if err := w.Watch(a.ctrl.LocalPath()); err != nil {
		log.LogWithError(err).Warn("cannot watch local directory")
	}
	a.ctrl.OnLocalDirChange(func(dir string) {
		if err := w.Watch(dir); err != nil {
			log.LogWithError(err).Warn("cannot watch local directory")
		}
	})
	if err := w.Start(); err != nil {
		log.LogWithError(err).Warn("local directory watcher not started")
		w.Stop()
		return
	}
	a.watcher = w

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.Done():
				return
			case <-w.Changed():
				a.ctrl.RefreshLocal()
			}
		}
	}()
}

func (a *App) stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}

// buildContent lays out the settings bar, both panes with the transfer
// buttons between them, and the log pane.
func (a *App) buildContent() fyne.CanvasObject {
	a.settings = newSettingsBar(a)
	a.logPane = newLogPane()

	a.localPane = newFilePane("Local",
		a.ctrl.LocalEntries, a.ctrl.LocalPath, a.ctrl.ActivateLocal, a.updateButtons)
	a.remotePane = newFilePane("Remote",
		a.ctrl.RemoteEntries, a.ctrl.RemotePath, a.ctrl.ActivateRemote, a.updateButtons)

	// Local side
	chooseDir := widget.NewButtonWithIcon("Select Directory", theme.FolderOpenIcon(), a.chooseLocalDir)
	refreshLocal := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), a.ctrl.RefreshLocal)
	a.runLocalButton = widget.NewButtonWithIcon("RUN", theme.MediaPlayIcon(), func() {
		a.ctrl.RunLocal(a.localPane.Selected())
	})
	localButtons := container.NewHBox(chooseDir, refreshLocal, a.runLocalButton)

	// Remote side
	a.refreshRemote = widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), a.ctrl.RefreshRemote)
	a.mkdirButton = widget.NewButtonWithIcon("MKDIR", theme.FolderNewIcon(), a.promptMkdir)
	a.deleteButton = widget.NewButtonWithIcon("DELETE", theme.DeleteIcon(), func() {
		a.ctrl.Delete(a.remotePane.Selected())
	})
	a.resetButton = widget.NewButtonWithIcon("RESET", theme.MediaReplayIcon(), a.ctrl.Reset)
	a.runRemoteButton = widget.NewButtonWithIcon("RUN", theme.MediaPlayIcon(), func() {
		a.ctrl.RunRemote(a.remotePane.Selected())
	})
	remoteButtons := container.NewHBox(a.refreshRemote, a.mkdirButton, a.deleteButton, a.resetButton, a.runRemoteButton)

	// Transfer column
	a.getButton = widget.NewButtonWithIcon("GET", theme.NavigateBackIcon(), func() {
		a.ctrl.Get(a.remotePane.Selected())
	})
	a.putButton = widget.NewButtonWithIcon("PUT", theme.NavigateNextIcon(), func() {
		a.ctrl.Put(a.localPane.Selected())
	})
	transfer := container.NewVBox(a.putButton, a.getButton)

	panes := container.NewBorder(nil, nil, nil, nil,
		container.NewGridWithColumns(2,
			container.NewBorder(nil, localButtons, nil, nil, a.localPane.Object()),
			container.NewBorder(nil, remoteButtons, transfer, nil, a.remotePane.Object()),
		),
	)

	split := container.NewVSplit(panes, a.logPane.Object(a.ctrl.ClearLog))
	split.Offset = 0.65

	a.reload()
	return container.NewBorder(a.settings.Object(), nil, nil, nil, split)
}

func (a *App) chooseLocalDir() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			a.ShowError("Select Directory", err)
			return
		}
		if uri == nil {
			return
		}
		a.ctrl.ChooseLocalDir(uri.Path())
	}, a.mainWindow)
}

func (a *App) promptMkdir() {
	name := widget.NewEntry()
	name.SetPlaceHolder("directory name")
	items := []*widget.FormItem{widget.NewFormItem("Name", name)}
	dialog.ShowForm("New remote directory", "Create", "Cancel", items, func(ok bool) {
		if ok && strings.TrimSpace(name.Text) != "" {
			a.ctrl.Mkdir(name.Text)
		}
	}, a.mainWindow)
}

// reload re-reads both listings and the button state.
func (a *App) reload() {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()
	a.localPane.Reload()
	a.remotePane.Reload()
	a.settings.Reload()
	a.updateButtons()
}

func (a *App) updateButtons() {
	b := a.ctrl.Buttons(a.localPane.Selected(), a.remotePane.Selected())
	a.buttonsMu.Lock()
	defer a.buttonsMu.Unlock()
	setEnabled(a.refreshRemote, b.Refresh)
	setEnabled(a.mkdirButton, b.Mkdir)
	setEnabled(a.resetButton, b.Reset)
	setEnabled(a.putButton, b.Put)
	setEnabled(a.runLocalButton, b.RunLocal)
	setEnabled(a.getButton, b.Get)
	setEnabled(a.deleteButton, b.Delete)
	setEnabled(a.runRemoteButton, b.RunRemote)
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

// controller.View

// Log appends a line to the log pane
func (a *App) Log(kind controller.MsgKind, text string) {
	a.logPane.Append(kind, text)
}

// ClearLog empties the log pane
func (a *App) ClearLog() {
	a.logPane.Clear()
}

// Alert shows an error dialog and calls done once it is dismissed.
func (a *App) Alert(message string, done func()) {
	d := dialog.NewInformation("Error", message, a.mainWindow)
	if done != nil {
		d.SetOnClosed(done)
	}
	d.Show()
}

// Confirm asks a yes/no question
func (a *App) Confirm(message string, answer func(bool)) {
	dialog.ShowConfirm("Confirm", message, answer, a.mainWindow)
}

// Refresh redraws the panes and buttons
func (a *App) Refresh() {
	a.reload()
}

// ShowError displays an error dialog
func (a *App) ShowError(title string, err error) {
	log.LogWithError(err).Error(title)
	dialog.ShowError(err, a.mainWindow)
}

// ShowInfo displays an information dialog
func (a *App) ShowInfo(message string) {
	dialog.ShowInformation("Information", message, a.mainWindow)
}
