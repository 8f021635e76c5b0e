//go:build !nogui

package gui

import (
	"strconv"

	"ampyfm/internal/config"
	"ampyfm/internal/log"
	"ampyfm/internal/serialport"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const portTip = "Tip: don't know which port your remote device uses?\n" +
	"Unplug your remote device, click 'Refresh', plug it in again\n" +
	"and click 'Refresh' once more. The new entry is your device."

// settingsBar holds the connection settings widgets.
type settingsBar struct {
	app *App

	port    *widget.Entry
	baud    *widget.Select
	delay   *widget.Entry
	connect *widget.Button
	status  *widget.Label
}

func newSettingsBar(a *App) *settingsBar {
	s := &settingsBar{app: a}
	current := a.ctrl.Settings()

	s.port = widget.NewEntry()
	s.port.SetText(current.Port)
	s.port.OnSubmitted = func(text string) { a.ctrl.SelectPort(text) }

	s.baud = widget.NewSelect(config.BaudLabels(), nil)
	s.baud.SetSelected(strconv.Itoa(current.Baud))
	s.baud.OnChanged = func(value string) {
		baud, err := config.ParseBaud(value)
		if err == nil {
			err = a.ctrl.SetBaud(baud)
		}
		if err != nil {
			a.ShowError("Baud rate", err)
		}
	}

	s.delay = widget.NewEntry()
	s.delay.SetText(config.FormatDelay(current.Delay))
	s.delay.Validator = func(text string) error {
		_, err := config.ParseDelay(text)
		return err
	}
	s.delay.OnSubmitted = func(text string) { s.applyDelay(text) }

	s.connect = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		// Entries are applied on submit; pick up edits that were not submitted.
		a.ctrl.SelectPort(s.port.Text)
		s.applyDelay(s.delay.Text)
		a.ctrl.Connect()
	})
	s.status = widget.NewLabel("")
	return s
}

func (s *settingsBar) applyDelay(text string) {
	delay, err := config.ParseDelay(text)
	if err == nil {
		err = s.app.ctrl.SetDelay(delay)
	}
	if err != nil {
		s.app.ShowError("Delay", err)
	}
}

// Object returns the bar's widget tree
func (s *settingsBar) Object() fyne.CanvasObject {
	selectPort := widget.NewButton("Select Port", s.showPortDialog)
	portBox := container.NewBorder(nil, nil, widget.NewLabel("Port"), selectPort, s.port)
	return container.NewGridWithColumns(4,
		portBox,
		container.NewBorder(nil, nil, widget.NewLabel("Baud Rate"), nil, s.baud),
		container.NewBorder(nil, nil, widget.NewLabel("Delay"), nil, s.delay),
		container.NewHBox(s.connect, s.status),
	)
}

// Reload mirrors the controller's connection state
func (s *settingsBar) Reload() {
	if s.app.ctrl.Connected() {
		s.status.SetText("connected")
	} else {
		s.status.SetText("disconnected")
	}
}

// showPortDialog lists the host's serial ports with a refresh button.
func (s *settingsBar) showPortDialog() {
	var ports []serialport.Port
	chosen := -1

	list := widget.NewList(
		func() int { return len(ports) },
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(ports[id].Label())
		},
	)
	list.OnSelected = func(id widget.ListItemID) { chosen = id }

	load := func() {
		found, err := s.app.opts.ListPorts()
		if err != nil {
			log.LogWithError(err).Warn("listing serial ports failed")
		}
		ports = found
		chosen = -1
		list.UnselectAll()
		list.Refresh()
	}
	load()

	refresh := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), load)
	content := container.NewBorder(
		nil,
		container.NewVBox(refresh, widget.NewLabel(portTip)),
		nil, nil,
		list,
	)

	d := dialog.NewCustomConfirm("Select port", "Select", "Cancel", content, func(ok bool) {
		if !ok || chosen < 0 || chosen >= len(ports) {
			return
		}
		s.port.SetText(ports[chosen].Name)
		s.app.ctrl.SelectPort(ports[chosen].Name)
	}, s.app.mainWindow)
	d.Resize(fyne.NewSize(480, 360))
	d.Show()
}
