package gui

import (
	"time"

	"ampyfm/internal/controller"
	"ampyfm/internal/serialport"
)

// Interface defines the contract for GUI operations
type Interface interface {
	Run()
	ShowError(title string, err error)
	ShowInfo(message string)
}

// Options tune the GUI
type Options struct {
	Title string
	// MonitorInterval is the connection re-check period; zero disables it.
	MonitorInterval time.Duration
	// Watch refreshes the local pane when its directory changes on disk.
	Watch bool
	// ListPorts feeds the port chooser. Defaults to serialport.List.
	ListPorts serialport.Lister
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "ampyfm"
	}
	if o.ListPorts == nil {
		o.ListPorts = serialport.List
	}
	return o
}

// Factory creates GUI instances
type Factory struct {
	ctrl *controller.Controller
	opts Options
}

// NewFactory creates a new GUI factory
func NewFactory(ctrl *controller.Controller, opts Options) *Factory {
	return &Factory{
		ctrl: ctrl,
		opts: opts,
	}
}
