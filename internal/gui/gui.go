//go:build !nogui

package gui

import (
	"ampyfm/internal/controller"
)

// Create returns a new GUI instance
func (f *Factory) Create() (Interface, error) {
	return NewApp(f.ctrl, f.opts), nil
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return true
}

// StartGUI builds the window over ctrl and blocks until it is closed.
func StartGUI(ctrl *controller.Controller, opts Options) error {
	g, err := NewFactory(ctrl, opts).Create()
	if err != nil {
		return err
	}
	g.Run()
	return nil
}
