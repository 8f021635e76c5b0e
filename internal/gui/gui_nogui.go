//go:build nogui

package gui

import (
	"fmt"

	"ampyfm/internal/controller"
)

// Create is a stub for builds with the GUI disabled
func (f *Factory) Create() (Interface, error) {
	return nil, fmt.Errorf("GUI not available in this build")
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return false
}

// StartGUI is a stub implementation for builds with GUI disabled
func StartGUI(ctrl *controller.Controller, opts Options) error {
	fmt.Println("GUI is disabled in this build. Use the tui subcommand instead.")
	return fmt.Errorf("GUI not available in this build")
}
