package main

import (
	"fmt"
	"os"

	"ampyfm/internal/gui"
	"ampyfm/internal/tui"

	"github.com/spf13/cobra"
)

// runGUI launches the GUI directly
func runGUI(cmd *cobra.Command, f *appFlags) error {
	s, err := openSession(cmd, f)
	if err != nil {
		return err
	}
	defer s.close()

	ctrl, err := s.controller(cmd.Context())
	if err != nil {
		return err
	}
	return gui.StartGUI(ctrl, gui.Options{
		MonitorInterval: monitorInterval(s.cfg),
		Watch:           true,
		ListPorts:       listPorts,
	})
}

// guiCmd creates the GUI command for the CLI
func guiCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Launch the graphical user interface",
		Long:  `Launch the fyne interface: local and remote file panes, transfer buttons and a log pane.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !gui.IsGUIAvailable() {
				return fmt.Errorf("this binary was built without GUI support, use 'ampyfm tui'")
			}
			return runGUI(cmd, f)
		},
	}
}

// tuiCmd creates the terminal interface command
func tuiCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal user interface",
		Long:  `Launch the keyboard driven terminal interface. Press ? inside it for the key list.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, f)
			if err != nil {
				return err
			}
			defer s.close()

			ctrl, err := s.controller(cmd.Context())
			if err != nil {
				return err
			}
			if f.debug {
				PrintInfo(cmd.ErrOrStderr(), "Debug log: "+tui.DebugLogFile())
			}
			if err := tui.Run(ctrl, tui.Options{
				MonitorInterval: monitorInterval(s.cfg),
				Watch:           true,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
				return err
			}
			return nil
		},
	}
}
