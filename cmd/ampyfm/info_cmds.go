package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// portsCmd lists the host's serial ports
func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Long: `List the serial ports on this host. If you don't know which one is your
board, unplug it, run this command, plug it in and run it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := listPorts()
			if err != nil {
				return fmt.Errorf("error listing serial ports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				PrintWarning(out, "No serial ports found")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
				Headers("PORT", "USB", "VID:PID", "PRODUCT")
			for _, p := range ports {
				usb, ids := "no", ""
				if p.IsUSB {
					usb, ids = "yes", p.VID+":"+p.PID
				}
				t.Row(p.Name, usb, ids, p.Product)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

// versionCmd prints the build version
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ampyfm %s\n", version)
		},
	}
}
