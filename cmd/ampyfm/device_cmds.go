package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ampyfm/internal/controller"
	"ampyfm/internal/device"
	"ampyfm/internal/remote"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// deviceCommand wraps a one-shot device command: it opens a session, checks
// the port and hands the session to run.
func deviceCommand(f *appFlags, run func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, f)
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.requireDevice(); err != nil {
			return err
		}
		return run(cmd, s, args)
	}
}

// lsCmd lists a board directory, directories first
func lsCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory on the board",
		Args:  cobra.MaximumNArgs(1),
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			dir := remote.Root
			if len(args) > 0 {
				dir = remote.Normalize(args[0])
			}
			m := remote.NewModel(s.adapter, s.scripts)
			if err := m.SetPath(cmd.Context(), dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(m.DisplayPath()))
			for _, d := range m.Dirs() {
				fmt.Fprintln(out, dirStyle.Render(d+"/"))
			}
			for _, name := range m.Files() {
				fmt.Fprintln(out, name)
			}
			return nil
		}),
	}
}

// getCmd copies a board file to the host, or prints it when no local path
// is given.
func getCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote> [local]",
		Short: "Copy a file from the board",
		Args:  cobra.RangeArgs(1, 2),
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			src := remote.Normalize(args[0])
			if len(args) == 1 {
				res, err := s.adapter.Exec(cmd.Context(), device.CmdGet, src)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
				return nil
			}
			if err := s.adapter.Get(cmd.Context(), src, args[1]); err != nil {
				return err
			}
			PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("File '%s' successfully fetched from device%s", src, sizeOf(args[1])))
			return nil
		}),
	}
}

// putCmd copies a host file to the board. The board path defaults to the
// file's base name in the root directory.
func putCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "put <local> [remote]",
		Short: "Copy a file or directory to the board",
		Args:  cobra.RangeArgs(1, 2),
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			dst := path.Join("/", filepath.Base(args[0]))
			if len(args) == 2 {
				dst = remote.Normalize(args[1])
			}
			if err := s.adapter.Put(cmd.Context(), args[0], dst); err != nil {
				return err
			}
			PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("File(s) '%s' successfully uploaded to remote device%s", dst, sizeOf(args[0])))
			return nil
		}),
	}
}

// sizeOf renders " (1.2 kB)" for a regular local file and "" otherwise.
func sizeOf(file string) string {
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
}

// simpleCmd builds a command that runs one adapter call per path argument.
func simpleCmd(f *appFlags, use, short, done string, call func(a *device.Adapter, cmd *cobra.Command, p string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			p := remote.Normalize(args[0])
			if p == remote.Root {
				return fmt.Errorf("refusing to operate on the root directory")
			}
			if err := call(s.adapter, cmd, p); err != nil {
				return err
			}
			PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf(done, p))
			return nil
		}),
	}
}

func rmCmd(f *appFlags) *cobra.Command {
	return simpleCmd(f, "rm <path>", "Remove a file from the board", "File '%s' successfully deleted from device",
		func(a *device.Adapter, cmd *cobra.Command, p string) error { return a.Remove(cmd.Context(), p) })
}

func rmdirCmd(f *appFlags) *cobra.Command {
	return simpleCmd(f, "rmdir <path>", "Remove a directory and its contents from the board", "Directory '%s' successfully deleted from device",
		func(a *device.Adapter, cmd *cobra.Command, p string) error { return a.Rmdir(cmd.Context(), p) })
}

func mkdirCmd(f *appFlags) *cobra.Command {
	return simpleCmd(f, "mkdir <path>", "Create a directory on the board", "Directory '%s' created on device",
		func(a *device.Adapter, cmd *cobra.Command, p string) error { return a.Mkdir(cmd.Context(), p) })
}

// resetCmd soft-resets the board
func resetCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Soft-reset the board",
		Args:  cobra.NoArgs,
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			if err := s.adapter.Reset(cmd.Context()); err != nil {
				return err
			}
			PrintSuccess(cmd.OutOrStdout(), "Device reset")
			return nil
		}),
	}
}

// runCmd runs a host file on the board and prints its output
func runCmd(f *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a local script on the board",
		Args:  cobra.ExactArgs(1),
		RunE: deviceCommand(f, func(cmd *cobra.Command, s *session, args []string) error {
			out, err := s.adapter.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render(controller.RunHeader(filepath.Base(args[0]))))
			if trimmed := strings.TrimRight(out, "\r\n"); trimmed != "" {
				fmt.Fprintln(w, trimmed)
			}
			fmt.Fprintln(w, headerStyle.Render(controller.RunFooter))
			return nil
		}),
	}
}
