package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ampyfm/internal/config"
	"ampyfm/internal/controller"
	"ampyfm/internal/device"
	"ampyfm/internal/device/scripts"
	"ampyfm/internal/errors"
	"ampyfm/internal/local"
	"ampyfm/internal/log"
	"ampyfm/internal/serialport"

	"github.com/spf13/cobra"
)

// Seams replaced by tests
var (
	newRunner = func() device.Runner { return device.ExecRunner{} }
	lookPath  = device.LookPath
	probe     = serialport.Probe
	listPorts = serialport.List
)

// appFlags are the root persistent flags
type appFlags struct {
	debug     bool
	noTimeout bool
	timeDelay float64
	cfgFile   string
	port      string
	baud      int
	delay     float64
}

func rootCmd() *cobra.Command {
	f := &appFlags{}

	cmd := &cobra.Command{
		Use:   "ampyfm",
		Short: "File manager for MicroPython boards",
		Long: `ampyfm browses, transfers and runs files on a MicroPython board
through the ampy command-line tool. Without a subcommand it opens the
graphical interface.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetDebug(f.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(cmd, f)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&f.debug, "debug", "d", false, "Print diagnostic lines")
	pf.BoolVarP(&f.noTimeout, "notimeout", "n", false, "Disable the periodic connection check")
	pf.Float64VarP(&f.timeDelay, "timedelay", "t", config.DefaultInterval, "Seconds between connection checks")
	pf.StringVar(&f.cfgFile, "config", "", "Config file (default ~/.config/ampyfm/config.yaml)")
	pf.StringVarP(&f.port, "port", "p", "", "Serial port of the board (overrides config)")
	pf.IntVarP(&f.baud, "baud", "b", 0, "Baud rate (overrides config)")
	pf.Float64Var(&f.delay, "delay", 0, "Seconds to wait before entering the raw REPL (overrides config)")

	cmd.AddCommand(guiCmd(f))
	cmd.AddCommand(tuiCmd(f))
	cmd.AddCommand(portsCmd())
	cmd.AddCommand(lsCmd(f))
	cmd.AddCommand(getCmd(f))
	cmd.AddCommand(putCmd(f))
	cmd.AddCommand(rmCmd(f))
	cmd.AddCommand(mkdirCmd(f))
	cmd.AddCommand(rmdirCmd(f))
	cmd.AddCommand(resetCmd(f))
	cmd.AddCommand(runCmd(f))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig reads the config file and applies the flag overrides. A config
// file that cannot be used falls back to the defaults with a warning; a bad
// flag value is an error.
func loadConfig(cmd *cobra.Command, f *appFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.cfgFile != "" {
		cfg, err = config.LoadConfigFile(f.cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.LogWithError(err).Warn("Could not load config, using default settings")
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Device.Port = f.port
	}
	if flags.Changed("baud") {
		if err := config.ValidateBaud(f.baud); err != nil {
			return nil, err
		}
		cfg.Device.Baud = f.baud
	}
	if flags.Changed("delay") {
		if err := config.ValidateDelay(f.delay); err != nil {
			return nil, err
		}
		cfg.Device.Delay = f.delay
	}
	if flags.Changed("timedelay") {
		if !(f.timeDelay > 0) {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid time delay %g", f.timeDelay), "timedelay", errors.InvalidConfig, nil)
		}
		cfg.Monitor.Interval = f.timeDelay
	}
	if f.noTimeout {
		cfg.Monitor.Enabled = false
	}

	log.LogWithFields(
		log.F("port", cfg.Device.Port),
		log.F("baud", cfg.Device.Baud),
		log.F("delay", cfg.Device.Delay),
		log.F("monitor", cfg.Monitor.Enabled),
	).Debug("configuration loaded")
	return cfg, nil
}

// monitorInterval is zero when the periodic check is disabled.
func monitorInterval(cfg *config.Config) time.Duration {
	if !cfg.Monitor.Enabled || cfg.Monitor.Interval <= 0 {
		return 0
	}
	return time.Duration(cfg.Monitor.Interval * float64(time.Second))
}

func newAdapter(cfg *config.Config) *device.Adapter {
	return device.NewAdapter(device.SettingsFromConfig(cfg),
		device.WithTool(cfg.Tool.Command),
		device.WithErrorMarker(cfg.Tool.ErrorMarker),
		device.WithRunner(newRunner()),
	)
}

func requireTool(a *device.Adapter) error {
	if !lookPath(a.Tool()) {
		return errors.NewConfigError(fmt.Sprintf("%s is not installed", a.Tool()), "", errors.ToolMissing, nil)
	}
	return nil
}

// session holds everything a device command or an interface needs. close
// removes the materialized helper scripts.
type session struct {
	cfg       *config.Config
	adapter   *device.Adapter
	scripts   scripts.Paths
	scriptDir string
}

func openSession(cmd *cobra.Command, f *appFlags) (*session, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}
	adapter := newAdapter(cfg)
	if err := requireTool(adapter); err != nil {
		return nil, err
	}
	paths, dir, err := scripts.MaterializeTemp()
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, adapter: adapter, scripts: paths, scriptDir: dir}, nil
}

func (s *session) close() {
	if err := os.RemoveAll(s.scriptDir); err != nil {
		log.LogWithError(err).Debug("removing script directory")
	}
}

// controller builds the controller shared by the GUI and the TUI.
func (s *session) controller(ctx context.Context) (*controller.Controller, error) {
	ignore, err := local.NewIgnore(s.cfg.Local.Ignore)
	if err != nil {
		return nil, err
	}
	lm, err := local.NewModel(s.cfg.Local.StartDir, ignore)
	if err != nil {
		return nil, err
	}
	if err := lm.Refresh(); err != nil {
		return nil, err
	}
	return controller.New(ctx, controller.Options{
		Adapter: s.adapter,
		Scripts: s.scripts,
		Local:   lm,
		Probe:   probe,
	}), nil
}

// requireDevice opens the port once before a one-shot device command.
func (s *session) requireDevice() error {
	settings := s.adapter.Settings()
	if err := probe(settings.Port, settings.Baud); err != nil {
		if errors.IsDeviceNotFound(err) {
			return err
		}
		return errors.NewDeviceError(settings.Port, err)
	}
	return nil
}
