package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/spf13/cobra"
)

// Environment variables that provide defaults for the flags.
const (
	EnvVirtualKB  = "VMSIM_VIRTUAL_KB"
	EnvPhysicalKB = "VMSIM_PHYSICAL_KB"
	EnvPageKB     = "VMSIM_PAGE_KB"
	EnvLogLevel   = "VMSIM_LOG_LEVEL"
	EnvPort       = "VMSIM_PORT"
	EnvRecord     = "VMSIM_RECORD"
)

// Settings is the configuration shared by all commands.
type Settings struct {
	VirtualKB  uint64
	PhysicalKB uint64
	PageKB     uint64
	LogLevel   string
	Port       int
	Record     string
}

// DefaultSettings returns the 16/8/4 KB layout with info logging.
func DefaultSettings() Settings {
	return Settings{
		VirtualKB:  16,
		PhysicalKB: 8,
		PageKB:     4,
		LogLevel:   "info",
		Port:       0,
	}
}

// Config returns the address spaces described by the settings.
func (s Settings) Config() vm.Config {
	return vm.ConfigFromKB(s.VirtualKB, s.PhysicalKB, s.PageKB)
}

// LoadSettings reads envFile, if it exists, and then the VMSIM_ environment
// variables on top of the defaults. Variables already set in the environment
// win over the file.
func LoadSettings(envFile string) (Settings, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	s := DefaultSettings()

	var err error

	if s.VirtualKB, err = envUint(EnvVirtualKB, s.VirtualKB); err != nil {
		return Settings{}, err
	}

	if s.PhysicalKB, err = envUint(EnvPhysicalKB, s.PhysicalKB); err != nil {
		return Settings{}, err
	}

	if s.PageKB, err = envUint(EnvPageKB, s.PageKB); err != nil {
		return Settings{}, err
	}

	if v, ok := os.LookupEnv(EnvPort); ok {
		s.Port, err = strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s=%q: %w", EnvPort, v, err)
		}
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		s.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvRecord); ok {
		s.Record = v
	}

	return s, nil
}

func envUint(name string, def uint64) (uint64, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}

	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", name, v, err)
	}

	return n, nil
}

// NewLogger creates a text logger writing to w at the named level. Unknown
// levels fall back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level

	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})

	return slog.New(handler).With("module", "vmsim")
}

// options holds what the flags resolve to during one invocation.
type options struct {
	envFile  string
	settings Settings
	logger   *slog.Logger

	virtualKB  uint64
	physicalKB uint64
	pageKB     uint64
	logLevel   string
	record     string
}

func (o *options) bindFlags(cmd *cobra.Command) {
	def := DefaultSettings()
	flags := cmd.PersistentFlags()

	flags.StringVar(&o.envFile, "env-file", ".env",
		"File with VMSIM_ variables to load")
	flags.Uint64Var(&o.virtualKB, "virtual-kb", def.VirtualKB,
		"Virtual space size in KB")
	flags.Uint64Var(&o.physicalKB, "physical-kb", def.PhysicalKB,
		"Physical space size in KB")
	flags.Uint64Var(&o.pageKB, "page-kb", def.PageKB, "Page size in KB")
	flags.StringVar(&o.logLevel, "log-level", def.LogLevel,
		"Log level: debug, info, warn or error")
	flags.StringVar(&o.record, "record", "",
		"Record translations into <record>.sqlite3")
}

// load resolves the settings. Flags set on the command line override the
// environment.
func (o *options) load(cmd *cobra.Command) error {
	s, err := LoadSettings(o.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("virtual-kb") {
		s.VirtualKB = o.virtualKB
	}

	if flags.Changed("physical-kb") {
		s.PhysicalKB = o.physicalKB
	}

	if flags.Changed("page-kb") {
		s.PageKB = o.pageKB
	}

	if flags.Changed("log-level") {
		s.LogLevel = o.logLevel
	}

	if flags.Changed("record") {
		s.Record = o.record
	}

	o.settings = s
	o.logger = NewLogger(s.LogLevel, cmd.ErrOrStderr())

	return nil
}
