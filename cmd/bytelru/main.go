// Command bytelru drives a byte-bounded LRU store from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ryandielhenn/bytelru/internal/config"
	"github.com/ryandielhenn/bytelru/internal/logging"
	"github.com/ryandielhenn/bytelru/internal/telemetry"
	"github.com/ryandielhenn/bytelru/pkg/kv"
)

// Build information set via ldflags
var (
	version = "dev"
	commit  = "none"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
	metrics *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "bytelru",
		Short:         "In-memory key/value store with LRU eviction by byte budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./bytelru.toml or ~/.config/bytelru/bytelru.toml)")
	pf.Int("capacity", config.DefaultCapacity, "store capacity in bytes")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	mustBind(a.v, config.KeyCapacity, pf.Lookup("capacity"))
	mustBind(a.v, config.KeyLogLevel, pf.Lookup("log-level"))
	mustBind(a.v, config.KeyLogFormat, pf.Lookup("log-format"))

	root.AddCommand(newExecCmd(a), newBenchCmd(a), newVersionCmd())
	return root
}

func (a *app) setup() error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	telemetry.SetBuildInfo(version, commit)
	a.log.Debug("config loaded",
		zap.Int("capacity", cfg.Capacity),
		zap.String("config_file", a.v.ConfigFileUsed()),
	)
	return nil
}

// newStore builds the store every command runs against: capacity from
// config, evictions counted and logged, one global lock, metrics on every call.
func (a *app) newStore() (kv.Engine, error) {
	s, err := kv.NewStore(a.cfg.Capacity)
	if err != nil {
		return nil, err
	}
	logEvict := logging.EvictionLogger(a.log)
	s.OnEvict(func(key string, value []byte) {
		telemetry.RecordEviction(key, value)
		logEvict(key, value)
	})
	locked := kv.NewLocked(s)
	a.metrics = prometheus.NewRegistry()
	if err := telemetry.RegisterStore(a.metrics, locked); err != nil {
		return nil, fmt.Errorf("register store metrics: %w", err)
	}
	return telemetry.Instrument(locked), nil
}

// writeMetrics dumps process-wide metrics plus the gauges of the store
// built by newStore.
func (a *app) writeMetrics(w io.Writer) error {
	g := prometheus.Gatherers{telemetry.Registry}
	if a.metrics != nil {
		g = append(g, a.metrics)
	}
	return telemetry.WriteText(w, g)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bytelru %s (commit %s)\n", version, commit)
		},
	}
}

func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
