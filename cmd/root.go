package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/internal/clock"
	"github.com/crewmesh-systems/crewmesh/internal/config"
	"github.com/crewmesh-systems/crewmesh/internal/engine"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
	"github.com/crewmesh-systems/crewmesh/internal/remote"
	"github.com/crewmesh-systems/crewmesh/internal/replay"
	"github.com/crewmesh-systems/crewmesh/internal/session"
	"github.com/crewmesh-systems/crewmesh/pkg/color"
)

var (
	cfgFile    string
	missionID  string
	outputMode string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "crewmesh",
	Short: "Crewmesh mission CLI",
	Long: `crewmesh coordinates participants working on a shared mission.

Every command records its event durably on local disk first and then
attempts delivery to the mission service. When the service is
unreachable the command still succeeds; queued events replay on the
next command or an explicit 'crewmesh sync'.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.crewmesh/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&missionID, "mission", "M", "", "mission identifier (or CREWMESH_MISSION)")
	rootCmd.PersistentFlags().StringVarP(&outputMode, "output", "o", "table", "output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level (debug, info, warn, error)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg, _ = config.Load("")
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if jsonOutput() {
		color.Disable()
	}
}

func jsonOutput() bool {
	return outputMode == "json"
}

// mission resolves the target mission from the flag or environment.
func mission() (string, error) {
	if missionID != "" {
		return missionID, nil
	}
	if env := os.Getenv("CREWMESH_MISSION"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("mission is required (use --mission or CREWMESH_MISSION)")
}

// buildEngine wires the full stack from config: queue store, persisted
// node identity and clock, session cache, and, when a remote URL is
// configured, the replay transport over the HTTP client.
func buildEngine() (*engine.Engine, error) {
	if cfg == nil {
		initConfig()
	}

	log := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	store, err := queue.NewStore(cfg.Storage.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	nodeID, err := config.EnsureNodeID(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	clk := clock.New(nodeID, filepath.Join(cfg.Storage.Dir, "clocks.yaml"))

	sessions, err := session.Load(filepath.Join(cfg.Storage.Dir, "session.yaml"))
	if err != nil {
		return nil, err
	}

	var transport *replay.Transport
	if cfg.Remote.URL != "" {
		client := remote.NewClient(cfg.Remote.URL, sessions, cfg.Remote.Timeout)
		policy := replay.NewPolicy(cfg.Replay.MaxRetries, cfg.Replay.InitialBackoff)
		transport = replay.NewTransport(store, client, clk, policy, cfg.Replay.BatchSize, log)
	}

	return engine.New(store, clk, transport, sessions, log), nil
}
