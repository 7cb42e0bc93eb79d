package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/config"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "flock",
	Short: "Boids flocking over a spatial tree",
	Long: `flock simulates a swarm of agents steering by alignment, cohesion and
separation, indexed by a quadtree (2D) or octree (3D) rebuilt every tick.
It runs headless, in a window, or as a websocket snapshot server.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.json, .yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// overrides on top of the config file, also read from FLOCK_* variables
	rootCmd.PersistentFlags().Int("population", 0, "number of agents to spawn")
	rootCmd.PersistentFlags().Uint64("seed", 0, "random seed (0 picks one)")
	rootCmd.PersistentFlags().Int("dimension", 2, "2 for a quadtree world, 3 for an octree world")
	rootCmd.PersistentFlags().Int("tick-rate", 60, "ticks per second in real time modes")
	rootCmd.PersistentFlags().Int("workers", 0, "update workers (0 uses GOMAXPROCS)")
	for _, name := range []string{"config", "population", "seed", "dimension", "tick-rate", "workers"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig wires environment variables: FLOCK_POPULATION, FLOCK_TICK_RATE...
func initConfig() {
	color.NoColor = color.NoColor || noColor
	viper.SetEnvPrefix("FLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file, if any, and applies flag and environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := viper.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if viper.IsSet("population") {
		cfg.Population = viper.GetInt("population")
	}
	if viper.IsSet("seed") {
		cfg.Seed = viper.GetUint64("seed")
	}
	if viper.IsSet("dimension") {
		cfg.Dimension = viper.GetInt("dimension")
	}
	if viper.IsSet("tick-rate") {
		cfg.TickRate = viper.GetInt("tick-rate")
	}
	if viper.IsSet("workers") {
		cfg.Flock.Workers = viper.GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLevel(s string) (golog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return golog.DebugLevel, nil
	case "info":
		return golog.InfoLevel, nil
	case "warn", "warning":
		return golog.WarningLevel, nil
	case "error":
		return golog.ErrorLevel, nil
	default:
		return golog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func newLogger() (golog.Logger, error) {
	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return golog.New(level, os.Stderr), nil
}

func newActorSystem(ctx context.Context, logger golog.Logger) (actor.ActorSystem, error) {
	system, err := actor.NewActorSystem("Flock",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return nil, fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start actor system: %w", err)
	}
	return system, nil
}

func swarmOptions(cfg *config.Config, logger golog.Logger) []swarm.Option {
	opts := []swarm.Option{swarm.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, swarm.WithSeed(cfg.Seed))
	}
	return opts
}

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)
