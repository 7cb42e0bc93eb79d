package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/config"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/world"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/structpb"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation headless",
	Long: `Run advances the world as fast as possible for the requested number of
ticks and prints a summary, optionally every --every ticks.`,
	RunE: runHeadless,
}

func init() {
	runCmd.Flags().Uint32P("ticks", "n", 1000, "number of ticks to run")
	runCmd.Flags().Uint32("every", 0, "print progress every N ticks (0 prints only the summary)")
	runCmd.Flags().Duration("timeout", 10*time.Minute, "maximum wait for one batch of ticks")
}

func runHeadless(cmd *cobra.Command, _ []string) error {
	ticks, _ := cmd.Flags().GetUint32("ticks")
	every, _ := cmd.Flags().GetUint32("every")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := newActorSystem(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = system.Stop(context.Background()) }()

	b := batches{total: ticks, every: every, timeout: timeout}
	switch cfg.Dimension {
	case 2:
		w, err := cfg.World2D()
		if err != nil {
			return err
		}
		return runWorld(ctx, system, w, cfg, logger, b)
	default:
		w, err := cfg.World3D()
		if err != nil {
			return err
		}
		return runWorld(ctx, system, w, cfg, logger, b)
	}
}

type batches struct {
	total, every uint32
	timeout      time.Duration
}

func runWorld[V geometry.Vector[V]](ctx context.Context, system actor.ActorSystem, w swarm.World[V], cfg *config.Config, logger golog.Logger, b batches) error {
	a, err := world.New(w, cfg.Population, nil, swarmOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	pid, err := system.Spawn(ctx, "world", a)
	if err != nil {
		return fmt.Errorf("failed to spawn world: %w", err)
	}

	_, _ = titleColor.Printf("Running %dD flock: %d agents, %d ticks\n", cfg.Dimension, cfg.Population, b.total)
	start := time.Now()
	var last *world.Snapshot[V]
	for done := uint32(0); done < b.total; {
		n := b.total - done
		if b.every > 0 {
			n = min(n, b.every)
		}
		if err := actor.Tell(ctx, pid, world.Advance(n)); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		done += n

		// the world handles messages in order, so this answers after the ticks
		if last, err = askSnapshot[V](ctx, pid, b.timeout); err != nil {
			return err
		}
		if b.every > 0 && done < b.total {
			fmt.Printf("  tick %6d  agents %5d  food %3d  last tick %v\n",
				last.Tick, len(last.Boids), len(last.Food), last.TickDuration)
		}
	}
	elapsed := time.Since(start)

	if last == nil {
		_, _ = warnColor.Println("No ticks requested.")
		return nil
	}
	rate := float64(last.Tick) / elapsed.Seconds()
	_, _ = okColor.Printf("Done: %d ticks in %v (%.1f ticks/s), %d agents, %d food\n",
		last.Tick, elapsed.Round(time.Millisecond), rate, len(last.Boids), len(last.Food))
	return nil
}

func askSnapshot[V geometry.Vector[V]](ctx context.Context, pid *actor.PID, timeout time.Duration) (*world.Snapshot[V], error) {
	resp, err := actor.Ask(ctx, pid, world.SnapshotRequest(), timeout)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	st, ok := resp.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("snapshot: unexpected reply %T", resp)
	}
	return world.DecodeSnapshot[V](st)
}
