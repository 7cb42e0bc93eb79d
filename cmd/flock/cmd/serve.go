package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/config"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/stream"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/world"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream snapshots to websocket observers",
	Long: `Serve ticks the world in real time and broadcasts every snapshot as a
binary protobuf Struct on /ws. Observers may send Structs with "feed",
"tune" or "cells" keys. GET /snapshot returns the latest frame as JSON.`,
	RunE: runServer,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
}

func runServer(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
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

	switch cfg.Dimension {
	case 2:
		w, err := cfg.World2D()
		if err != nil {
			return err
		}
		return serveWorld(ctx, system, w, cfg, logger, addr)
	default:
		w, err := cfg.World3D()
		if err != nil {
			return err
		}
		return serveWorld(ctx, system, w, cfg, logger, addr)
	}
}

func serveWorld[V geometry.Vector[V]](ctx context.Context, system actor.ActorSystem, w swarm.World[V], cfg *config.Config, logger golog.Logger, addr string) error {
	snapshots := make(chan *world.Snapshot[V], 4)
	a, err := world.New(w, cfg.Population, snapshots, swarmOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	pid, err := system.Spawn(ctx, "world", a)
	if err != nil {
		return fmt.Errorf("failed to spawn world: %w", err)
	}

	hub := stream.NewHub(func(msg proto.Message) error {
		return actor.Tell(ctx, pid, msg)
	}, logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	mux.Handle("/snapshot", hub.SnapshotHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := actor.Tell(ctx, pid, world.Advance(1)); err != nil {
					return fmt.Errorf("advance: %w", err)
				}
			}
		}
	})
	g.Go(func() error {
		err := stream.Pump(ctx, hub, snapshots)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	g.Go(func() error {
		_, _ = titleColor.Printf("Serving %dD flock of %d agents on ws://%s/ws\n", cfg.Dimension, cfg.Population, addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}
