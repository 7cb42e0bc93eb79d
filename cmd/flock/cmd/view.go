package cmd

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/viewer"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open a window on a 2D world",
	Long: `View runs the world at the configured tick rate in a window.
Left click drops food, space pauses, S steps one tick.`,
	RunE: runViewer,
}

func runViewer(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Dimension != 2 {
		return fmt.Errorf("the viewer draws 2D worlds only, got dimension %d", cfg.Dimension)
	}
	w, err := cfg.World2D()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx := context.Background()
	system, err := newActorSystem(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = system.Stop(ctx) }()

	game, err := viewer.New(ctx, system, w, cfg.Population, swarmOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	width, height := game.Layout(0, 0)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("Flock")
	ebiten.SetTPS(cfg.TickRate)
	return ebiten.RunGame(game)
}
