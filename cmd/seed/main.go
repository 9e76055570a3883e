package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"gamenight-api/internal/app"
	"gamenight-api/internal/config"
	"gamenight-api/internal/logger"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := seedCmd(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

func seedCmd(ctx context.Context) *cobra.Command {
	var (
		file string
		uid  string
		name string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Carga el catálogo inicial de juegos (saltea los que ya existen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := loadFixtures(file)
			if err != nil {
				return err
			}

			cfg := config.Load()
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			backend, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close(context.Background()) }()

			games := service.NewGameService(backend.Games, backend.Cache, time.Duration(cfg.CacheTTLSeconds)*time.Second, metrics.New(), log)
			actor := models.Identity{UID: uid, DisplayName: name}

			res, err := games.Seed(ctx, actor, fixtures)
			for _, g := range res.Created {
				log.Infow("game added", "name", g)
			}
			for _, g := range res.Skipped {
				log.Infow("game already exists", "name", g)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed done: %d created, %d skipped\n", len(res.Created), len(res.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON con los juegos (default: catálogo embebido)")
	cmd.Flags().StringVar(&uid, "uid", "SEED_SCRIPT", "uid que queda como createdBy")
	cmd.Flags().StringVar(&name, "name", "Seed Script", "displayName que queda como createdBy")
	return cmd
}
