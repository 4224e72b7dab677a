package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/guidedcook/internal/metrics"
	"github.com/hammamikhairi/guidedcook/internal/recipe"
	"github.com/hammamikhairi/guidedcook/internal/server"
	"github.com/hammamikhairi/guidedcook/internal/storage"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen, recipesFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development recipe backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			if cmd.Flags().Changed("recipes") {
				cfg.RecipesFile = recipesFile
			}

			log, closeLog := openLog(cfg)
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			catalog := recipe.NewMemorySource(log.Named("recipes"))
			if cfg.RecipesFile != "" {
				if _, err := catalog.LoadFile(ctx, cfg.RecipesFile); err != nil {
					return fmt.Errorf("loading recipes: %w", err)
				}
			}

			srv := server.New(catalog, storage.NewMemoryStore(log.Named("storage")), log.Named("server"),
				server.WithRecorder(metrics.New()),
				server.WithTokens(cfg.Tokens),
			)
			return srv.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&recipesFile, "recipes", "", "YAML file with extra recipes")
	return cmd
}
