package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"riz/pkg/auth"
	"riz/services/api"
)

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision users from a YAML plan (embedded default when --file is empty)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			plan, err := loadPlan(file)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := api.Seed(ctx, store, auth.NewHasher(cfg.BcryptCost), plan)
			if err != nil {
				return err
			}
			log.Info().
				Strs("created", res.Created).
				Strs("skipped", res.Skipped).
				Int("managers", res.Managers).
				Msg("seed complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to a YAML provisioning plan")
	return cmd
}

func loadPlan(path string) (api.SeedPlan, error) {
	if path == "" {
		return api.DefaultSeedPlan()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return api.SeedPlan{}, fmt.Errorf("read seed plan: %w", err)
	}
	return api.LoadSeedPlan(data)
}
