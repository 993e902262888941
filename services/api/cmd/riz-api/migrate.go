package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"riz/pkg/db"
)

func newMigrateCommand() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations, or roll back the latest with --down",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			if down {
				versions, err := db.Rollback(ctx, pool)
				if err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
				log.Info().Ints64("versions", versions).Msg("rolled back")
				return nil
			}

			versions, err := db.Migrate(ctx, pool)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(versions) == 0 {
				log.Info().Msg("database is up to date")
				return nil
			}
			log.Info().Ints64("versions", versions).Msg("migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the most recent migration")
	return cmd
}
