package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/store"
)

func migrateCMD() *cobra.Command {
	var cfgPath string
	var dir string
	var steps int
	migrate := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply database schema migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			dsn, ok := cfg.Storage.Postgres.DSN()
			if !ok {
				return fmt.Errorf("postgres is not configured")
			}
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return store.Migrate(dir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	migrate.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return migrate
}
