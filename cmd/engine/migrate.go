package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gator-forum/internal/database"
	"gator-forum/internal/logging"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create MongoDB indexes and list what exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Type != "mongo" {
			return fmt.Errorf("migrate needs DB_TYPE=mongo, got %q", cfg.Database.Type)
		}
		logger := logging.New(os.Stderr, cfg.Verbose)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		mongoDB, err := database.NewMongoDB(ctx, cfg.Database.URI, cfg.Database.Name, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer mongoDB.Close(context.Background())

		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		indexes, err := mongoDB.IndexNames(ctx)
		if err != nil {
			return fmt.Errorf("failed to list indexes: %w", err)
		}
		collections := make([]string, 0, len(indexes))
		for name := range indexes {
			collections = append(collections, name)
		}
		sort.Strings(collections)
		for _, name := range collections {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, indexes[name])
		}
		return nil
	},
}
