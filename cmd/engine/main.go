package main

import (
	"fmt"
	"os"

	"gator-forum/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gator-forum",
	Short: "Forum backend: posts, comments and votes over HTTP",
	Long: `Forum backend: posts, comments and votes over HTTP.

Runs the API server by default. Configuration comes from the environment
and an optional .env file.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig is shared by every command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}
