// Package cmd defines the CLI commands for the wayback-news-harvester executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/wayback-news-harvester/internal/config"
	"github.com/JakeFAU/wayback-news-harvester/internal/id/uuid"
)

// newRootCmd creates the root command with its subcommands. Each call gets a
// fresh Viper instance so tests can build independent command trees.
func newRootCmd(run crawlFunc) *cobra.Command {
	var cfgFile string
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "wayback-news-harvester",
		Short: "Harvests news articles from Wayback Machine snapshots.",
		Long: `wayback-news-harvester walks archived snapshots of a news site for a
range of days, discovers the articles linked from its section pages and
extracts one normalized record per article.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.AddCommand(newCrawlCmd(v, &cfgFile, run))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd(crawlWith(uuid.New())).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
