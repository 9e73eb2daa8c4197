package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/config"
	"auto_linkedin_post_publisher/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "linkedin-publisher",
	Short: "Draft, critique and refine LinkedIn posts, then publish on approval",
	Long: `linkedin-publisher researches a topic, writes a LinkedIn post, has it scored
and revised by a critic until it clears the quality bar, picks a photo, and
emails a signed approval link. Nothing is published until that link is opened.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config (.json, .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, overlays secrets from the environment and
// sets up logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	level := logging.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.Log.Format)
	return cfg, nil
}
