package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/logging"
)

var (
	publishTextFile string
	publishImage    string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a post directly, skipping the approval gate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if publishTextFile == "" {
			return errors.New("--text-file is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.LinkedIn.AccessToken == "" || cfg.LinkedIn.AuthorURN == "" {
			return errors.New("linkedin.access_token and linkedin.author_urn are required")
		}
		text, err := os.ReadFile(publishTextFile)
		if err != nil {
			return err
		}
		p, err := buildPublisher(cfg)
		if err != nil {
			return err
		}
		logger := logging.New("cli")
		logger.Info("publishing", "text", publishTextFile, "image", publishImage)
		id, err := p.Publish(cmd.Context(), strings.TrimSpace(string(text)), publishImage)
		if err != nil {
			return err
		}
		logger.Info("publish done", "post_id", id)
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishTextFile, "text-file", "", "path to the post text")
	publishCmd.Flags().StringVar(&publishImage, "image", "", "image URL or local file (optional)")
}
