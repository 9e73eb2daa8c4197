package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/approval"
)

var (
	signTopic    string
	signTextFile string
	signImage    string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Issue an approval link for a hand-written post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if signTextFile == "" || signImage == "" {
			return errors.New("--text-file and --image are required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.PublicBaseURL == "" {
			return errors.New("public_base_url is required")
		}
		text, err := os.ReadFile(signTextFile)
		if err != nil {
			return err
		}
		signer, err := approval.NewSigner(cfg.Approval.Secret)
		if err != nil {
			return err
		}
		token, sig, err := signer.Seal(approval.Payload{Topic: signTopic, Text: string(text), Image: signImage})
		if err != nil {
			return err
		}
		link, err := approval.BuildURL(cfg.PublicBaseURL, token, sig)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signTopic, "topic", "", "topic shown on the approval page")
	signCmd.Flags().StringVar(&signTextFile, "text-file", "", "path to the post text")
	signCmd.Flags().StringVar(&signImage, "image", "", "image URL")
}
