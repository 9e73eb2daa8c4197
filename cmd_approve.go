package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/approval"
)

var approveCmd = &cobra.Command{
	Use:   "approve <approval-url>",
	Short: "Execute an approval link from the command line",
	Long: `Verifies the signature on an approval link and publishes its post, exactly as
opening the link in a browser would.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, sig, err := approval.ParseURL(args[0])
		if err != nil {
			return err
		}
		exec, err := buildExecutor(cfg)
		if err != nil {
			return err
		}
		v := approval.Describe(exec.Execute(cmd.Context(), token, sig))
		if v.Status != http.StatusOK {
			return fmt.Errorf("%s: %s", v.Title, v.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v.Message)
		return nil
	},
}
