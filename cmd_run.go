package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/logging"
)

var (
	runTopic  string
	runDryRun bool
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workflow once and send the approval email",
	Long: `Researches a topic, runs the draft/critique/refine loop, selects an image and
sends the approval email. Without --topic a topic is picked at random from
workflow.topics. --dry-run prints the email to stdout instead of sending it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, err := buildOrchestrator(cfg, nil, runDryRun)
		if err != nil {
			return err
		}
		out, err := orch.Run(cmd.Context(), runTopic)
		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
		}
		if err != nil {
			return err
		}
		logging.New("run").Info("run complete", "run_id", out.RunID, "topic", out.Topic, "score", out.Score, "attempts", out.Attempts)
		if !runJSON {
			fmt.Fprintln(cmd.OutOrStdout(), out.ApprovalURL)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTopic, "topic", "", "topic to write about (default: random from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the approval email instead of sending it")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run outcome as JSON")
}
