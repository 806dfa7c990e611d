package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/cascade/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task description...]",
		Short: "Plan and execute a coding task",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			outputMode, _ := cmd.Flags().GetString("output-mode")
			ci, _ := cmd.Flags().GetBool("ci")

			// If --ci is set, override output-mode to "plain"
			if ci {
				outputMode = "plain"
			}

			summary, err := c.app.RunCascade(cmd.Context(), strings.Join(args, " "), app.RunOptions{
				DryRun:     dryRun,
				OutputMode: outputMode,
			})
			if err != nil {
				return err
			}
			if dryRun {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "planned %d step(s)\n", summary.Steps)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("dry-run", "d", false, "Plan the task and print the step graph without executing it")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, pretty, or plain")
	cmd.Flags().Bool("ci", false, "Use plain output mode (shorthand for --output-mode=plain)")
	return cmd
}
