package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Index the configured source roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.app.Scan(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "indexed %d file(s) in %v\n", result.Files, result.Duration.Round(timeRounding))
			for _, issue := range result.Issues {
				_, _ = fmt.Fprintf(out, "  skipped %s: %s\n", issue.Path, issue.Message)
			}
			return nil
		},
	}
}
