package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// timeRounding keeps printed durations readable.
const timeRounding = time.Millisecond

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the source index",
	}
	cmd.AddCommand(c.newQueryDefCmd())
	cmd.AddCommand(c.newQueryFilesCmd())
	cmd.AddCommand(c.newQueryUsagesCmd())
	return cmd
}

func (c *CLI) newQueryDefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "def <name>",
		Short: "Locate the declarations of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			occurrences, err := c.app.QueryDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(occurrences) == 0 {
				_, _ = fmt.Fprintf(out, "no declaration of %q found\n", args[0])
				return nil
			}
			for _, occ := range occurrences {
				_, _ = fmt.Fprintf(out, "%s:%d-%d (%s)\n", occ.Path, occ.StartLine, occ.EndLine, occ.Kind)
			}
			return nil
		},
	}
}

func (c *CLI) newQueryFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files [task description...]",
		Short: "Rank indexed files by relevance to a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxFiles, _ := cmd.Flags().GetInt("max")
			scores, err := c.app.QueryFiles(cmd.Context(), strings.Join(args, " "), maxFiles)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, score := range scores {
				_, _ = fmt.Fprintf(out, "%8.2f  %s\n", score.Score, score.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntP("max", "m", 0, "Maximum number of files to return (0 uses the configured limit)")
	return cmd
}

func (c *CLI) newQueryUsagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usages <module>",
		Short: "List the files importing a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := c.app.QueryUsages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				_, _ = fmt.Fprintf(out, "no importers of %q found\n", args[0])
				return nil
			}
			for _, path := range paths {
				_, _ = fmt.Fprintln(out, path)
			}
			return nil
		},
	}
}
