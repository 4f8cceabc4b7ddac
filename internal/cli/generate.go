package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dailypost/backend/internal/generator"
)

func newGenerateCommand(opts *options) *cobra.Command {
	var (
		topic  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate today's post",
		Long: `Ask the configured model for a post, reject drafts that are too similar to
recent posts and retry with a steering hint. After the last attempt the final
draft is published even if it is still too similar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer gen.Storage.Close()

			result, err := gen.Run(cmd.Context(), generator.RunOptions{
				Topic:  topic,
				DryRun: dryRun || opts.cfg.Generator.DryRun,
			})
			if err != nil {
				return fmt.Errorf("generate post: %w", err)
			}

			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic for this run (overrides generator.topic)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the post without saving it")

	return cmd
}

func printResult(cmd *cobra.Command, result *generator.Result) {
	w := cmd.OutOrStdout()
	p := newPalette(w)

	p.header.Fprintf(w, "=== %s ===\n", result.Post.Title)
	fmt.Fprint(w, "State: ")
	p.state(w, result.State)
	fmt.Fprintf(w, " after %d attempt(s)\n", len(result.Attempts))
	printAttempts(w, p, result.Attempts)

	if result.Saved {
		fmt.Fprintf(w, "Saved post %s\n", result.Post.ID)
	} else {
		p.dim.Fprintln(w, "Dry run, nothing saved")
		fmt.Fprintf(w, "\n%s\n", result.Post.Content)
	}
}
