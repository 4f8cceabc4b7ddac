package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrTooSimilar is returned by check --strict when the text would be rejected
var ErrTooSimilar = errors.New("text is too similar to recent posts")

func newCheckCommand(opts *options) *cobra.Command {
	var (
		url    string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Score a text against recent posts",
		Long: `Run the novelty guard on a file, a web page (--url) or standard input
without generating anything. Prints cosine and trigram Jaccard scores for
every post in the history window.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer gen.Storage.Close()

			var text string
			switch {
			case url != "":
				page, err := gen.Fetcher.Fetch(cmd.Context(), url)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", url, err)
				}
				text = page.Title + "\n\n" + page.Text
			case len(args) == 1 && args[0] != "-":
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
				text = string(data)
			default:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			result, err := gen.Check(cmd.Context(), text)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printCheck(w, newPalette(w), result)

			if strict && !result.Verdict.Accepted {
				return ErrTooSimilar
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "fetch and check a web page instead of a file")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when the text is too similar")

	return cmd
}
