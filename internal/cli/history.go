package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *options) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer gen.Storage.Close()

			if limit <= 0 {
				limit = opts.cfg.Feed.HistoryWindow
			}
			posts, err := gen.Storage.Recent(limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}

			if len(posts) == 0 {
				fmt.Fprintln(w, "No posts yet")
				return nil
			}

			p := newPalette(w)
			p.header.Fprintf(w, "=== %d most recent posts ===\n", len(posts))
			for _, post := range posts {
				fmt.Fprintf(w, "%s  %s ", formatDate(post.Date), truncate(post.Title, 70))
				if !post.Novel {
					p.warn.Fprint(w, "[exhausted] ")
				}
				p.dim.Fprintf(w, "%s\n", post.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of posts to show (default: feed.history_window)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print posts as JSON")

	return cmd
}
