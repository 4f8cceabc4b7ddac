package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAtomCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "atom",
		Short: "Re-render the Atom feed from the JSON feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Feed.AtomPath == "" {
				return fmt.Errorf("feed.atom_path is not set")
			}
			gen, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer gen.Storage.Close()

			if err := gen.WriteAtom(); err != nil {
				return fmt.Errorf("write atom feed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.cfg.Feed.AtomPath)
			return nil
		},
	}
}
