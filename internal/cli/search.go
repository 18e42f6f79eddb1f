package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Case-insensitive search over page titles and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, backend, err := openStore(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)

			results := s.SearchPages(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			switch rootOpts.Format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			case "yaml":
				return yaml.NewEncoder(out).Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tTITLE\tUPDATED BY\tUPDATED AT")
			for _, p := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Path, p.Title, p.UpdatedBy, p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}
