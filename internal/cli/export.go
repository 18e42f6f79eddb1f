package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every page with its revision history",
		Long: `Dump the documents record of the configured backend.

--format json writes the record exactly as the store saves it (indented);
--format yaml writes the same pages as YAML. text is treated as json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, backend, err := openStore(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)

			var out []byte
			if rootOpts.Format == "yaml" {
				out, err = yaml.Marshal(s.ListPages())
			} else {
				var raw []byte
				if raw, err = s.Snapshot(); err == nil {
					var buf bytes.Buffer
					err = json.Indent(&buf, raw, "", "  ")
					buf.WriteByte('\n')
					out = buf.Bytes()
				}
			}
			if err != nil {
				return fmt.Errorf("encode pages: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = w.Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
