package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gowiki/gowiki/internal/wiki"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
	"github.com/gowiki/gowiki/internal/wiki/store"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all pages with an exported snapshot",
		Long: `Replace the documents record of the configured backend with the pages in
<file> (JSON, or YAML when the file ends in .yaml/.yml). Every page is
checked (path grammar, unique ids and paths, timestamps) before anything is
written. Refuses to overwrite a non-empty wiki unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			record, count, err := decodeSnapshot(args[0], raw)
			if err != nil {
				return err
			}

			s, backend, err := openStore(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)
			if n := s.Len(); n > 0 && !force {
				return fmt.Errorf("wiki already has %d pages; use --force to replace them", n)
			}
			if err := backend.Adapter.Save(ctx, persistence.RecordDocuments, record); err != nil {
				return fmt.Errorf("save documents: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d pages\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace existing pages")
	return cmd
}

// decodeSnapshot parses a JSON or YAML snapshot, validates it the way the
// store validates a loaded record, and returns the JSON documents record.
func decodeSnapshot(name string, raw []byte) ([]byte, int, error) {
	var pages []*wiki.Page
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &pages); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", name, err)
		}
	default:
		var err error
		if pages, err = store.DecodePages(raw); err != nil {
			return nil, 0, err
		}
	}
	if err := store.ValidatePages(pages); err != nil {
		return nil, 0, fmt.Errorf("invalid snapshot: %w", err)
	}
	for _, p := range pages {
		if p.Revisions == nil {
			p.Revisions = []wiki.Revision{}
		}
	}
	record, err := json.Marshal(pages)
	if err != nil {
		return nil, 0, err
	}

	scratch := persistence.NewMemoryAdapter()
	if err := scratch.Save(context.Background(), persistence.RecordDocuments, record); err != nil {
		return nil, 0, err
	}
	check := store.New(scratch)
	if err := check.Load(context.Background()); err != nil {
		return nil, 0, fmt.Errorf("invalid snapshot: %w", err)
	}
	return record, check.Len(), nil
}
