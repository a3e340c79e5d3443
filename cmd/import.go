package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
)

var importCmd = &cobra.Command{
	Use:   "import <input>",
	Short: "Import a document and print the document model with the import report",
	Long: `Import reads a document like convert does and prints a JSON object with the
imported document model and the report of skipped elements.

Examples:
  flatdoc import notes.md
  flatdoc import paper.nxml --strict
  flatdoc import https://example.com/guide --save`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&flagFrom, "from", "", "Input format (default: detected)")
	importCmd.Flags().BoolVar(&flagStrict, "strict", false, "Fail on unsupported elements instead of skipping them")
	importCmd.Flags().BoolVar(&flagSave, "save", false, "Also save the imported document to the store")
}

// importResult is what the import command prints.
type importResult struct {
	Document *doc.Document `json:"document"`
	Report   *core.Report  `json:"report"`
}

func runImport(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	ctx := context.Background()

	in, err := p.read(ctx, args[0], flagFrom, cmd.InOrStdin())
	if err != nil {
		return err
	}
	d, report, err := p.load(ctx, in, flagStrict)
	if err != nil {
		return err
	}
	if report == nil {
		report = &core.Report{}
	}
	if report.Warnings == nil {
		report.Warnings = []core.Warning{}
	}

	if flagSave {
		s, err := p.openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Save(ctx, d, args[0]); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(importResult{Document: d, Report: report}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
