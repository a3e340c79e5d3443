package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/flatdoc/core/output"
)

// Flag variables.
var (
	flagFrom      string
	flagTo        string
	flagOutputDir string
	flagStrict    bool
	flagSave      bool
)

// convertCmd is the main command. It runs the whole pipeline:
// read/fetch → parse → import → [save] → render → write.
var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a document to one or more output formats",
	Long: `Convert reads a document (a file, an http(s) URL or "-" for stdin), imports
it into the flat document model and renders it in the requested format.

Native input formats are json (pandoc AST), markdown, html and nlm (JATS
article XML). Native outputs are flatdoc (document model JSON), json (pandoc
AST), html, markdown and pdf. Any other format name is handed to pandoc.

Examples:
  flatdoc convert notes.md --to html
  flatdoc convert paper.nxml --to all --output_dir ./out
  flatdoc convert https://example.com/guide --to markdown --save
  cat doc.json | flatdoc convert - --from json --to docx`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&flagFrom, "from", "", "Input format (default: detected from the file extension or Content-Type)")
	convertCmd.Flags().StringVar(&flagTo, "to", "", `Output format, or "all" for `+strings.Join(allFormats, ", "))
	convertCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	convertCmd.Flags().BoolVar(&flagStrict, "strict", false, "Fail on unsupported elements instead of skipping them")
	convertCmd.Flags().BoolVar(&flagSave, "save", false, "Also save the imported document to the store")
}

func runConvert(cmd *cobra.Command, args []string) error {
	location := args[0]

	if err := validateFlags(); err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Select renderers before doing any work so a bad --to fails fast.
	renderers, err := p.renderers(ctx, flagTo)
	if err != nil {
		return err
	}

	in, err := p.read(ctx, location, flagFrom, cmd.InOrStdin())
	if err != nil {
		return err
	}
	d, report, err := p.load(ctx, in, flagStrict)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), report)

	if flagSave {
		s, err := p.openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Save(ctx, d, location); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved: %s\n", d.ID)
	}

	return p.write(cmd.OutOrStdout(), d, output.Name(location), renderers, flagOutputDir)
}

// validateFlags checks that an output format is given.
func validateFlags() error {
	if strings.TrimSpace(flagTo) == "" {
		return fmt.Errorf("an output format is required: --to %s, all, or a pandoc format", strings.Join(allFormats, ", "))
	}
	if strings.Contains(flagTo, ",") {
		return fmt.Errorf("only one output format allowed per run (got %q); use --to all", flagTo)
	}
	return nil
}
