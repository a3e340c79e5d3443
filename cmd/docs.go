package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage documents in the store",
	Long: `Docs works on the SQLite document store filled by convert --save and
import --save.

Examples:
  flatdoc docs list
  flatdoc docs show notes-1
  flatdoc docs export notes-1 --to pdf --output_dir ./out
  flatdoc docs delete notes-1`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the document model JSON of a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Render a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsExport,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd, docsShowCmd, docsExportCmd, docsDeleteCmd)

	docsExportCmd.Flags().StringVar(&flagTo, "to", "", "Output format, or \"all\"")
	docsExportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	s, err := p.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.List(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents stored.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSOURCE\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Title, d.Source, d.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	s, err := p.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runDocsExport(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}
	ctx := context.Background()

	renderers, err := p.renderers(ctx, flagTo)
	if err != nil {
		return err
	}
	s, err := p.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.Load(ctx, args[0])
	if err != nil {
		return err
	}
	return p.write(cmd.OutOrStdout(), d, d.ID, renderers, flagOutputDir)
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	s, err := p.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted: %s\n", args[0])
	return nil
}
