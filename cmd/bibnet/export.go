package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/export"
	"github.com/matsen/bibnet/internal/reference"
)

var (
	exportSource string
	exportOutput string
	exportAppend bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportSource, "source", "s", "docs", "Document source holding the papers")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output .bib file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append to --output, skipping entries it already has (by DOI, then key)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [docset]",
	Short: "Export stored papers as BibTeX",
	Long: `Export the papers of a docset as BibTeX, ordered by citation key.

Examples:
  bibnet export papers > refs.bib
  bibnet export papers -o refs.bib --append`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	docset := "papers"
	if len(args) == 1 {
		docset = args[0]
	}
	if exportAppend && exportOutput == "" {
		return fmt.Errorf("--append requires --output")
	}

	ws := mustOpenWorkspace()
	defer ws.mustClose()
	docs, err := ws.docs(exportSource)
	if err != nil {
		return err
	}
	got, err := docs.ReadDoc(context.Background(), datasource.One(datasource.DocKey{Docset: docset, Doc: datasource.Wildcard}))
	if err != nil {
		return err
	}
	refs := make([]reference.Reference, 0, len(got))
	for k, rec := range got {
		ref, err := reference.FromRecord(rec)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if ref.ID == "" {
			ref.ID = k.Doc
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return export.Key(refs[i]) < export.Key(refs[j]) })

	idx := export.NewIndex()
	if exportOutput == "" {
		_, err := export.Write(os.Stdout, refs, idx)
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exportAppend {
		if idx, err = export.ReadIndex(exportOutput); err != nil {
			return fmt.Errorf("reading %s: %w", exportOutput, err)
		}
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(exportOutput, flags, 0644)
	if err != nil {
		return err
	}
	n, err := export.Write(f, refs, idx)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}

	if humanOutput {
		outputHuman("Wrote %d entries to %s (%d skipped)\n", n, exportOutput, len(refs)-n)
		return nil
	}
	return outputJSON(map[string]any{"output": exportOutput, "written": n, "skipped": len(refs) - n})
}
