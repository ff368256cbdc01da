package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/scholar"
)

var (
	ingestPDFs    string
	ingestDocs    string
	ingestDocset  string
	ingestResolve bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestPDFs, "pdfs", "pdfs", "PDF source to read from")
	ingestCmd.Flags().StringVar(&ingestDocs, "docs", "docs", "Document source to store references in")
	ingestCmd.Flags().StringVar(&ingestDocset, "docset", "papers", "Docset to store references in")
	ingestCmd.Flags().BoolVar(&ingestResolve, "resolve", false, "Look up extracted DOIs on Semantic Scholar")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest-pdf [docset/doc]...",
	Short: "Import PDFs from a pdf source as papers",
	Long: `Import PDFs from a pdf source as papers. Each PDF becomes a reference named
after the file, carrying the title and DOI found in its first pages. With
--resolve, PDFs whose DOI Semantic Scholar knows are stored as the full
paper record instead, named by its Semantic Scholar id.

With no keys, every PDF in the source is imported.

Examples:
  bibnet ingest-pdf
  bibnet ingest-pdf inbox/@* --resolve`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{datasource.Wildcard + "/" + datasource.Wildcard}
	}
	spec, err := parseSpec(args, parseDocKey)
	if err != nil {
		return err
	}

	ws := mustOpenWorkspace()
	defer ws.mustClose()

	pdfs, err := ws.docs(ingestPDFs)
	if err != nil {
		return err
	}
	docs, err := ws.docs(ingestDocs)
	if err != nil {
		return err
	}

	im := &scholar.Importer{Docs: docs, Docset: ingestDocset, Logger: slog.Default().With("source", ingestDocs)}
	if ingestResolve {
		im.API = newScholarClient()
	}
	stats, err := im.Import(context.Background(), pdfs, spec)
	if err != nil {
		return err
	}

	if humanOutput {
		outputHuman("%s\n", joinNonEmpty(", ",
			plural(stats.Imported, "paper imported", "papers imported"),
			resolvedNote(stats.Resolved)))
		return nil
	}
	return outputJSON(stats)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

func resolvedNote(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n) + " resolved by DOI"
}
