package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/scholar"
)

var (
	fetchSource  string
	fetchDocset  string
	fetchDepth   int
	fetchMaxRefs int
	fetchRefresh bool
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchSource, "source", "s", "docs", "Document source to store papers in")
	fetchCmd.Flags().StringVar(&fetchDocset, "docset", "papers", "Docset to store papers in")
	fetchCmd.Flags().IntVarP(&fetchDepth, "depth", "d", 1, "Reference hops to follow from the seeds")
	fetchCmd.Flags().IntVar(&fetchMaxRefs, "max-references", 0, "Cap on references fetched per paper (0 = all)")
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "Refetch papers already stored")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <paper-id>...",
	Short: "Fetch papers and their references from Semantic Scholar",
	Long: `Fetch papers from Semantic Scholar and store them as documents, following
references breadth first up to --depth hops.

Paper IDs can be Semantic Scholar IDs or prefixed identifiers:
  DOI:10.1234/example, ARXIV:2106.15928, PMID:19872477, CorpusId:215416146

A bare DOI or doi.org URL is accepted too. Set BIBNET_S2_API_KEY (or
s2_api_key in config.yml) for the higher rate limit.

Examples:
  bibnet fetch DOI:10.1093/ve/vey016 --depth 2
  bibnet fetch 649def34f8be52c8b66281af98ae884c09aef38b --docset seeds`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func newScholarClient() *scholar.Client {
	var opts []scholar.ClientOption
	if settings.S2APIKey != "" {
		opts = append(opts, scholar.WithAPIKey(settings.S2APIKey))
	}
	return scholar.NewClient(opts...)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	docs, err := ws.docs(fetchSource)
	if err != nil {
		return err
	}

	f := &scholar.Fetcher{
		API:           newScholarClient(),
		Docs:          docs,
		Docset:        fetchDocset,
		Depth:         fetchDepth,
		MaxReferences: fetchMaxRefs,
		Refresh:       fetchRefresh,
		Logger:        slog.Default().With("source", fetchSource),
	}
	stats, err := f.Fetch(context.Background(), args)
	if err != nil {
		return err
	}

	if humanOutput {
		outputHuman("Fetched %d, already stored %d, not found %d\n", stats.Fetched, stats.Cached, stats.Missing)
		return nil
	}
	return outputJSON(stats)
}
