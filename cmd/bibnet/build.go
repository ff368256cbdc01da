package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/network"
)

var (
	buildDocs   string
	buildDocset string
	buildGraphs string
)

func init() {
	buildCmd.PersistentFlags().StringVar(&buildDocs, "docs", "docs", "Document source holding the papers")
	buildCmd.PersistentFlags().StringVar(&buildDocset, "docset", "papers", "Docset holding the papers")
	buildCmd.PersistentFlags().StringVar(&buildGraphs, "graphs", "graphs", "Graph source to build into")

	short := map[network.Kind]string{
		network.KindPaper:       "Citation network: paper -> cited paper",
		network.KindAuthor:      "Author network: co-authorship and author citation",
		network.KindTerm:        "Term co-occurrence network over titles and abstracts",
		network.KindPaperAuthor: "Bipartite paper -> author network",
		network.KindPaperTerm:   "Bipartite paper -> term network",
	}
	for _, kind := range network.Kinds() {
		buildCmd.AddCommand(buildKindCmd(kind, short[kind]))
	}
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build networks from stored papers",
	Long: `Build a network from the papers of a docset into a graph, creating the
graph if needed. Nodes are added only when absent; every occurrence of a
relation increments the edge's count, so building twice doubles counts.

Node names are prefixed by type: paper_, author_ and word_.`,
}

func buildKindCmd(kind network.Kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <graph>", kind),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := mustOpenWorkspace()
			defer ws.mustClose()

			docs, err := ws.docs(buildDocs)
			if err != nil {
				return err
			}
			graphs, err := ws.graphs(buildGraphs)
			if err != nil {
				return err
			}

			b := &network.Builder{Docs: docs, Graphs: graphs, Docset: buildDocset}
			stats, err := b.Build(context.Background(), kind, args[0])
			if err != nil {
				return err
			}
			if humanOutput {
				outputHuman("Built %s network %q from %d papers: %d nodes added, %d edge updates\n",
					kind, args[0], stats.Papers, stats.Nodes, stats.Edges)
				return nil
			}
			return outputJSON(stats)
		},
	}
}
