package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/analysis"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/graph"
)

var (
	analyzeSource    string
	analyzeWeight    string
	analyzeTop       int
	analyzeStore     string
	analyzeDirection string
	analyzeDamping   float64
	analyzeSeed      int64
)

func init() {
	analyzeCmd.PersistentFlags().StringVarP(&analyzeSource, "source", "s", "graphs", "Graph source name")
	analyzeCmd.PersistentFlags().StringVar(&analyzeWeight, "weight", "", "Edge attribute to use as weight (e.g. count)")
	for _, c := range []*cobra.Command{analyzeDegreeCmd, analyzePageRankCmd} {
		c.Flags().IntVarP(&analyzeTop, "top", "n", 20, "Number of nodes to print (0 = all)")
		c.Flags().StringVar(&analyzeStore, "store", "", "Also write each node's score to this node attribute")
	}
	analyzeCommunitiesCmd.Flags().StringVar(&analyzeStore, "store", "", "Also write each node's community id to this node attribute")
	analyzeDegreeCmd.Flags().StringVar(&analyzeDirection, "direction", "both", "Edges to count on directed graphs: both, in, or out")
	analyzePageRankCmd.Flags().Float64Var(&analyzeDamping, "damping", 0.85, "Damping factor")
	analyzeCommunitiesCmd.Flags().Int64Var(&analyzeSeed, "seed", 0, "Seed for the node visiting order")

	analyzeCmd.AddCommand(analyzeSummaryCmd, analyzeDegreeCmd, analyzePageRankCmd, analyzeCommunitiesCmd)
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a stored graph",
}

// ScoresResponse is the JSON output of degree and pagerank.
type ScoresResponse struct {
	Graph   string           `json:"graph"`
	Measure string           `json:"measure"`
	Scores  []analysis.Score `json:"scores"`
	Stored  int              `json:"stored,omitempty"`
}

// CommunitiesResponse is the JSON output of communities.
type CommunitiesResponse struct {
	Graph       string               `json:"graph"`
	Communities []analysis.Community `json:"communities"`
	Stored      int                  `json:"stored,omitempty"`
}

var analyzeSummaryCmd = &cobra.Command{
	Use:     "summary <graph>",
	Aliases: []string{"density"},
	Short:   "Print node and edge counts, density and average degree",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGraph(args[0], func(ctx context.Context, _ datasource.GraphSource, g *graph.Graph) error {
			s := analysis.Summarize(g)
			if humanOutput {
				outputHuman("%s: %d nodes, %d edges, directed=%t\n", args[0], s.Nodes, s.Edges, s.Directed)
				outputHuman("density %.6f, average degree %.3f\n", s.Density, s.AverageDegree)
				return nil
			}
			return outputJSON(s)
		})
	},
}

var analyzeDegreeCmd = &cobra.Command{
	Use:   "degree <graph>",
	Short: "Rank nodes by degree centrality",
	Long: `Rank nodes by degree centrality: degree divided by n-1, or with --weight
the summed edge weight divided by the graph's total weight.

Examples:
  bibnet analyze degree authors --weight count --top 10
  bibnet analyze degree citations --direction in --store in_degree`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := parseDirection(analyzeDirection)
		if err != nil {
			return err
		}
		return withGraph(args[0], func(ctx context.Context, src datasource.GraphSource, g *graph.Graph) error {
			scores := analysis.Degree(g, dir, analyzeWeight)
			return reportScores(ctx, src, args[0], "degree", scores)
		})
	},
}

var analyzePageRankCmd = &cobra.Command{
	Use:   "pagerank <graph>",
	Short: "Rank nodes by PageRank",
	Long: `Rank nodes by PageRank. Undirected edges count in both directions.

Example:
  bibnet analyze pagerank citations --top 10 --store pagerank`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGraph(args[0], func(ctx context.Context, src datasource.GraphSource, g *graph.Graph) error {
			scores, err := analysis.PageRank(g, analysis.PageRankOptions{Damping: analyzeDamping, Weight: analyzeWeight})
			if err != nil {
				return err
			}
			return reportScores(ctx, src, args[0], "pagerank", scores)
		})
	},
}

var analyzeCommunitiesCmd = &cobra.Command{
	Use:   "communities <graph>",
	Short: "Detect communities by label propagation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGraph(args[0], func(ctx context.Context, src datasource.GraphSource, g *graph.Graph) error {
			comms, err := analysis.Communities(ctx, g, analysis.CommunityOptions{Weight: analyzeWeight, Seed: analyzeSeed})
			if err != nil {
				return err
			}
			resp := CommunitiesResponse{Graph: args[0], Communities: comms}
			if analyzeStore != "" {
				values := make(map[string]any)
				for n, id := range analysis.Membership(comms) {
					values[n] = id
				}
				if resp.Stored, err = storeNodeValues(ctx, src, args[0], values); err != nil {
					return err
				}
			}

			if !humanOutput {
				return outputJSON(resp)
			}
			outputHuman("%d communities in %s\n", len(comms), args[0])
			for _, c := range comms {
				outputHuman("  %3d  (%d)  %s\n", c.ID, len(c.Members), truncateString(strings.Join(c.Members, " "), 100))
			}
			return nil
		})
	},
}

func parseDirection(s string) (analysis.Direction, error) {
	switch s {
	case "both":
		return analysis.Both, nil
	case "in":
		return analysis.In, nil
	case "out":
		return analysis.Out, nil
	}
	return 0, fmt.Errorf("invalid direction %q (must be both, in, or out)", s)
}

// withGraph loads one graph from the analyze source.
func withGraph(name string, run func(context.Context, datasource.GraphSource, *graph.Graph) error) error {
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	src, err := ws.graphs(analyzeSource)
	if err != nil {
		return err
	}
	ctx := context.Background()
	got, err := src.ReadGraph(ctx, datasource.One(datasource.GraphKey(name)))
	if err != nil {
		return err
	}
	g, ok := got[datasource.GraphKey(name)]
	if !ok {
		return fmt.Errorf("%w: %s", datasource.ErrGraphNotFound, name)
	}
	return run(ctx, src, g)
}

func reportScores(ctx context.Context, src datasource.GraphSource, name, measure string, scores map[string]float64) error {
	resp := ScoresResponse{Graph: name, Measure: measure, Scores: analysis.Top(scores, analyzeTop)}
	if analyzeStore != "" {
		values := make(map[string]any, len(scores))
		for n, v := range scores {
			values[n] = v
		}
		var err error
		if resp.Stored, err = storeNodeValues(ctx, src, name, values); err != nil {
			return err
		}
	}

	if !humanOutput {
		return outputJSON(resp)
	}
	for i, s := range resp.Scores {
		outputHuman("%4d  %-50s  %.6f\n", i+1, truncateString(s.Node, 50), s.Value)
	}
	if resp.Stored > 0 {
		outputHuman("Stored %s on %d nodes as %q\n", measure, resp.Stored, analyzeStore)
	}
	return nil
}

// storeNodeValues writes values[node] to the analyzeStore attribute of each
// node, one update per node.
func storeNodeValues(ctx context.Context, src datasource.GraphSource, name string, values map[string]any) (int, error) {
	var errs []error
	n := 0
	for node, v := range values {
		key := datasource.NodeKey{Graph: name, Node: node}
		applied, err := src.UpdateNode(ctx, datasource.One(key), datasource.Record{analyzeStore: v})
		n += len(applied)
		if err != nil {
			errs = append(errs, fmt.Errorf("storing %s: %w", key, err))
		}
	}
	return n, errors.Join(errs...)
}
