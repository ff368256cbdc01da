package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
)

var (
	graphSource   string
	graphValue    string
	graphFile     string
	graphDirected bool
)

func init() {
	graphCmd.PersistentFlags().StringVarP(&graphSource, "source", "s", "graphs", "Graph source name")
	for _, c := range []*cobra.Command{graphCreateCmd, graphUpdateCmd} {
		c.Flags().StringVar(&graphValue, "value", "", "Graph spec as YAML or JSON (directed, attrs, nodes, edges, node_attrs, edge_attrs)")
		c.Flags().StringVarP(&graphFile, "file", "f", "", "Read the graph spec from a YAML or JSON file")
	}
	graphCreateCmd.Flags().BoolVar(&graphDirected, "directed", false, "Create directed graphs")

	graphCmd.AddCommand(graphCreateCmd, graphReadCmd, graphUpdateCmd, graphDeleteCmd)
	rootCmd.AddCommand(graphCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Create, read, update and delete whole graphs",
}

var graphCreateCmd = &cobra.Command{
	Use:   "create <graph>...",
	Short: "Create graphs from a spec, replacing existing ones",
	Long: `Create graphs from a spec, replacing existing ones.

Example:
  bibnet graph create citations --directed
  bibnet graph create g --value '{nodes: {a: {}}, edges: [{node1: a, node2: b}]}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var spec datasource.GraphSpec
		if err := readValue(graphValue, graphFile, &spec); err != nil {
			return err
		}
		if cmd.Flags().Changed("directed") {
			spec.Directed = graphDirected
		}
		return withGraphs(args, func(ctx context.Context, g datasource.GraphSource, keys datasource.Spec[datasource.GraphKey]) error {
			applied, err := g.CreateGraph(ctx, keys, spec)
			printWrite("Created", applied, nil)
			return err
		})
	},
}

var graphReadCmd = &cobra.Command{
	Use:   "read <graph>...",
	Short: "Read graphs as specs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGraphs(args, func(ctx context.Context, g datasource.GraphSource, keys datasource.Spec[datasource.GraphKey]) error {
			got, err := g.ReadGraph(ctx, keys)
			if err != nil {
				return err
			}
			out := make(map[datasource.GraphKey]datasource.GraphSpec, len(got))
			for k, gr := range got {
				out[k] = datasource.SpecOf(gr)
			}
			printRecords(out, nil)
			return nil
		})
	},
}

var graphUpdateCmd = &cobra.Command{
	Use:   "update <graph>...",
	Short: "Merge a spec into graphs, creating missing ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var spec datasource.GraphSpec
		if err := readValue(graphValue, graphFile, &spec); err != nil {
			return err
		}
		return withGraphs(args, func(ctx context.Context, g datasource.GraphSource, keys datasource.Spec[datasource.GraphKey]) error {
			applied, err := g.UpdateGraph(ctx, keys, spec)
			printWrite("Updated", applied, nil)
			return err
		})
	},
}

var graphDeleteCmd = &cobra.Command{
	Use:   "delete <graph>...",
	Short: "Delete graphs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGraphs(args, func(ctx context.Context, g datasource.GraphSource, keys datasource.Spec[datasource.GraphKey]) error {
			n, err := g.DeleteGraph(ctx, keys)
			printDelete(n, nil)
			return err
		})
	},
}

func withGraphs(args []string, run func(context.Context, datasource.GraphSource, datasource.Spec[datasource.GraphKey]) error) error {
	keys, err := parseSpec(args, parseGraphKey)
	if err != nil {
		return err
	}
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	g, err := ws.graphs(graphSource)
	if err != nil {
		return err
	}
	return run(context.Background(), g, keys)
}
