package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
)

// ops are the four keyed operations of one entity kind on one source.
type ops[K datasource.Key] struct {
	create func(context.Context, datasource.Spec[K], datasource.Record) ([]K, error)
	read   func(context.Context, datasource.Spec[K]) (map[K]datasource.Record, error)
	update func(context.Context, datasource.Spec[K], datasource.Record) ([]K, error)
	delete func(context.Context, datasource.Spec[K]) (int, error)
}

// entity describes a record-valued entity kind for the CLI.
type entity[K datasource.Key] struct {
	name          string // command name, e.g. "doc"
	keyForm       string // e.g. "docset/doc"
	defaultSource string
	parse         func(string) (K, error)
	bind          func(datasource.Source) (ops[K], bool)
}

func docOps(src datasource.Source) (ops[datasource.DocKey], bool) {
	s, ok := src.(datasource.DocSource)
	if !ok {
		return ops[datasource.DocKey]{}, false
	}
	return ops[datasource.DocKey]{s.CreateDoc, s.ReadDoc, s.UpdateDoc, s.DeleteDoc}, true
}

func rowOps(src datasource.Source) (ops[datasource.RowKey], bool) {
	s, ok := src.(datasource.RowSource)
	if !ok {
		return ops[datasource.RowKey]{}, false
	}
	return ops[datasource.RowKey]{s.CreateRow, s.ReadRow, s.UpdateRow, s.DeleteRow}, true
}

func nodeOps(src datasource.Source) (ops[datasource.NodeKey], bool) {
	s, ok := src.(datasource.GraphSource)
	if !ok {
		return ops[datasource.NodeKey]{}, false
	}
	return ops[datasource.NodeKey]{s.CreateNode, s.ReadNode, s.UpdateNode, s.DeleteNode}, true
}

func edgeOps(src datasource.Source) (ops[datasource.EdgeKey], bool) {
	s, ok := src.(datasource.GraphSource)
	if !ok {
		return ops[datasource.EdgeKey]{}, false
	}
	return ops[datasource.EdgeKey]{s.CreateEdge, s.ReadEdge, s.UpdateEdge, s.DeleteEdge}, true
}

// command builds "<name> {create,read,update,delete}" for e.
func (e entity[K]) command(short string) *cobra.Command {
	var source, value, file string

	parent := &cobra.Command{
		Use:   e.name,
		Short: short,
	}
	parent.PersistentFlags().StringVarP(&source, "source", "s", e.defaultSource, "Data source name")

	withOps := func(args []string, run func(context.Context, ops[K], datasource.Spec[K]) error) error {
		spec, err := parseSpec(args, e.parse)
		if err != nil {
			return err
		}
		ws := mustOpenWorkspace()
		defer ws.mustClose()

		src, err := ws.source(source)
		if err != nil {
			return err
		}
		o, ok := e.bind(src)
		if !ok {
			return datasource.Unsupported(src.Kind(), e.name+"s")
		}
		return run(context.Background(), o, spec)
	}

	write := func(verb string, op func(ops[K]) func(context.Context, datasource.Spec[K], datasource.Record) ([]K, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rec := datasource.Record{}
			if err := readValue(value, file, &rec); err != nil {
				return err
			}
			return withOps(args, func(ctx context.Context, o ops[K], spec datasource.Spec[K]) error {
				var notes datasource.Notes
				applied, err := op(o)(datasource.WithNotes(ctx, &notes), spec, rec)
				printWrite(verb, applied, notes.List())
				return err
			})
		}
	}

	create := &cobra.Command{
		Use:   "create <" + e.keyForm + ">...",
		Short: "Create " + e.name + "s, replacing existing ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: write("Created", func(o ops[K]) func(context.Context, datasource.Spec[K], datasource.Record) ([]K, error) {
			return o.create
		}),
	}
	update := &cobra.Command{
		Use:   "update <" + e.keyForm + ">...",
		Short: "Merge a value into " + e.name + "s, creating missing ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: write("Updated", func(o ops[K]) func(context.Context, datasource.Spec[K], datasource.Record) ([]K, error) {
			return o.update
		}),
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&value, "value", "", "Value as YAML or JSON")
		c.Flags().StringVarP(&file, "file", "f", "", "Read the value from a YAML or JSON file")
	}

	read := &cobra.Command{
		Use:   "read <" + e.keyForm + ">...",
		Short: "Read " + e.name + "s",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOps(args, func(ctx context.Context, o ops[K], spec datasource.Spec[K]) error {
				var notes datasource.Notes
				got, err := o.read(datasource.WithNotes(ctx, &notes), spec)
				if err != nil {
					return err
				}
				printRecords(got, notes.List())
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <" + e.keyForm + ">...",
		Short: "Delete " + e.name + "s",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOps(args, func(ctx context.Context, o ops[K], spec datasource.Spec[K]) error {
				var notes datasource.Notes
				n, err := o.delete(datasource.WithNotes(ctx, &notes), spec)
				printDelete(n, notes.List())
				return err
			})
		},
	}

	parent.AddCommand(create, read, update, del)
	return parent
}

var (
	docEntity = entity[datasource.DocKey]{
		name: "doc", keyForm: "docset/doc", defaultSource: "docs",
		parse: parseDocKey, bind: docOps,
	}
	rowEntity = entity[datasource.RowKey]{
		name: "row", keyForm: "table/row", defaultSource: "rows",
		parse: parseRowKey, bind: rowOps,
	}
	nodeEntity = entity[datasource.NodeKey]{
		name: "node", keyForm: "graph/node", defaultSource: "graphs",
		parse: parseNodeKey, bind: nodeOps,
	}
	edgeEntity = entity[datasource.EdgeKey]{
		name: "edge", keyForm: "graph/node1/node2", defaultSource: "graphs",
		parse: parseEdgeKey, bind: edgeOps,
	}
)

// rowCmd is kept so table commands can attach to it.
var rowCmd = rowEntity.command("Create, read, update and delete table rows")

func init() {
	rootCmd.AddCommand(
		docEntity.command("Create, read, update and delete documents"),
		rowCmd,
		nodeEntity.command("Create, read, update and delete graph nodes"),
		edgeEntity.command("Create, read, update and delete graph edges"),
	)
}
