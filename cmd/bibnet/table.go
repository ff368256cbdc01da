package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
)

// tableLister is implemented by row sources that can enumerate their tables.
type tableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

// tableManager is implemented by row sources with explicit table DDL.
type tableManager interface {
	CreateTable(ctx context.Context, table string) error
	DeleteTable(ctx context.Context, table string) (bool, error)
}

func init() {
	tableCmd.AddCommand(tableListCmd, tableCreateCmd, tableDeleteCmd)
	rowCmd.AddCommand(tableCmd)
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "List, create and delete tables of a row source",
}

// TablesResponse lists the tables of a row source.
type TablesResponse struct {
	Source string   `json:"source"`
	Tables []string `json:"tables"`
}

// TableResponse reports a table change.
type TableResponse struct {
	Table   string `json:"table"`
	Created bool   `json:"created,omitempty"`
	Existed bool   `json:"existed,omitempty"`
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		ws := mustOpenWorkspace()
		defer ws.mustClose()

		src, err := ws.source(source)
		if err != nil {
			return err
		}
		l, ok := src.(tableLister)
		if !ok {
			return datasource.Unsupported(src.Kind(), "listing tables")
		}
		tables, err := l.Tables(context.Background())
		if err != nil {
			return err
		}
		if tables == nil {
			tables = []string{}
		}
		if humanOutput {
			for _, t := range tables {
				outputHuman("%s\n", t)
			}
			return nil
		}
		return outputJSON(TablesResponse{Source: source, Tables: tables})
	},
}

var tableCreateCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create an empty table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTables(cmd, func(ctx context.Context, m tableManager) error {
			if err := m.CreateTable(ctx, args[0]); err != nil {
				return err
			}
			if humanOutput {
				outputHuman("Created table %s\n", args[0])
				return nil
			}
			return outputJSON(TableResponse{Table: args[0], Created: true})
		})
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete <table>",
	Short: "Drop a table and its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTables(cmd, func(ctx context.Context, m tableManager) error {
			existed, err := m.DeleteTable(ctx, args[0])
			if err != nil {
				return err
			}
			if humanOutput {
				if existed {
					outputHuman("Dropped table %s\n", args[0])
				} else {
					outputHuman("No table %s\n", args[0])
				}
				return nil
			}
			return outputJSON(TableResponse{Table: args[0], Existed: existed})
		})
	},
}

func withTables(cmd *cobra.Command, run func(context.Context, tableManager) error) error {
	source, _ := cmd.Flags().GetString("source")
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	src, err := ws.source(source)
	if err != nil {
		return err
	}
	m, ok := src.(tableManager)
	if !ok {
		return datasource.Unsupported(src.Kind(), "table management")
	}
	return run(context.Background(), m)
}
