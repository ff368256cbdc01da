package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace with the default sources",
	Long: `Create a .bibnet workspace in the current directory (or --workspace)
with a sources.yml declaring a JSON document store "docs", a GraphML
graph store "graphs" and a SQLite row store "rows". An existing
sources.yml is left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		if err := config.Init(root); err != nil {
			return err
		}
		path := config.SourcesPath(root)
		if humanOutput {
			outputHuman("Initialized bibnet workspace in %s\n", config.WorkspacePath(root))
			return nil
		}
		return outputJSON(StatusResponse{Status: "initialized", Path: path})
	},
}

