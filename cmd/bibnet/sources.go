package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// SourceInfo describes one configured source.
type SourceInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
}

// SourcesResponse lists the configured sources and the available types.
type SourcesResponse struct {
	Root    string       `json:"root"`
	Sources []SourceInfo `json:"sources"`
	Types   []string     `json:"types"`
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured data sources",
	Long: `List the data sources of the workspace, merged from the site, user and
workspace sources.yml files, and the backend types this build supports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := mustOpenWorkspace()
		defer ws.mustClose()

		resp := SourcesResponse{Root: ws.root, Sources: []SourceInfo{}, Types: ws.factory.Types()}
		for _, name := range ws.sources.Names() {
			t := ws.sources[name]
			resp.Sources = append(resp.Sources, SourceInfo{
				Name:     name,
				Type:     t.String("", "_pre_init", "type"),
				Location: t.String("", "init", "location"),
			})
		}

		if humanOutput {
			outputHuman("Workspace: %s\n", resp.Root)
			for _, s := range resp.Sources {
				outputHuman("  %-12s %-8s %s\n", s.Name, s.Type, s.Location)
			}
			outputHuman("Types: %v\n", resp.Types)
			return nil
		}
		return outputJSON(resp)
	},
}

