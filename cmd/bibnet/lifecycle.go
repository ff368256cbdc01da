package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/graphds"
	"github.com/matsen/bibnet/internal/datasource/jsonds"
)

var clearYes bool

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm removing every partition")
	rootCmd.AddCommand(flushCmd, reloadCmd, clearCmd)
}

// LifecycleResponse lists the sources a lifecycle command touched.
type LifecycleResponse struct {
	Action  string   `json:"action"`
	Sources []string `json:"sources"`
}

var flushCmd = &cobra.Command{
	Use:   "flush [source]...",
	Short: "Write dirty partitions of file-backed sources to disk",
	Long: `Write dirty partitions of file-backed sources to disk.

With no arguments every configured json and graph source is flushed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle("flush", args, func(src datasource.Source) (bool, error) {
			lc, ok := src.(datasource.Lifecycle)
			if !ok {
				return false, nil
			}
			return true, lc.Flush()
		})
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload [source]...",
	Short: "Flush, then reread file-backed sources from disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle("reload", args, func(src datasource.Source) (bool, error) {
			// Read-only sources such as pdf reload without the rest of Lifecycle.
			r, ok := src.(interface{ Reload() error })
			if !ok {
				return false, nil
			}
			return true, r.Reload()
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <source>...",
	Short: "Empty file-backed sources and remove their files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("clear removes every partition of %v; pass --yes to confirm", args)
		}
		return runLifecycle("clear", args, func(src datasource.Source) (bool, error) {
			lc, ok := src.(datasource.Lifecycle)
			if !ok {
				return false, nil
			}
			return true, lc.Clear()
		})
	},
}

func runLifecycle(action string, names []string, op func(datasource.Source) (bool, error)) error {
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	explicit := len(names) > 0
	if !explicit {
		names = ws.sources.Names()
	}

	done := []string{}
	for _, name := range names {
		typ := ws.sources[name].String("", "_pre_init", "type")
		if !explicit && typ != jsonds.Type && typ != graphds.Type {
			continue
		}
		src, err := ws.source(name)
		if err != nil {
			return err
		}
		ok, err := op(src)
		if err != nil {
			return fmt.Errorf("%s %s: %w", action, name, err)
		}
		if !ok {
			if explicit {
				return datasource.Unsupported(src.Kind(), action)
			}
			continue
		}
		done = append(done, name)
	}

	if humanOutput {
		for _, name := range done {
			outputHuman("%s: %s\n", action, name)
		}
		return nil
	}
	return outputJSON(LifecycleResponse{Action: action, Sources: done})
}
