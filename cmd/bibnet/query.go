package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <source> <query> [arg]...",
	Short: "Run a backend-native query",
	Long: `Run a backend-native query against one source.

The query language depends on the backend: SQL for sqlite, PartiQL for
dynamo, and a collection name for mongo (the first argument, if given, is
a JSON filter). Sources without a native query language fail.

Examples:
  bibnet query rows 'SELECT row_key, json FROM "papers" WHERE row_key > ?' p1
  bibnet query mongo papers '{"venue": "Nature"}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	ws := mustOpenWorkspace()
	defer ws.mustClose()

	src, err := ws.source(args[0])
	if err != nil {
		return err
	}

	params := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		// JSON arguments are decoded; anything else is passed as a string.
		var v any
		if err := json.Unmarshal([]byte(a), &v); err == nil {
			params = append(params, v)
		} else {
			params = append(params, a)
		}
	}

	recs, err := src.Query(context.Background(), args[1], params...)
	if err != nil {
		return err
	}
	if humanOutput {
		for _, r := range recs {
			data, _ := json.Marshal(r)
			outputHuman("%s\n", data)
		}
		return nil
	}
	if recs == nil {
		return outputJSON([]any{})
	}
	return outputJSON(recs)
}
