package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/matsen/bibnet/internal/datasource"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// WriteResponse reports the keys a write applied.
type WriteResponse[K fmt.Stringer] struct {
	Applied []K      `json:"applied"`
	Notes   []string `json:"notes,omitempty"`
}

// DeleteResponse reports how many entities a delete removed.
type DeleteResponse struct {
	Deleted int      `json:"deleted"`
	Notes   []string `json:"notes,omitempty"`
}

func printWrite[K fmt.Stringer](verb string, applied []K, notes []string) {
	if !humanOutput {
		if applied == nil {
			applied = []K{}
		}
		outputJSON(WriteResponse[K]{Applied: applied, Notes: notes})
		return
	}
	printNotes(notes)
	outputHuman("%s %d key(s)\n", verb, len(applied))
	for _, k := range applied {
		outputHuman("  %s\n", k)
	}
}

func printDelete(n int, notes []string) {
	if !humanOutput {
		outputJSON(DeleteResponse{Deleted: n, Notes: notes})
		return
	}
	printNotes(notes)
	outputHuman("Deleted %d\n", n)
}

func printNotes(notes []string) {
	for _, n := range notes {
		fmt.Fprintf(os.Stderr, "note: %s\n", n)
	}
}

// printRecords prints a key to record map, keys sorted.
func printRecords[K datasource.Key, V any](got map[K]V, notes []string) {
	if !humanOutput {
		out := make(map[string]V, len(got))
		for k, v := range got {
			out[k.String()] = v
		}
		outputJSON(out)
		return
	}
	printNotes(notes)
	keys := make([]K, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		data, _ := json.Marshal(got[k])
		outputHuman("%s\t%s\n", k, data)
	}
	if len(keys) == 0 {
		outputHuman("No matches\n")
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
