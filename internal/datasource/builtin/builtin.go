// Package builtin wires every bundled backend into a datasource.Factory.
package builtin

import (
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/dynamods"
	"github.com/matsen/bibnet/internal/datasource/graphds"
	"github.com/matsen/bibnet/internal/datasource/jsonds"
	"github.com/matsen/bibnet/internal/datasource/mongods"
	"github.com/matsen/bibnet/internal/datasource/natsds"
	"github.com/matsen/bibnet/internal/datasource/pdfds"
	"github.com/matsen/bibnet/internal/datasource/sqliteds"
)

// Openers maps each bundled type name to its opener.
var Openers = map[string]datasource.Opener{
	jsonds.Type:   jsonds.Open,
	graphds.Type:  graphds.Open,
	sqliteds.Type: sqliteds.Open,
	mongods.Type:  mongods.Open,
	natsds.Type:   natsds.Open,
	dynamods.Type: dynamods.Open,
	pdfds.Type:    pdfds.Open,
}

// NewFactory returns a factory with every bundled backend registered.
func NewFactory(opts datasource.Options) *datasource.Factory {
	f := datasource.NewFactory(opts)
	for typ, open := range Openers {
		// Types are distinct and openers non-nil, so Register cannot fail.
		if _, err := f.Register(typ, open); err != nil {
			panic(err)
		}
	}
	return f
}
