// Package provider wires the concrete engines into one search.Provider.
package provider

import (
	"duckse/duckduck"
	"duckse/engines"
	"duckse/internal/transport"
	"duckse/search"
)

// Open builds a provider with every engine sharing one HTTP client. Closing
// the provider releases the client's idle connections.
func Open(opts transport.Options) (*search.Multi, error) {
	client, err := transport.NewClient(opts)
	if err != nil {
		return nil, err
	}
	m := search.NewMulti(
		duckduck.NewClient(client),
		engines.NewBing(client),
		engines.NewBrave(client),
		engines.NewMojeek(client),
		engines.NewWikipedia(client),
		engines.NewAnnasArchive(client),
	)
	m.OnClose(func() { transport.CloseIdle(client) })
	return m, nil
}

// Opener defers Open until a search actually runs.
func Opener(opts transport.Options) search.Opener {
	return func() (search.Provider, error) {
		return Open(opts)
	}
}
