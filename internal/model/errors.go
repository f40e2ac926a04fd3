package model

import "github.com/rotisserie/eris"

// Error kinds for the pipeline. Each stage wraps one of these so callers can
// classify failures with eris.Is regardless of how deep the wrap chain goes.
var (
	// ErrTransport indicates a collaborator fetch failed with a non-success status.
	ErrTransport = eris.New("transport error")

	// ErrDataIntegrity indicates a declared footer count disagrees with the
	// number of rows actually parsed.
	ErrDataIntegrity = eris.New("data integrity error")

	// ErrKeyNotFound indicates a required field path is absent from a record.
	ErrKeyNotFound = eris.New("key not found")

	// ErrTypeCoercion indicates a value could not be cast to its declared
	// column type.
	ErrTypeCoercion = eris.New("type coercion error")

	// ErrUnknownProbe indicates a probe id is missing from the static
	// probe location table. This is a configuration error, not a data error.
	ErrUnknownProbe = eris.New("probe not in location table")
)
