package jsonrpc2

import (
	"encoding/json"
)

// RawResponse represents a fully encoded [*Response]
// It may be used as a result from the [Handler] to provided a specially formed response.
// When using a RawResponse, no encoding checking is done to ensure its validity.
type RawResponse json.RawMessage
