package worldgraph

import "errors"

// Sentinel error kinds, tested with errors.Is at call sites.
var (
	ErrUnknownBinding  = errors.New("worldgraph: unknown binding")
	ErrInvalidEdge     = errors.New("worldgraph: invalid edge")
	ErrInvalidTag      = errors.New("worldgraph: invalid tag")
	ErrInvalidPayload  = errors.New("worldgraph: invalid payload")
	ErrInvalidSignature = errors.New("worldgraph: invalid signature")
	ErrIOError         = errors.New("worldgraph: io error")
)
