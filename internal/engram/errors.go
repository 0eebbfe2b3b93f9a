package engram

import "errors"

// Sentinel error kinds, tested with errors.Is at call sites.
var (
	ErrUnknownEngram    = errors.New("engram: unknown id")
	ErrInvalidPayload   = errors.New("engram: invalid payload")
	ErrInvalidSignature = errors.New("engram: invalid signature")
	ErrIOError          = errors.New("engram: io error")
)
