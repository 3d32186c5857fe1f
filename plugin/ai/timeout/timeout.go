// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

const (
	// ExtractionTimeout is the timeout for the structured assessment call.
	ExtractionTimeout = 30 * time.Second

	// SynthesisTimeout is the timeout for the reply generation call.
	SynthesisTimeout = 45 * time.Second

	// StoreTimeout is the timeout for individual persistence operations.
	StoreTimeout = 10 * time.Second

	// TurnTimeout bounds one full pipeline pass for an inbound message.
	TurnTimeout = 2 * time.Minute
)
