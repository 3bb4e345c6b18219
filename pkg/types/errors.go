// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// InvalidRequestError reports a malformed or infeasible GenerationRequest.
// Fatal: the pipeline returns it immediately with no partial work.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// CapabilityError reports a failure of an external capability (search or
// generation). Capability failures are retried with bounded backoff close
// to the call site; only retry exhaustion escalates.
type CapabilityError struct {
	// Capability names the failing collaborator: "search" or "generation".
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s capability: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// DraftFailedError reports that a section's drafting retries were
// exhausted without producing any text. The pipeline returns it instead of
// a document; a document is never emitted silently missing a section.
type DraftFailedError struct {
	SectionID string
	Err       error
}

func (e *DraftFailedError) Error() string {
	return fmt.Sprintf("drafting section %s failed: %v", e.SectionID, e.Err)
}

func (e *DraftFailedError) Unwrap() error { return e.Err }

// AssemblyError reports a structural invariant violated at assembly time.
// Fatal: no document is returned.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "assembly: " + e.Reason
}
