package agent

import "context"

// Client is the generative collaborator. Responses are free text that may
// contain fenced or unfenced JSON; callers run them through modeltext.
type Client interface {
	// Complete sends a system instruction and user message, returning the
	// raw model text.
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteJSON is Complete with the structured-output mode requested,
	// for calls whose response is expected to be a single JSON object.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
	// Configured reports whether a credential is present. Checked before
	// any model call so a missing key surfaces as "not configured" rather
	// than a transient generation failure.
	Configured() bool
}
