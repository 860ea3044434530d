package site

import (
	"errors"
	"fmt"
)

// Sentinel values for coarse classification. Components wrap these with
// typed errors below; handlers and tests check them with errors.Is/As.
var (
	ErrMissingCredential = errors.New("required credential not configured")
	ErrNameConflict      = errors.New("repository name already taken")
	ErrUnauthorized      = errors.New("authentication rejected")
)

// ValidationError reports malformed caller input. Always maps to a 4xx
// response and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ConfigurationError reports a missing or unusable credential. Surfaced
// distinctly from transient failures so operators can tell "not configured"
// from "currently broken". Fatal to the affected operation before any
// external call is attempted.
type ConfigurationError struct {
	Credential string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Credential)
}

func (e *ConfigurationError) Unwrap() error { return ErrMissingCredential }

// GenerationError reports a generative collaborator failure (quota, timeout,
// refusal, malformed request). Aborts the current stage unless the stage
// documents an explicit fallback.
type GenerationError struct {
	Stage string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// PublishError reports a source-host failure. Fatal to the whole pipeline:
// nothing downstream can proceed without a repository.
type PublishError struct {
	Op         string
	StatusCode int
	Upstream   string
	Cause      error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source host %s failed (status %d): %s", e.Op, e.StatusCode, e.Upstream)
	}
	return fmt.Sprintf("source host %s failed: %v", e.Op, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// NameConflictError is the 422 duplicate-name case. The accepted mitigation
// is retrying with a different generated name, and the message says so.
type NameConflictError struct {
	Name string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("repository name %q already exists; retry with a different name", e.Name)
}

func (e *NameConflictError) Unwrap() error { return ErrNameConflict }

// AuthenticationError is the 401/403 case from the source host.
type AuthenticationError struct {
	Op         string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("source host rejected credentials during %s (status %d)", e.Op, e.StatusCode)
}

func (e *AuthenticationError) Unwrap() error { return ErrUnauthorized }

// DeploymentError carries context for a hosting-platform failure. It is
// never fatal to the overall operation: the repository already exists, so
// callers downgrade it into a partial-success result instead of propagating.
type DeploymentError struct {
	Step     string
	Code     string
	Upstream string
	Cause    error
}

func (e *DeploymentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("deployment %s failed (%s): %s", e.Step, e.Code, e.Upstream)
	}
	return fmt.Sprintf("deployment %s failed: %v", e.Step, e.Cause)
}

func (e *DeploymentError) Unwrap() error { return e.Cause }

// IsFatal reports whether an error must abort the pipeline. Deployment
// failures are soft by design; everything else in the taxonomy is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var de *DeploymentError
	return !errors.As(err, &de)
}
