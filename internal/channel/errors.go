package channel

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInstanceExists is returned by Provision when the tenant already owns a
// channel instance. The one-instance-per-tenant rule is enforced as an
// explicit precondition here rather than left to the caller.
var ErrInstanceExists = errors.New("channel: tenant already has a channel instance")

// ErrInstanceNotFound is returned when an operation targets a tenant with no
// channel instance.
var ErrInstanceNotFound = errors.New("channel: no channel instance for tenant")

// ValidationError rejects malformed input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("channel: invalid %s: %s", e.Field, e.Reason)
}

// ProvisioningError means the create-channel call failed or returned an
// unusable payload; no local record was persisted.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	return "channel: provisioning failed: " + e.Err.Error()
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// PairingError means the generate-pairing call failed; the stored artifact is
// unchanged and the caller may retry.
type PairingError struct {
	Err error
}

func (e *PairingError) Error() string {
	return "channel: pairing failed: " + e.Err.Error()
}

func (e *PairingError) Unwrap() error { return e.Err }

// TeardownError means the remote release failed; the local record is
// preserved so the remote session is not orphaned untracked.
type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return "channel: teardown failed: " + e.Err.Error()
}

func (e *TeardownError) Unwrap() error { return e.Err }

// WebhookConfigError means webhook registration failed; connection state is
// unaffected.
type WebhookConfigError struct {
	Err error
}

func (e *WebhookConfigError) Error() string {
	return "channel: webhook configuration failed: " + e.Err.Error()
}

func (e *WebhookConfigError) Unwrap() error { return e.Err }
