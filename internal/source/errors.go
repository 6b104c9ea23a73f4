package source

import "errors"

// Authentication error taxonomy. Callers branch with errors.Is.
var (
	// ErrAuthTimeout means no login code arrived within the caller's wait
	// window. The pending code request survives; retrying Initialize or
	// submitting the code later can still complete authentication.
	ErrAuthTimeout = errors.New("timed out waiting for login code")

	// ErrCodeRejected means the source rejected the submitted code.
	// The request stays pending and the caller may resubmit.
	ErrCodeRejected = errors.New("login code rejected")

	// ErrCodeInvalid means the code failed local format validation and was
	// never sent to the transport.
	ErrCodeInvalid = errors.New("login code must be exactly 5 digits")

	// ErrNoPendingAuth means a code was submitted while no code request was
	// pending. Distinct from ErrCodeRejected.
	ErrNoPendingAuth = errors.New("no pending authentication")

	// ErrAuthFailed means the pending code request was aborted: two
	// rejected codes, an expired request, or an operator reset.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrAuthPending is returned by fail-fast callers (background jobs)
	// when a login code is still outstanding.
	ErrAuthPending = errors.New("authentication pending, waiting for login code")
)
