// Package source manages the authenticated connection to the external
// message source and the login/one-time-code state machine.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"promobot/internal/model"
)

// State is the authentication state of the session.
type State string

// Session states.
const (
	StateUnauthenticated State = "unauthenticated"
	StateCodeRequested   State = "code_requested"
	StateAuthenticated   State = "authenticated"
	StateFailed          State = "failed"
)

// Transport is the network boundary to the external source's API.
type Transport interface {
	// Connect establishes the connection, resuming the given session
	// credential if non-empty. It reports whether the session is already
	// authorized.
	Connect(ctx context.Context, sessionString string) (bool, error)
	// RequestCode asks the source to send a one-time login code and
	// returns the request hash needed to sign in.
	RequestCode(ctx context.Context, phone string) (string, error)
	// SignIn completes authentication and returns a reusable session
	// credential.
	SignIn(ctx context.Context, phone, codeHash, code string) (string, error)
	// Search returns recent messages from one source channel.
	Search(ctx context.Context, channel string, limit int) ([]model.ContentItem, error)
	// DownloadMedia fetches the bytes for a media reference.
	DownloadMedia(ctx context.Context, ref string) ([]byte, string, error)
	// Disconnect releases the network connection.
	Disconnect(ctx context.Context) error
}

// CredentialStore persists the reusable session credential between
// process starts.
type CredentialStore interface {
	SessionString(ctx context.Context) (string, error)
	SaveSessionString(ctx context.Context, value string) error
	ClearSessionString(ctx context.Context) error
}

// Criteria describes one search request against the source.
type Criteria struct {
	Sources []string
	Limit   int
}

// codeRequestTTL is how long a pending code request stays valid before the
// session falls back to unauthenticated. Source-side codes expire within a
// few minutes anyway.
const codeRequestTTL = 10 * time.Minute

// maxCodeFailures aborts the pending request after this many rejected codes.
const maxCodeFailures = 2

var codePattern = regexp.MustCompile(`^\d{5}$`)

// Session owns the authenticated connection to the external source.
// It is safe for concurrent use; only one connection attempt is ever in
// flight, and concurrent callers share its outcome.
type Session struct {
	transport Transport
	creds     CredentialStore
	phone     string
	log       *slog.Logger
	now       func() time.Time

	mu           sync.Mutex
	state        State
	connected    bool
	inFlight     bool
	flightDone   chan struct{}
	codeHash     string
	codeFailures int
	codeIssuedAt time.Time
	codeWait     chan struct{}
	codeErr      error
}

// NewSession creates a Session. It does not connect; the connection is
// established on first demand via Initialize or EnsureReady.
func NewSession(transport Transport, creds CredentialStore, phone string, log *slog.Logger) *Session {
	return &Session{
		transport: transport,
		creds:     creds,
		phone:     phone,
		log:       log,
		now:       time.Now,
		state:     StateUnauthenticated,
	}
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirePendingLocked()
	return s.state
}

// HasPendingAuth reports whether a login code request is outstanding.
func (s *Session) HasPendingAuth() bool {
	return s.State() == StateCodeRequested
}

// Initialize establishes or resumes the connection, blocking until the
// session is authenticated or ctx expires. If a login code is required it
// waits for SubmitCode; ErrAuthTimeout is returned when ctx runs out first,
// leaving the code request pending for a later submission.
func (s *Session) Initialize(ctx context.Context) error {
	return s.ready(ctx, true)
}

// EnsureReady is the fail-fast variant used by background jobs: it never
// waits for a login code, returning ErrAuthPending instead so periodic
// ticks report and move on rather than block.
func (s *Session) EnsureReady(ctx context.Context) error {
	return s.ready(ctx, false)
}

func (s *Session) ready(ctx context.Context, waitForCode bool) error {
	for {
		s.mu.Lock()
		s.expirePendingLocked()

		switch {
		case s.state == StateAuthenticated && s.connected:
			s.mu.Unlock()
			return nil

		case s.state == StateCodeRequested:
			wait := s.codeWait
			s.mu.Unlock()
			if !waitForCode {
				return ErrAuthPending
			}
			select {
			case <-wait:
				s.mu.Lock()
				err := s.codeErr
				s.mu.Unlock()
				if err != nil {
					return err
				}
				// Authenticated; loop to confirm.
			case <-ctx.Done():
				return fmt.Errorf("%w (request still pending, submit the code to finish)", ErrAuthTimeout)
			}

		case s.inFlight:
			done := s.flightDone
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrAuthTimeout, ctx.Err())
			}

		default:
			s.inFlight = true
			s.flightDone = make(chan struct{})
			s.mu.Unlock()

			err := s.establish(ctx)

			s.mu.Lock()
			s.inFlight = false
			close(s.flightDone)
			s.mu.Unlock()

			if err != nil {
				return err
			}
		}
	}
}

// establish connects and, if the stored credential is missing or invalid,
// triggers a one-time-code send. It leaves the session either authenticated
// or in the code-requested state.
func (s *Session) establish(ctx context.Context) error {
	cred, err := s.creds.SessionString(ctx)
	if err != nil {
		return fmt.Errorf("load session credential: %w", err)
	}

	authorized, err := s.transport.Connect(ctx, cred)
	if err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("connect to source: %w", err)
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	if authorized {
		s.setState(StateAuthenticated)
		s.log.Info("source session resumed")
		return nil
	}

	codeHash, err := s.transport.RequestCode(ctx, s.phone)
	if err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("request login code: %w", err)
	}

	s.mu.Lock()
	s.state = StateCodeRequested
	s.codeHash = codeHash
	s.codeFailures = 0
	s.codeIssuedAt = s.now()
	s.codeWait = make(chan struct{})
	s.codeErr = nil
	s.mu.Unlock()

	s.log.Info("login code requested, waiting for submission")
	return nil
}

// SubmitCode validates and signs in with a one-time code. It is accepted
// only while a code request is pending; ErrNoPendingAuth otherwise. A
// rejected code keeps the request pending (ErrCodeRejected) until
// maxCodeFailures is reached, which aborts it with ErrAuthFailed.
func (s *Session) SubmitCode(ctx context.Context, code string) error {
	if !codePattern.MatchString(code) {
		return ErrCodeInvalid
	}

	s.mu.Lock()
	s.expirePendingLocked()
	if s.state != StateCodeRequested {
		s.mu.Unlock()
		return ErrNoPendingAuth
	}
	codeHash := s.codeHash
	s.mu.Unlock()

	sessionString, err := s.transport.SignIn(ctx, s.phone, codeHash, code)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != StateCodeRequested {
			return ErrNoPendingAuth
		}
		s.codeFailures++
		if s.codeFailures >= maxCodeFailures {
			s.resolvePendingLocked(StateUnauthenticated, fmt.Errorf("%w: %v", ErrAuthFailed, err))
			return s.codeErr
		}
		return fmt.Errorf("%w: %v", ErrCodeRejected, err)
	}

	if err := s.creds.SaveSessionString(ctx, sessionString); err != nil {
		// Auth succeeded; losing the credential only costs a code on the
		// next process start.
		s.log.Warn("save session credential", "error", err)
	}

	s.mu.Lock()
	s.resolvePendingLocked(StateAuthenticated, nil)
	s.mu.Unlock()

	s.log.Info("source session authenticated")
	return nil
}

// SearchContent queries each source channel for recent items. A channel
// that errors is logged and skipped; partial results are returned. It
// fails only when authentication is not ready or no channel was reachable.
func (s *Session) SearchContent(ctx context.Context, criteria Criteria) ([]model.ContentItem, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}

	var items []model.ContentItem
	failed := 0
	for _, channel := range criteria.Sources {
		found, err := s.transport.Search(ctx, channel, criteria.Limit)
		if err != nil {
			failed++
			s.log.Error("search source channel", "channel", channel, "error", err)
			continue
		}
		items = append(items, found...)
	}

	if failed == len(criteria.Sources) && failed > 0 {
		return nil, fmt.Errorf("all %d source channels unavailable", failed)
	}
	return items, nil
}

// DownloadMedia fetches the bytes for a media reference. It returns nil on
// failure rather than an error so callers fall back to text-only delivery.
func (s *Session) DownloadMedia(ctx context.Context, ref string) ([]byte, string) {
	data, filename, err := s.transport.DownloadMedia(ctx, ref)
	if err != nil {
		s.log.Warn("download media", "ref", ref, "error", err)
		return nil, ""
	}
	return data, filename
}

// Disconnect releases the network connection without erasing the stored
// credential; a later Initialize resumes the session.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	if err := s.transport.Disconnect(ctx); err != nil {
		s.log.Warn("disconnect", "error", err)
	}
}

// ForceNewAuth discards the stored credential, resets the state machine,
// and re-runs Initialize under the caller's deadline. Operator action for
// recovering from a poisoned or expired session.
func (s *Session) ForceNewAuth(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return fmt.Errorf("connection attempt in progress, try again shortly")
	}
	if s.codeWait != nil {
		s.resolvePendingLocked(StateUnauthenticated, fmt.Errorf("%w: reset by operator", ErrAuthFailed))
	}
	s.state = StateUnauthenticated
	s.connected = false
	s.codeHash = ""
	s.codeFailures = 0
	s.mu.Unlock()

	if err := s.creds.ClearSessionString(ctx); err != nil {
		return fmt.Errorf("clear session credential: %w", err)
	}
	if err := s.transport.Disconnect(ctx); err != nil {
		s.log.Warn("disconnect before reauth", "error", err)
	}

	s.log.Info("session reset, requesting new login code")
	return s.Initialize(ctx)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// resolvePendingLocked closes the pending code request, releasing every
// Initialize waiting on it. Caller must hold s.mu.
func (s *Session) resolvePendingLocked(state State, err error) {
	s.state = state
	s.codeErr = err
	s.codeHash = ""
	if s.codeWait != nil {
		close(s.codeWait)
		s.codeWait = nil
	}
}

// expirePendingLocked drops a code request that has outlived its TTL.
// Caller must hold s.mu.
func (s *Session) expirePendingLocked() {
	if s.state != StateCodeRequested {
		return
	}
	if s.now().Sub(s.codeIssuedAt) <= codeRequestTTL {
		return
	}
	s.resolvePendingLocked(StateUnauthenticated, fmt.Errorf("%w: login code request expired", ErrAuthFailed))
	s.log.Warn("login code request expired")
}
