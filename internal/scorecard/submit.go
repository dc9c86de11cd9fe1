package scorecard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Remote procedures, invoked by name.
const (
	ProcMatchData = "user_submit_match_data"
	ProcScorecard = "user_submit_scorecard"
)

// Remote is the backend as seen by one signed-in (or anonymous) caller.
type Remote interface {
	// ActiveSession reports whether the caller has a live session.
	ActiveSession(ctx context.Context) (bool, error)
	// MatchExists is a cheap read used to detect a dead connection.
	MatchExists(ctx context.Context, matchID int64) error
	// Call invokes a remote procedure with payload as its single argument.
	Call(ctx context.Context, procedure string, payload any) error
}

type Timeouts struct {
	Ping      time.Duration
	MatchData time.Duration
	Scorecard time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Ping: 8 * time.Second, MatchData: 20 * time.Second, Scorecard: 30 * time.Second}
}

// Phase records how far a submission got on the remote side.
type Phase string

const (
	PhaseNone      Phase = ""
	PhaseMatchData Phase = "match_data"
	PhaseComplete  Phase = "complete"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindSession    ErrorKind = "session"
	KindConnection ErrorKind = "connection"
	KindMatchData  ErrorKind = "match_data"
	KindScorecard  ErrorKind = "scorecard"
	KindUnexpected ErrorKind = "unexpected"
)

var (
	ErrSubmitting = errors.New("submission already in progress")
	ErrTimeout    = errors.New("request timed out")
)

// SubmitError is the single user-visible failure of a submit attempt.
type SubmitError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

type Result struct {
	Message string  `json:"message"`
	Phase   Phase   `json:"phase"`
	Reload  bool    `json:"reload"`
	Payload Payload `json:"-"`
}

// Event is a progress notification for one draft's submission.
type Event struct {
	DraftID string    `json:"draft_id"`
	Step    string    `json:"step"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Submitter sequences the network part of a scorecard submission.
type Submitter struct {
	opts     Options
	timeouts Timeouts
	log      hclog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	observer func(Event)
}

func NewSubmitter(opts Options, t Timeouts, logger hclog.Logger) *Submitter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Submitter{
		opts:     opts,
		timeouts: t,
		log:      logger,
		inflight: make(map[string]struct{}),
	}
}

// OnEvent registers the function that receives progress events.
func (s *Submitter) OnEvent(fn func(Event)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Submitter) State(draftID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[draftID]; ok {
		return StateSubmitting
	}
	return StateIdle
}

func (s *Submitter) begin(draftID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[draftID]; ok {
		return false
	}
	s.inflight[draftID] = struct{}{}
	return true
}

func (s *Submitter) end(draftID string) {
	s.mu.Lock()
	delete(s.inflight, draftID)
	s.mu.Unlock()
}

func (s *Submitter) emit(draftID, step, msg string) {
	s.mu.Lock()
	fn := s.observer
	s.mu.Unlock()
	if fn != nil {
		fn(Event{DraftID: draftID, Step: step, Message: msg, At: time.Now().UTC()})
	}
}

func (s *Submitter) fail(draftID string, kind ErrorKind, msg string, err error) *SubmitError {
	s.emit(draftID, "failed", msg)
	s.log.Warn("submission failed", "draft", draftID, "kind", kind, "error", err)
	return &SubmitError{Kind: kind, Message: msg, Err: err}
}

// Submit validates the form, checks the session and the connection, then
// calls the match data procedure followed by the scorecard procedure.
// A second call for the same draft while one is running returns ErrSubmitting.
//
// When the scorecard procedure fails after match data committed, the
// returned Result carries Phase == PhaseMatchData and the payload, so the
// caller can retry with ResubmitScorecard.
func (s *Submitter) Submit(ctx context.Context, remote Remote, draftID string, f *Form) (res Result, err error) {
	if !s.begin(draftID) {
		return Result{}, ErrSubmitting
	}
	defer s.end(draftID)
	defer s.recoverPanic(draftID, &err)

	s.emit(draftID, "validating", "")
	payload, err := Prepare(f, s.opts)
	if err != nil {
		return Result{}, s.fail(draftID, KindValidation, err.Error(), err)
	}
	res.Payload = payload

	s.emit(draftID, "session", "")
	ok, err := remote.ActiveSession(ctx)
	if err != nil {
		return res, s.fail(draftID, KindSession, "Submission Failed: could not check sign-in: "+DescribeError(err), err)
	}
	if !ok {
		return res, s.fail(draftID, KindSession, "Submission Failed: Not signed in. Please log in and try again.", nil)
	}

	s.emit(draftID, "ping", "")
	err = withTimeout(ctx, s.timeouts.Ping, func(ctx context.Context) error {
		return remote.MatchExists(ctx, f.MatchID)
	})
	if err != nil {
		return res, s.fail(draftID, KindConnection, "Submission Failed: could not reach the server: "+RemoteMessage(err), err)
	}

	s.emit(draftID, "match_data", "")
	err = withTimeout(ctx, s.timeouts.MatchData, func(ctx context.Context) error {
		return remote.Call(ctx, ProcMatchData, payload)
	})
	if err != nil {
		return res, s.fail(draftID, KindMatchData, "Submission Failed (match data): "+RemoteMessage(err), err)
	}
	res.Phase = PhaseMatchData

	return s.scorecard(ctx, remote, draftID, res)
}

// ResubmitScorecard retries only the scorecard procedure for a draft whose
// match data already committed.
func (s *Submitter) ResubmitScorecard(ctx context.Context, remote Remote, draftID string, p Payload) (res Result, err error) {
	if !s.begin(draftID) {
		return Result{}, ErrSubmitting
	}
	defer s.end(draftID)
	defer s.recoverPanic(draftID, &err)

	res = Result{Phase: PhaseMatchData, Payload: p}
	s.emit(draftID, "session", "")
	ok, err := remote.ActiveSession(ctx)
	if err != nil {
		return res, s.fail(draftID, KindSession, "Submission Failed: could not check sign-in: "+DescribeError(err), err)
	}
	if !ok {
		return res, s.fail(draftID, KindSession, "Submission Failed: Not signed in. Please log in and try again.", nil)
	}
	return s.scorecard(ctx, remote, draftID, res)
}

func (s *Submitter) scorecard(ctx context.Context, remote Remote, draftID string, res Result) (Result, error) {
	s.emit(draftID, "scorecard", "")
	err := withTimeout(ctx, s.timeouts.Scorecard, func(ctx context.Context) error {
		return remote.Call(ctx, ProcScorecard, res.Payload)
	})
	if err != nil {
		return res, s.fail(draftID, KindScorecard, "Submission Failed (scorecard): "+RemoteMessage(err), err)
	}
	res.Phase = PhaseComplete
	res.Message = "Scorecard submitted successfully."
	res.Reload = true
	s.emit(draftID, "done", res.Message)
	s.log.Info("scorecard submitted", "draft", draftID, "match", res.Payload.MatchID)
	return res, nil
}

// recoverPanic turns a panic in the submit flow into a KindUnexpected
// failure. It must be deferred directly.
func (s *Submitter) recoverPanic(draftID string, err *error) {
	if r := recover(); r != nil {
		perr := fmt.Errorf("panic: %v", r)
		*err = s.fail(draftID, KindUnexpected, "Submission Failed: unexpected error: "+DescribeError(perr), perr)
	}
}

// withTimeout runs fn under its own deadline. The context passed to fn is
// cancelled when the deadline passes, so the request is abandoned rather than
// left running.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(cctx)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s", ErrTimeout, d)
	}
	return err
}

// detailed is implemented by remote errors that carry more than a message.
type detailed interface {
	error
	ErrorCode() string
	ErrorDetails() string
	ErrorHint() string
}

// RemoteMessage is the message text of a remote failure, as the backend sent it.
func RemoteMessage(err error) string {
	if err == nil {
		return ""
	}
	var d detailed
	if errors.As(err, &d) {
		return d.Error()
	}
	return err.Error()
}

// DescribeError renders everything known about err: message, code, details
// and hint where the error carries them, otherwise err.Error().
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var d detailed
	if !errors.As(err, &d) {
		return err.Error()
	}
	parts := []string{d.Error()}
	if c := d.ErrorCode(); c != "" {
		parts = append(parts, "code: "+c)
	}
	if v := d.ErrorDetails(); v != "" {
		parts = append(parts, "details: "+v)
	}
	if v := d.ErrorHint(); v != "" {
		parts = append(parts, "hint: "+v)
	}
	return strings.Join(parts, "; ")
}
