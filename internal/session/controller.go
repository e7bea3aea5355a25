// Package session implements the dialogue state machine that owns one
// symptom-checker playthrough: the transcript, turn-taking against the
// inference backend, termination, and back navigation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
)

// Gateway requests the next structured turn from the inference backend.
// Implementations are stateless across calls; any implementation satisfying
// this contract is substitutable.
type Gateway interface {
	RequestNext(ctx context.Context, transcript []domain.Turn) (domain.BackendReply, error)
}

// Recorder persists the immutable record of a terminated session.
type Recorder interface {
	Record(ctx context.Context, d domain.Diagnosis, history []domain.Turn) (domain.Report, error)
}

// Status enumerates the controller states.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusAwaitingReply  Status = "awaiting_reply"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusTerminated     Status = "terminated"
	StatusFailed         Status = "failed"
)

// ErrInvalidTransition is returned when an operation is invoked in a state
// that forbids it, e.g. Answer while a request is already in flight. The
// transcript is never touched on this path.
var ErrInvalidTransition = errors.New("session: operation not valid in current state")

// Projection is the read-only session surface exposed to the presentation
// layer.
type Projection struct {
	Status          Status
	CurrentQuestion string
	Diagnosis       *domain.Diagnosis
	Report          *domain.Report
	ErrorMessage    string
	TurnCount       int
	CanGoBack       bool
	Loading         bool
}

// Controller is the session state machine. All exported methods are safe
// for concurrent use; the backend round trip is the only suspension point
// and at most one request is in flight at a time.
type Controller struct {
	gw  Gateway
	rec Recorder
	log *slog.Logger

	mu         sync.Mutex
	status     Status
	transcript []domain.Turn
	turnCount  int
	question   string
	diagnosis  *domain.Diagnosis
	report     *domain.Report
	errMsg     string
	generation uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger used for non-fatal events such as
// report persistence failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// New constructs a Controller in the Idle state.
func New(gw Gateway, rec Recorder, opts ...Option) (*Controller, error) {
	if gw == nil {
		return nil, errors.New("session: gateway must not be nil")
	}
	if rec == nil {
		return nil, errors.New("session: recorder must not be nil")
	}
	c := &Controller{gw: gw, rec: rec, log: slog.Default(), status: StatusIdle}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins a new playthrough. Valid from Idle, Terminated and Failed.
// It seeds the transcript, requests the first turn and blocks until the
// backend answers or fails.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusIdle, StatusTerminated, StatusFailed:
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.resetLocked()
	c.transcript = []domain.Turn{codec.SeedTurn()}
	c.status = StatusAwaitingReply
	c.generation++
	gen := c.generation
	snapshot := domain.CloneTranscript(c.transcript)
	c.mu.Unlock()

	reply, err := c.gw.RequestNext(ctx, snapshot)
	return c.apply(ctx, gen, reply, err)
}

// Answer submits the user's answer to the current question and requests
// the next turn. Valid only from AwaitingAnswer; calls arriving while a
// request is in flight are rejected without touching the transcript.
func (c *Controller) Answer(ctx context.Context, tok domain.AnswerToken) error {
	c.mu.Lock()
	if c.status != StatusAwaitingAnswer {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.transcript = append(c.transcript, codec.EncodeAnswer(tok))
	c.status = StatusAwaitingReply
	c.generation++
	gen := c.generation
	snapshot := domain.CloneTranscript(c.transcript)
	c.mu.Unlock()

	reply, err := c.gw.RequestNext(ctx, snapshot)
	return c.apply(ctx, gen, reply, err)
}

// GoBack removes the last answered question pair and re-exposes the
// previous question. It is a no-op at the first question and makes no
// backend call.
func (c *Controller) GoBack() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusAwaitingAnswer {
		return ErrInvalidTransition
	}
	if c.turnCount <= 1 {
		return nil
	}
	// Drop the last user answer and the model question that followed it.
	c.transcript = c.transcript[:len(c.transcript)-2]
	c.turnCount--
	if prompt, ok := codec.QuestionPrompt(c.transcript[len(c.transcript)-1]); ok {
		c.question = prompt
	}
	return nil
}

// Restart abandons the current session regardless of state and begins a
// new one. Any in-flight reply for the abandoned session is discarded.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	c.status = StatusIdle
	c.generation++ // invalidate any reply still in flight
	c.mu.Unlock()
	return c.Start(ctx)
}

// Reset returns the controller to Idle without starting a new session.
// Used when the presentation layer is torn down mid-request.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.status = StatusIdle
	c.generation++
}

// Snapshot returns the current presentation-facing projection.
func (c *Controller) Snapshot() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Projection{
		Status:          c.status,
		CurrentQuestion: c.question,
		Diagnosis:       c.diagnosis,
		Report:          c.report,
		ErrorMessage:    c.errMsg,
		TurnCount:       c.turnCount,
		CanGoBack:       c.status == StatusAwaitingAnswer && c.turnCount > 1,
		Loading:         c.status == StatusAwaitingReply,
	}
}

// Transcript returns an independent copy of the current transcript.
func (c *Controller) Transcript() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneTranscript(c.transcript)
}

func (c *Controller) resetLocked() {
	c.transcript = nil
	c.turnCount = 0
	c.question = ""
	c.diagnosis = nil
	c.report = nil
	c.errMsg = ""
}

// apply folds one backend outcome into the session. Replies whose
// generation no longer matches (the session was reset or restarted while
// the request was in flight) are discarded.
func (c *Controller) apply(ctx context.Context, gen uint64, reply domain.BackendReply, err error) error {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Info("discarding stale backend reply", "generation", gen)
		return nil
	}
	if err != nil {
		// The failed model turn is never appended; a pending user turn
		// stays in place so a later inspection sees what was asked.
		c.status = StatusFailed
		c.errMsg = userMessage(err)
		c.mu.Unlock()
		return err
	}

	if reply.Diagnosis != nil {
		d := *reply.Diagnosis
		// History that led to the diagnosis: everything before the user
		// turn that triggered it.
		history := domain.CloneTranscript(c.transcript[:len(c.transcript)-1])
		c.transcript = append(c.transcript, codec.ToModelTurn(reply))
		c.status = StatusTerminated
		c.diagnosis = &d
		c.mu.Unlock()

		report, recErr := c.rec.Record(ctx, d, history)
		if recErr != nil {
			// Persistence is best-effort; the diagnosis is still shown.
			c.log.Warn("failed to persist report", "condition", d.Condition, "err", recErr)
			return nil
		}
		c.mu.Lock()
		if gen == c.generation {
			c.report = &report
		}
		c.mu.Unlock()
		return nil
	}

	c.transcript = append(c.transcript, codec.ToModelTurn(reply))
	c.turnCount++
	c.question = reply.Question.Prompt
	c.status = StatusAwaitingAnswer
	c.mu.Unlock()
	return nil
}
