package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
	"healthkinator/internal/gateway"
)

type scriptedReply struct {
	reply domain.BackendReply
	err   error
}

type mockGateway struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   [][]domain.Turn
}

func (m *mockGateway) RequestNext(_ context.Context, transcript []domain.Turn) (domain.BackendReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, domain.CloneTranscript(transcript))
	idx := len(m.calls) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx].reply, m.replies[idx].err
}

// blockingGateway holds every request until release is closed.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
	reply   domain.BackendReply
	err     error
}

func (g *blockingGateway) RequestNext(_ context.Context, _ []domain.Turn) (domain.BackendReply, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.reply, g.err
}

type mockRecorder struct {
	mu        sync.Mutex
	reports   []domain.Report
	histories [][]domain.Turn
	err       error
}

func (m *mockRecorder) Record(_ context.Context, d domain.Diagnosis, history []domain.Turn) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Report{}, m.err
	}
	rep := domain.Report{
		ID:         "report-1",
		CreatedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Diagnosis:  d,
		Transcript: domain.CloneTranscript(history),
	}
	m.reports = append(m.reports, rep)
	m.histories = append(m.histories, domain.CloneTranscript(history))
	return rep, nil
}

func questionReply(prompt string) domain.BackendReply {
	return domain.BackendReply{Question: &domain.Question{Prompt: prompt}}
}

func diagnosisReply(condition string, confidence float64) domain.BackendReply {
	return domain.BackendReply{Diagnosis: &domain.Diagnosis{
		Condition:  condition,
		Confidence: confidence,
		Report:     "Likely " + condition + ". See a doctor.",
	}}
}

func requireAlternating(t *testing.T, transcript []domain.Turn) {
	t.Helper()
	require.NotEmpty(t, transcript)
	require.Equal(t, domain.RoleUser, transcript[0].Role)
	for i := 1; i < len(transcript); i++ {
		require.NotEqual(t, transcript[i-1].Role, transcript[i].Role,
			"consecutive turns at %d share a role", i)
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, &mockRecorder{})
	require.Error(t, err)
	_, err = New(&mockGateway{}, nil)
	require.Error(t, err)
}

func TestHappyPath(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{reply: questionReply("Do you have a fever?")},
		{reply: diagnosisReply("Flu", 82)},
	}}
	rec := &mockRecorder{}
	c, err := New(gw, rec)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	proj := c.Snapshot()
	require.Equal(t, StatusAwaitingAnswer, proj.Status)
	require.Equal(t, "Do you have a fever?", proj.CurrentQuestion)
	require.Equal(t, 1, proj.TurnCount)
	require.False(t, proj.CanGoBack)
	require.False(t, proj.Loading)

	require.NoError(t, c.Answer(context.Background(), domain.AnswerYes))
	proj = c.Snapshot()
	require.Equal(t, StatusTerminated, proj.Status)
	require.NotNil(t, proj.Diagnosis)
	require.Equal(t, "Flu", proj.Diagnosis.Condition)
	require.Equal(t, float64(82), proj.Diagnosis.Confidence)
	require.NotNil(t, proj.Report)
	require.Equal(t, "Flu", proj.Report.Diagnosis.Condition)

	// The persisted history stops before the answer that triggered the
	// diagnosis.
	require.Len(t, rec.histories, 1)
	require.Equal(t, []domain.Turn{
		codec.SeedTurn(),
		codec.ToModelTurn(questionReply("Do you have a fever?")),
	}, rec.histories[0])

	requireAlternating(t, c.Transcript())
}

func TestStartSendsSeedTurn(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: questionReply("Q1?")}}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	require.Len(t, gw.calls, 1)
	require.Equal(t, []domain.Turn{codec.SeedTurn()}, gw.calls[0])
}

func TestStartRejectedWhileActive(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: questionReply("Q1?")}}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	require.ErrorIs(t, c.Start(context.Background()), ErrInvalidTransition)
}

func TestDiagnosisOnFirstTurnTerminates(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: diagnosisReply("Flu", 60)}}}
	rec := &mockRecorder{}
	c, err := New(gw, rec)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	proj := c.Snapshot()
	require.Equal(t, StatusTerminated, proj.Status)
	require.Len(t, rec.histories, 1)
	require.Empty(t, rec.histories[0])
}

func TestAnswerRejectedOutsideAwaitingAnswer(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: questionReply("Q1?")}}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	require.ErrorIs(t, c.Answer(context.Background(), domain.AnswerYes), ErrInvalidTransition)
	require.Empty(t, c.Transcript())
}

func TestSingleFlight(t *testing.T) {
	gw := &blockingGateway{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		reply:   questionReply("Q1?"),
	}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()
	<-gw.entered

	before := c.Transcript()
	require.Equal(t, StatusAwaitingReply, c.Snapshot().Status)
	require.True(t, c.Snapshot().Loading)
	require.ErrorIs(t, c.Answer(context.Background(), domain.AnswerYes), ErrInvalidTransition)
	require.Equal(t, before, c.Transcript())

	close(gw.release)
	require.NoError(t, <-done)
	require.Equal(t, StatusAwaitingAnswer, c.Snapshot().Status)
}

func TestStaleReplyDiscardedAfterReset(t *testing.T) {
	gw := &blockingGateway{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		reply:   questionReply("Q1?"),
	}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()
	<-gw.entered

	c.Reset()
	close(gw.release)
	require.NoError(t, <-done)

	proj := c.Snapshot()
	require.Equal(t, StatusIdle, proj.Status)
	require.Empty(t, c.Transcript())
	require.Zero(t, proj.TurnCount)
}

func TestGatewayFailureKeepsPendingUserTurn(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{reply: questionReply("Q1?")},
		{err: gateway.Protocol("decode reply", nil)},
	}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	err = c.Answer(context.Background(), domain.AnswerNo)
	require.Error(t, err)

	proj := c.Snapshot()
	require.Equal(t, StatusFailed, proj.Status)
	require.NotEmpty(t, proj.ErrorMessage)

	// The user turn that triggered the request stays; no model turn was
	// appended for the failed reply.
	transcript := c.Transcript()
	require.Len(t, transcript, 3)
	require.Equal(t, domain.RoleUser, transcript[2].Role)
	require.Equal(t, "No", transcript[2].Payload)
}

func TestGoBackLaw(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{reply: questionReply("Do you have a fever?")},
		{reply: questionReply("Do you have a cough?")},
	}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Answer(context.Background(), domain.AnswerYes))

	proj := c.Snapshot()
	require.Equal(t, 2, proj.TurnCount)
	require.Equal(t, "Do you have a cough?", proj.CurrentQuestion)
	require.True(t, proj.CanGoBack)

	require.NoError(t, c.GoBack())
	proj = c.Snapshot()
	require.Equal(t, 1, proj.TurnCount)
	require.Equal(t, "Do you have a fever?", proj.CurrentQuestion)
	require.Equal(t, StatusAwaitingAnswer, proj.Status)
	require.False(t, proj.CanGoBack)
	requireAlternating(t, c.Transcript())
	require.Len(t, c.Transcript(), 2)
}

func TestGoBackBoundaryNoOp(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: questionReply("Q1?")}}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	before := c.Transcript()
	require.NoError(t, c.GoBack())
	require.Equal(t, before, c.Transcript())
	require.Equal(t, 1, c.Snapshot().TurnCount)
}

func TestGoBackInvalidOutsideAwaitingAnswer(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{{reply: questionReply("Q1?")}}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)
	require.ErrorIs(t, c.GoBack(), ErrInvalidTransition)
}

func TestRestartAfterFailure(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{err: gateway.Transport("unreachable", nil)},
		{reply: questionReply("Q1?")},
	}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	require.Error(t, c.Start(context.Background()))
	require.Equal(t, StatusFailed, c.Snapshot().Status)

	require.NoError(t, c.Restart(context.Background()))
	proj := c.Snapshot()
	require.Equal(t, StatusAwaitingAnswer, proj.Status)
	require.Equal(t, "Q1?", proj.CurrentQuestion)
	require.Empty(t, proj.ErrorMessage)
}

func TestRecorderFailureStillTerminates(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{reply: questionReply("Q1?")},
		{reply: diagnosisReply("Flu", 70)},
	}}
	rec := &mockRecorder{err: context.DeadlineExceeded}
	c, err := New(gw, rec)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Answer(context.Background(), domain.AnswerYes))

	proj := c.Snapshot()
	require.Equal(t, StatusTerminated, proj.Status)
	require.NotNil(t, proj.Diagnosis)
	require.Nil(t, proj.Report)
}

func TestAlternationInvariantAcrossLongSession(t *testing.T) {
	gw := &mockGateway{replies: []scriptedReply{
		{reply: questionReply("Q1?")},
		{reply: questionReply("Q2?")},
		{reply: questionReply("Q3?")},
		{reply: diagnosisReply("Flu", 90)},
	}}
	c, err := New(gw, &mockRecorder{})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	for _, tok := range []domain.AnswerToken{domain.AnswerYes, domain.AnswerDontKnow, domain.AnswerProbably} {
		requireAlternating(t, c.Transcript())
		require.NoError(t, c.Answer(context.Background(), tok))
	}
	requireAlternating(t, c.Transcript())
	require.Equal(t, StatusTerminated, c.Snapshot().Status)
}
