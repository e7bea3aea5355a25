package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"healthkinator/internal/domain"
	"healthkinator/internal/session"
)

type stubGateway struct {
	replies []domain.BackendReply
	calls   int
}

func (g *stubGateway) RequestNext(context.Context, []domain.Turn) (domain.BackendReply, error) {
	i := g.calls
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	g.calls++
	return g.replies[i], nil
}

type stubRecorder struct{}

func (stubRecorder) Record(_ context.Context, d domain.Diagnosis, history []domain.Turn) (domain.Report, error) {
	return domain.Report{ID: "r1", Diagnosis: d, Transcript: history}, nil
}

type memStore struct {
	reports []domain.Report
	profile *domain.UserProfile
}

func (s *memStore) Save(_ context.Context, r domain.Report) error {
	s.reports = append(s.reports, r)
	return nil
}

func (s *memStore) List(context.Context) ([]domain.Report, error) { return s.reports, nil }
func (s *memStore) Clear(context.Context) error                   { s.reports = nil; return nil }

func (s *memStore) SaveProfile(_ context.Context, p domain.UserProfile) error {
	s.profile = &p
	return nil
}

func (s *memStore) LoadProfile(context.Context) (domain.UserProfile, error) {
	if s.profile == nil {
		return domain.DefaultProfile(), nil
	}
	return *s.profile, nil
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, gw session.Gateway) Model {
	t.Helper()
	ctrl, err := session.New(gw, stubRecorder{})
	require.NoError(t, err)
	store := &memStore{}
	return NewModel(ctrl, store, store)
}

func TestGameShowsBusyStateWhileRequestInFlight(t *testing.T) {
	gw := &stubGateway{replies: []domain.BackendReply{
		{Question: &domain.Question{Prompt: "Do you have a fever?"}},
	}}
	m := newTestModel(t, gw)

	// Starting from the welcome screen dispatches the request and must
	// immediately render the busy state, not a stale projection.
	updated, cmd := m.Update(keyMsg("enter"))
	busy := updated.(Model)
	require.NotNil(t, cmd)
	require.True(t, busy.proj.Loading)
	require.Equal(t, session.StatusAwaitingReply, busy.proj.Status)
	require.Contains(t, busy.View(), "Thinking")
	require.NotContains(t, busy.View(), "1 Yes")

	// Answer keys are ignored while the request is out.
	ignored, ignoredCmd := busy.Update(keyMsg("y"))
	require.Nil(t, ignoredCmd)
	require.Equal(t, 0, gw.calls)
	require.True(t, ignored.(Model).proj.Loading)

	// Run the command; the controller completes and the question appears.
	updated, _ = busy.Update(cmd())
	done := updated.(Model)
	require.False(t, done.proj.Loading)
	require.Equal(t, session.StatusAwaitingAnswer, done.proj.Status)
	require.Contains(t, done.View(), "Do you have a fever?")
}

func TestAnswerDispatchShowsBusyState(t *testing.T) {
	gw := &stubGateway{replies: []domain.BackendReply{
		{Question: &domain.Question{Prompt: "Do you have a fever?"}},
		{Question: &domain.Question{Prompt: "Do you have a cough?"}},
	}}
	m := newTestModel(t, gw)

	updated, cmd := m.Update(keyMsg("enter"))
	updated, _ = updated.(Model).Update(cmd())
	asked := updated.(Model)
	require.Equal(t, session.StatusAwaitingAnswer, asked.proj.Status)

	updated, cmd = asked.Update(keyMsg("y"))
	busy := updated.(Model)
	require.NotNil(t, cmd)
	require.True(t, busy.proj.Loading)
	require.False(t, busy.proj.CanGoBack)
	require.Contains(t, busy.View(), "Thinking")
	require.NotContains(t, busy.View(), "Do you have a fever?")

	updated, _ = busy.Update(cmd())
	done := updated.(Model)
	require.False(t, done.proj.Loading)
	require.Contains(t, done.View(), "Do you have a cough?")
}

func TestRestartDispatchShowsBusyState(t *testing.T) {
	gw := &stubGateway{replies: []domain.BackendReply{
		{Diagnosis: &domain.Diagnosis{Condition: "Flu", Confidence: 82, Report: "Likely the flu."}},
	}}
	m := newTestModel(t, gw)

	updated, cmd := m.Update(keyMsg("enter"))
	updated, _ = updated.(Model).Update(cmd())
	result := updated.(Model)
	require.Equal(t, session.StatusTerminated, result.proj.Status)
	require.Equal(t, screenResult, result.screen)

	updated, cmd = result.Update(keyMsg("r"))
	busy := updated.(Model)
	require.NotNil(t, cmd)
	require.Equal(t, screenGame, busy.screen)
	require.True(t, busy.proj.Loading)
	require.Nil(t, busy.proj.Diagnosis)
	require.Contains(t, busy.View(), "Thinking")
}
