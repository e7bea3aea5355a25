// Package tui implements the terminal interface: a welcome screen, the
// question-and-answer game, the result view, saved report browsing and
// profile settings. All session mutations run as commands so the interface
// stays responsive while the backend thinks.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"healthkinator/internal/domain"
	"healthkinator/internal/gateway"
	"healthkinator/internal/repository"
	"healthkinator/internal/session"
	"healthkinator/internal/speech"
)

type screen int

const (
	screenWelcome screen = iota
	screenGame
	screenResult
	screenReports
	screenReportDetail
	screenSettings
)

// Messages delivered by commands.
type (
	sessionDoneMsg struct{}
	reportsMsg     struct {
		reports []domain.Report
		err     error
	}
	reportsClearedMsg struct{ err error }
	profileSavedMsg   struct{ err error }
	speechDoneMsg     struct{ err error }
)

// Model is the top-level bubbletea model.
type Model struct {
	ctrl     *session.Controller
	reports  repository.ReportStore
	profiles repository.ProfileStore
	synth    speech.Synthesizer
	player   speech.Player
	log      *slog.Logger

	screen  screen
	proj    session.Projection
	profile domain.UserProfile

	savedReports []domain.Report
	cursor       int
	detail       *domain.Report
	listErr      string

	nameInput textinput.Model
	notice    string

	spin spinner.Model
	prog progress.Model

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithSpeech enables spoken questions via the given synthesizer and player.
func WithSpeech(s speech.Synthesizer, p speech.Player) Option {
	return func(m *Model) {
		m.synth = s
		m.player = p
	}
}

// WithLogger sets the logger used for background failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.log = l
	}
}

// NewModel builds the initial model around a session controller and stores.
func NewModel(ctrl *session.Controller, reports repository.ReportStore, profiles repository.ProfileStore, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Guest"
	ti.CharLimit = 40
	ti.Width = 30

	m := Model{
		ctrl:      ctrl,
		reports:   reports,
		profiles:  profiles,
		player:    speech.NopPlayer{},
		log:       slog.Default(),
		screen:    screenWelcome,
		profile:   domain.DefaultProfile(),
		nameInput: ti,
		spin:      sp,
		prog:      progress.New(progress.WithDefaultGradient()),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.profiles != nil {
		if p, err := m.profiles.LoadProfile(context.Background()); err == nil {
			m.profile = p
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prog.Width = min(msg.Width-8, 50)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionDoneMsg:
		return m.refreshSession()

	case reportsMsg:
		m.savedReports = msg.reports
		m.listErr = ""
		if msg.err != nil {
			m.listErr = msg.err.Error()
		}
		if m.cursor >= len(m.savedReports) {
			m.cursor = 0
		}
		return m, nil

	case reportsClearedMsg:
		if msg.err != nil {
			m.listErr = msg.err.Error()
			return m, nil
		}
		m.savedReports = nil
		m.cursor = 0
		m.listErr = ""
		return m, nil

	case profileSavedMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("could not save profile: " + msg.err.Error())
		} else {
			m.notice = noticeStyle.Render("Profile saved.")
		}
		return m, nil

	case speechDoneMsg:
		if msg.err != nil {
			m.log.Warn("speech playback failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.player.Stop()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenWelcome:
		return m.updateWelcome(msg)
	case screenGame:
		return m.updateGame(msg)
	case screenResult:
		return m.updateResult(msg)
	case screenReports:
		return m.updateReports(msg)
	case screenReportDetail:
		return m.updateReportDetail(msg)
	case screenSettings:
		return m.updateSettings(msg)
	}
	return m, nil
}

func (m Model) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter", "s":
		m.screen = screenGame
		m.proj = session.Projection{}
		m = m.markPending()
		return m, m.startCmd()
	case "r":
		m.screen = screenReports
		m.cursor = 0
		return m, m.loadReportsCmd()
	case "p":
		m.screen = screenSettings
		m.notice = ""
		m.nameInput.SetValue(m.profile.Name)
		m.nameInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.player.Stop()
		m.ctrl.Reset()
		m.proj = m.ctrl.Snapshot()
		m.screen = screenWelcome
		return m, nil
	}
	if m.proj.Loading {
		return m, nil
	}
	if tok, ok := answerForKey(msg.String()); ok {
		m.player.Stop()
		m = m.markPending()
		return m, m.answerCmd(tok)
	}
	if msg.String() == "b" || msg.String() == "left" {
		if !m.proj.CanGoBack {
			return m, nil
		}
		m.player.Stop()
		if err := m.ctrl.GoBack(); err != nil {
			m.log.Warn("go back rejected", "error", err)
		}
		m.proj = m.ctrl.Snapshot()
		return m, m.speakCmd(m.proj.CurrentQuestion)
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "r":
		m.screen = screenGame
		m.proj = session.Projection{}
		m = m.markPending()
		return m, m.restartCmd()
	case "l":
		m.screen = screenReports
		m.cursor = 0
		return m, m.loadReportsCmd()
	case "esc", "q":
		m.ctrl.Reset()
		m.proj = m.ctrl.Snapshot()
		m.screen = screenWelcome
		return m, nil
	}
	return m, nil
}

func (m Model) updateReports(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.savedReports)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.savedReports) {
			r := m.savedReports[m.cursor]
			m.detail = &r
			m.screen = screenReportDetail
		}
	case "c":
		return m, m.clearReportsCmd()
	case "esc", "q":
		m.screen = screenWelcome
	}
	return m, nil
}

func (m Model) updateReportDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		m.detail = nil
		m.screen = screenReports
	}
	return m, nil
}

// avatarIDs are the selectable profile avatars.
var avatarIDs = []string{"default", "bear", "cat", "fox", "owl", "panda"}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenWelcome
		return m, nil
	case "tab":
		m.profile.Avatar = nextAvatar(m.profile.Avatar)
		return m, nil
	case "enter":
		name := m.nameInput.Value()
		if name == "" {
			name = domain.DefaultProfile().Name
		}
		m.profile.Name = name
		return m, m.saveProfileCmd(m.profile)
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

// nextAvatar cycles through the avatar list, wrapping at the end. An
// unknown id restarts the cycle.
func nextAvatar(current string) string {
	for i, id := range avatarIDs {
		if id == current {
			return avatarIDs[(i+1)%len(avatarIDs)]
		}
	}
	return avatarIDs[0]
}

// markPending puts the projection into the busy state before a controller
// command is dispatched. The controller only flips its own status once the
// command runs, so without this the view would keep showing the previous
// question while the request is in flight. refreshSession replaces the
// whole projection when the command completes.
func (m Model) markPending() Model {
	m.proj.Status = session.StatusAwaitingReply
	m.proj.Loading = true
	m.proj.CanGoBack = false
	m.proj.CurrentQuestion = ""
	return m
}

// refreshSession pulls the latest projection after a controller command
// finished and routes to the result screen on termination.
func (m Model) refreshSession() (tea.Model, tea.Cmd) {
	m.proj = m.ctrl.Snapshot()
	switch m.proj.Status {
	case session.StatusTerminated, session.StatusFailed:
		m.screen = screenResult
		return m, nil
	case session.StatusAwaitingAnswer:
		return m, m.speakCmd(m.proj.CurrentQuestion)
	}
	return m, nil
}

// answerForKey maps a pressed key to an answer token.
func answerForKey(key string) (domain.AnswerToken, bool) {
	switch key {
	case "1", "y":
		return domain.AnswerYes, true
	case "2", "n":
		return domain.AnswerNo, true
	case "3":
		return domain.AnswerProbably, true
	case "4":
		return domain.AnswerProbablyNot, true
	case "5", "d":
		return domain.AnswerDontKnow, true
	}
	return "", false
}

func (m Model) startCmd() tea.Cmd {
	ctrl, log := m.ctrl, m.log
	return func() tea.Msg {
		if err := ctrl.Start(context.Background()); err != nil {
			log.Warn("session start failed", "error", err)
		}
		return sessionDoneMsg{}
	}
}

func (m Model) answerCmd(tok domain.AnswerToken) tea.Cmd {
	ctrl, log := m.ctrl, m.log
	return func() tea.Msg {
		if err := ctrl.Answer(context.Background(), tok); err != nil {
			log.Warn("answer failed", "error", err)
		}
		return sessionDoneMsg{}
	}
}

func (m Model) restartCmd() tea.Cmd {
	ctrl, log := m.ctrl, m.log
	return func() tea.Msg {
		if err := ctrl.Restart(context.Background()); err != nil {
			log.Warn("session restart failed", "error", err)
		}
		return sessionDoneMsg{}
	}
}

func (m Model) loadReportsCmd() tea.Cmd {
	store := m.reports
	return func() tea.Msg {
		reports, err := store.List(context.Background())
		return reportsMsg{reports: reports, err: err}
	}
}

func (m Model) clearReportsCmd() tea.Cmd {
	store := m.reports
	return func() tea.Msg {
		return reportsClearedMsg{err: store.Clear(context.Background())}
	}
}

func (m Model) saveProfileCmd(p domain.UserProfile) tea.Cmd {
	store := m.profiles
	return func() tea.Msg {
		return profileSavedMsg{err: store.SaveProfile(context.Background(), p)}
	}
}

// speakCmd reads the current question aloud. Failures are logged and
// otherwise ignored, the game works fine without audio.
func (m Model) speakCmd(text string) tea.Cmd {
	if m.synth == nil || text == "" {
		return nil
	}
	synth, player := m.synth, m.player
	return func() tea.Msg {
		audio, err := synth.Synthesize(context.Background(), text)
		if err == nil {
			err = player.Play(context.Background(), audio)
		}
		return speechDoneMsg{err: err}
	}
}

// progressRatio reports how far along the question budget the session is.
func progressRatio(turnCount int) float64 {
	r := float64(turnCount) / float64(gateway.MaxQuestions)
	if r > 1 {
		return 1
	}
	return r
}
