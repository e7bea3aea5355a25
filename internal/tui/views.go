package tui

import (
	"fmt"
	"strings"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
	"healthkinator/internal/gateway"
	"healthkinator/internal/recorder"
	"healthkinator/internal/session"
)

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenWelcome:
		body = m.viewWelcome()
	case screenGame:
		body = m.viewGame()
	case screenResult:
		body = m.viewResult()
	case screenReports:
		body = m.viewReports()
	case screenReportDetail:
		body = m.viewReportDetail()
	case screenSettings:
		body = m.viewSettings()
	}
	return appStyle.Render(body)
}

func (m Model) viewWelcome() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Healthkinator"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Hello, %s. Answer a few questions and I will guess what might be bothering you.", m.profile.Name)))
	b.WriteString("\n\n")
	b.WriteString("  enter  start a check-up\n")
	b.WriteString("  r      past reports\n")
	b.WriteString("  p      profile settings\n")
	b.WriteString("  q      quit\n")
	b.WriteString(hintStyle.Render(gateway.Disclaimer))
	return b.String()
}

func (m Model) viewGame() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Healthkinator"))
	b.WriteString("\n")
	b.WriteString(m.prog.ViewAs(progressRatio(m.proj.TurnCount)))
	b.WriteString("\n")

	if m.proj.Loading {
		b.WriteString(questionStyle.Render(m.spin.View() + " Thinking..."))
		b.WriteString(hintStyle.Render("esc back to menu"))
		return b.String()
	}

	if m.proj.Status == session.StatusAwaitingAnswer {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("Question %d", m.proj.TurnCount)))
		b.WriteString("\n")
		b.WriteString(questionStyle.Render(m.proj.CurrentQuestion))
		b.WriteString("\n")
		answers := []string{"1 Yes", "2 No", "3 Probably", "4 Probably not", "5 Don't Know"}
		for _, a := range answers {
			b.WriteString(answerStyle.Render(a))
		}
		b.WriteString("\n")
		hints := "esc menu"
		if m.proj.CanGoBack {
			hints = "b back a question   " + hints
		}
		b.WriteString(hintStyle.Render(hints))
		return b.String()
	}

	b.WriteString(hintStyle.Render("esc back to menu"))
	return b.String()
}

func (m Model) viewResult() string {
	var b strings.Builder
	if m.proj.Status == session.StatusFailed {
		b.WriteString(errorStyle.Render("Something went wrong"))
		b.WriteString("\n\n")
		b.WriteString(m.proj.ErrorMessage)
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter try again   esc menu"))
		return b.String()
	}

	d := m.proj.Diagnosis
	if d == nil {
		b.WriteString(errorStyle.Render("No diagnosis available."))
		b.WriteString(hintStyle.Render("enter play again   esc menu"))
		return b.String()
	}

	b.WriteString(titleStyle.Render("My guess"))
	b.WriteString("\n\n")
	b.WriteString(conditionStyle.Render(d.Condition))
	b.WriteString("  ")
	b.WriteString(confidenceStyle(d.Confidence).Render(fmt.Sprintf("%.0f%% confident", d.Confidence)))
	b.WriteString("\n\n")
	b.WriteString(d.Report)
	b.WriteString("\n")
	if len(d.Suggestions) > 0 {
		b.WriteString("\nWhat you can do:\n")
		for _, s := range d.Suggestions {
			b.WriteString("  - " + s + "\n")
		}
	}
	if m.proj.Report != nil {
		b.WriteString(noticeStyle.Render("Report saved."))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render(gateway.Disclaimer))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter play again   l past reports   esc menu"))
	return b.String()
}

func (m Model) viewReports() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Past Reports"))
	b.WriteString("\n\n")
	if m.listErr != "" {
		b.WriteString(errorStyle.Render(m.listErr))
		b.WriteString("\n")
	}
	if len(m.savedReports) == 0 {
		b.WriteString(subtitleStyle.Render("Nothing here yet."))
		b.WriteString("\n")
	}
	for i, r := range m.savedReports {
		line := fmt.Sprintf("%s  %s (%.0f%%)",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Diagnosis.Condition,
			r.Diagnosis.Confidence)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("enter open   c clear all   esc menu"))
	return b.String()
}

func (m Model) viewReportDetail() string {
	if m.detail == nil {
		return ""
	}
	r := *m.detail
	var b strings.Builder
	b.WriteString(conditionStyle.Render(r.Diagnosis.Condition))
	b.WriteString("  ")
	b.WriteString(confidenceStyle(r.Diagnosis.Confidence).Render(fmt.Sprintf("%.0f%%", r.Diagnosis.Confidence)))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(r.CreatedAt.Local().Format("January 2, 2006 15:04")))
	b.WriteString("\n")
	b.WriteString(reportBoxStyle.Render(r.Diagnosis.Report))
	b.WriteString("\n")

	if symptoms := recorder.RecoverConfirmedSymptoms(r.Transcript); len(symptoms) > 0 {
		b.WriteString("\nConfirmed symptoms:\n")
		for _, s := range symptoms {
			b.WriteString(checkStyle.Render("  ✓ ") + s + "\n")
		}
	}

	if qa := renderTranscript(r.Transcript); qa != "" {
		b.WriteString("\nQuestions asked:\n")
		b.WriteString(qa)
	}
	b.WriteString(hintStyle.Render("esc back"))
	return b.String()
}

func (m Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profile"))
	b.WriteString("\n\n")
	b.WriteString("Display name:\n")
	b.WriteString(m.nameInput.View())
	b.WriteString("\n\n")
	b.WriteString("Avatar: " + selectedStyle.Render(m.profile.Avatar))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("tab change avatar   enter save   esc menu"))
	return b.String()
}

// renderTranscript lists each question together with the answer that
// followed it. The opening turn that kicks the session off is skipped.
func renderTranscript(transcript []domain.Turn) string {
	var b strings.Builder
	for i, t := range transcript {
		if t.Role != domain.RoleModel {
			continue
		}
		prompt, ok := codec.QuestionPrompt(t)
		if !ok {
			continue
		}
		answer := ""
		if i+1 < len(transcript) && transcript[i+1].Role == domain.RoleUser {
			answer = transcript[i+1].Payload
		}
		b.WriteString(fmt.Sprintf("  Q: %s\n", prompt))
		if answer != "" {
			b.WriteString(fmt.Sprintf("  A: %s\n", answer))
		}
	}
	return b.String()
}
