// Package recorder assembles immutable reports from terminated sessions
// and derives human-readable views over their transcripts.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
)

// Store is the persistence capability the recorder writes to.
type Store interface {
	Save(ctx context.Context, r domain.Report) error
}

// Recorder builds and persists one report per terminated session.
type Recorder struct {
	store Store
}

// New constructs a Recorder backed by the given store.
func New(store Store) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("recorder: store must not be nil")
	}
	return &Recorder{store: store}, nil
}

// Record freezes the diagnosis and the history that led to it into a
// Report and hands it to the store.
func (r *Recorder) Record(ctx context.Context, d domain.Diagnosis, history []domain.Turn) (domain.Report, error) {
	rep := domain.Report{
		ID:         newUUID(),
		CreatedAt:  now().UTC(),
		Diagnosis:  d,
		Transcript: domain.CloneTranscript(history),
	}
	if err := r.store.Save(ctx, rep); err != nil {
		return domain.Report{}, fmt.Errorf("recorder: save report: %w", err)
	}
	return rep, nil
}

var (
	newUUID = func() string { return uuid.NewString() }
	now     = time.Now
)

var interrogativePrefix = regexp.MustCompile(`(?i)^(Do you have|Are you experiencing|Is there|Is your|Have you been)\s*`)

// RecoverConfirmedSymptoms scans a transcript for questions answered
// "Yes" and rewrites each into a short symptom phrase: the leading
// interrogative phrasing and trailing question mark are stripped and the
// first letter capitalized. Pure function; empty input yields nil.
func RecoverConfirmedSymptoms(history []domain.Turn) []string {
	var symptoms []string
	for i := 0; i+1 < len(history); i++ {
		cur, next := history[i], history[i+1]
		if cur.Role != domain.RoleModel || next.Role != domain.RoleUser {
			continue
		}
		if next.Payload != string(domain.AnswerYes) {
			continue
		}
		prompt, ok := codec.QuestionPrompt(cur)
		if !ok {
			continue
		}
		symptom := interrogativePrefix.ReplaceAllString(prompt, "")
		symptom = strings.TrimSuffix(strings.TrimSpace(symptom), "?")
		symptom = strings.TrimSpace(symptom)
		if symptom == "" {
			continue
		}
		symptoms = append(symptoms, capitalize(symptom))
	}
	return symptoms
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
