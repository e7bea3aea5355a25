// Package codec translates between transcript turns and the structured
// reply contract spoken by the inference backend. It is a pure transform:
// no I/O, no session state.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"healthkinator/internal/domain"
)

// ErrorKind classifies decode failures.
type ErrorKind string

const (
	// NotStructured means the payload was not parseable JSON at all.
	NotStructured ErrorKind = "NOT_STRUCTURED"
	// Malformed means the payload parsed but is missing required fields
	// or carries out-of-range values.
	Malformed ErrorKind = "MALFORMED"
)

// DecodeError reports why a backend payload could not be decoded.
type DecodeError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("codec: %s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("codec: %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(kind ErrorKind, reason string, err error) *DecodeError {
	return &DecodeError{Kind: kind, Reason: reason, Err: err}
}

// wireReply is the JSON shape the backend is contracted to emit.
// Condition, Confidence and Suggestions are only meaningful when Type is
// "diagnosis"; the decoder enforces presence per variant.
type wireReply struct {
	Type        string   `json:"type"`
	Text        string   `json:"text"`
	Condition   string   `json:"condition,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SeedTurn returns the fixed user turn that opens every transcript.
func SeedTurn() domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Payload: domain.SeedTurnText}
}

// EncodeAnswer wraps an answer token as a user turn. Token membership is a
// presentation-layer contract, not validated here.
func EncodeAnswer(tok domain.AnswerToken) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Payload: string(tok)}
}

// DecodeReply parses a raw backend payload into a typed reply. A payload
// that is not JSON yields NotStructured; JSON missing required fields, or
// with confidence outside [0,100], yields Malformed.
func DecodeReply(raw string) (domain.BackendReply, error) {
	var wire wireReply
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	if err := dec.Decode(&wire); err != nil {
		return domain.BackendReply{}, decodeErr(NotStructured, "decode reply", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.BackendReply{}, decodeErr(NotStructured, "multiple JSON values", nil)
		}
		return domain.BackendReply{}, decodeErr(NotStructured, "trailing data", err)
	}

	switch domain.ReplyType(wire.Type) {
	case domain.ReplyQuestion:
		if strings.TrimSpace(wire.Text) == "" {
			return domain.BackendReply{}, decodeErr(Malformed, "question missing text", nil)
		}
		return domain.BackendReply{Question: &domain.Question{Prompt: wire.Text}}, nil

	case domain.ReplyDiagnosis:
		if strings.TrimSpace(wire.Condition) == "" {
			return domain.BackendReply{}, decodeErr(Malformed, "diagnosis missing condition", nil)
		}
		if wire.Confidence == nil {
			return domain.BackendReply{}, decodeErr(Malformed, "diagnosis missing confidence", nil)
		}
		if *wire.Confidence < 0 || *wire.Confidence > 100 {
			return domain.BackendReply{}, decodeErr(Malformed, fmt.Sprintf("confidence %v outside [0,100]", *wire.Confidence), nil)
		}
		if strings.TrimSpace(wire.Text) == "" {
			return domain.BackendReply{}, decodeErr(Malformed, "diagnosis missing report text", nil)
		}
		d := &domain.Diagnosis{
			Condition:  wire.Condition,
			Confidence: *wire.Confidence,
			Report:     wire.Text,
		}
		if len(wire.Suggestions) > 0 {
			d.Suggestions = wire.Suggestions
		}
		return domain.BackendReply{Diagnosis: d}, nil

	case "":
		return domain.BackendReply{}, decodeErr(Malformed, "missing type discriminant", nil)
	default:
		return domain.BackendReply{}, decodeErr(Malformed, fmt.Sprintf("unknown type %q", wire.Type), nil)
	}
}

// ToModelTurn serializes a reply back to its canonical transcript form.
// Decoding the result yields a reply equal to the input.
func ToModelTurn(reply domain.BackendReply) domain.Turn {
	var wire wireReply
	switch reply.Type() {
	case domain.ReplyDiagnosis:
		d := reply.Diagnosis
		conf := d.Confidence
		wire = wireReply{
			Type:       string(domain.ReplyDiagnosis),
			Text:       d.Report,
			Condition:  d.Condition,
			Confidence: &conf,
		}
		if len(d.Suggestions) > 0 {
			wire.Suggestions = d.Suggestions
		}
	default:
		wire = wireReply{Type: string(domain.ReplyQuestion), Text: reply.Question.Prompt}
	}
	// wireReply contains no types that can fail to marshal.
	payload, _ := json.Marshal(wire)
	return domain.Turn{Role: domain.RoleModel, Payload: string(payload)}
}

// QuestionPrompt extracts the prompt from a model turn holding a question
// reply. It returns false for user turns, diagnosis turns and undecodable
// payloads.
func QuestionPrompt(t domain.Turn) (string, bool) {
	if t.Role != domain.RoleModel {
		return "", false
	}
	reply, err := DecodeReply(t.Payload)
	if err != nil || reply.Question == nil {
		return "", false
	}
	return reply.Question.Prompt, true
}
