package domain

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a single transcript entry. For user turns Payload is the literal
// answer token; for model turns it is the canonical JSON form of a
// BackendReply. Turns are immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Payload string `json:"payload"`
}

// SeedTurnText is the fixed user message that opens every session.
const SeedTurnText = "Let's begin. Ask me the first question about my symptoms."

// AnswerToken is one of the fixed set of answers a user can give to a
// question. The presentation layer only ever submits these values.
type AnswerToken string

const (
	AnswerYes         AnswerToken = "Yes"
	AnswerNo          AnswerToken = "No"
	AnswerProbably    AnswerToken = "Probably"
	AnswerProbablyNot AnswerToken = "Probably not"
	AnswerDontKnow    AnswerToken = "Don't Know"
)

// AnswerTokens lists every valid answer in display order.
func AnswerTokens() []AnswerToken {
	return []AnswerToken{AnswerYes, AnswerNo, AnswerProbably, AnswerProbablyNot, AnswerDontKnow}
}

// CloneTranscript returns an independent copy of a transcript slice.
func CloneTranscript(ts []Turn) []Turn {
	if ts == nil {
		return nil
	}
	out := make([]Turn, len(ts))
	copy(out, ts)
	return out
}
