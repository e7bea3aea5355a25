package domain

// ReplyType discriminates the two kinds of backend reply.
type ReplyType string

const (
	ReplyQuestion  ReplyType = "question"
	ReplyDiagnosis ReplyType = "diagnosis"
)

// Question is the backend asking the user one more thing.
type Question struct {
	Prompt string `json:"prompt"`
}

// Diagnosis is the backend's terminal conclusion for a session.
type Diagnosis struct {
	Condition   string   `json:"condition"`
	Confidence  float64  `json:"confidence"`
	Report      string   `json:"report"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// BackendReply is one decoded structured turn from the inference backend.
// Exactly one of Question or Diagnosis is non-nil; the codec enforces this
// when decoding and callers must preserve it when constructing replies.
type BackendReply struct {
	Question  *Question
	Diagnosis *Diagnosis
}

// Type returns the discriminant for the populated variant.
func (r BackendReply) Type() ReplyType {
	if r.Diagnosis != nil {
		return ReplyDiagnosis
	}
	return ReplyQuestion
}
