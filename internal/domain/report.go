package domain

import "time"

// Report is the persisted record of a terminated session. It is created
// once by the recorder and never mutated afterwards. The transcript is the
// history that led to the diagnosis, excluding the diagnosis turn and the
// user answer that triggered it.
type Report struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Diagnosis  Diagnosis `json:"diagnosis"`
	Transcript []Turn    `json:"transcript"`
}

// UserProfile is pass-through configuration for the presentation layer.
type UserProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// DefaultProfile is returned whenever no stored profile can be read.
func DefaultProfile() UserProfile {
	return UserProfile{Name: "Guest", Avatar: "default"}
}
