// Package speech is the optional audio side channel: it can speak the
// current question aloud but never touches session state or transcript
// content. Interrupting playback is always safe.
package speech

import "context"

// Audio is raw synthesized speech.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Synthesizer converts question text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Player plays synthesized audio. Play stops any previous playback before
// starting; Stop interrupts the current playback and may be called at any
// time, including concurrently with Play.
type Player interface {
	Play(ctx context.Context, a Audio) error
	Stop()
}

// NopPlayer discards audio. Used when no playback device is configured.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, Audio) error { return nil }
func (NopPlayer) Stop()                             {}
