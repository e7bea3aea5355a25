package speech

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopPlayer(t *testing.T) {
	var p Player = NopPlayer{}
	require.NoError(t, p.Play(context.Background(), Audio{}))
	p.Stop() // always safe
}

func TestGeminiSynthesizerRequiresKey(t *testing.T) {
	s := NewGeminiSynthesizer("  ")
	_, err := s.Synthesize(context.Background(), "Do you have a fever?")
	require.Error(t, err)
	// The failure is permanent.
	_, err = s.Synthesize(context.Background(), "Do you have a cough?")
	require.Error(t, err)
}
