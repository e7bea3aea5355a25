package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

const (
	ttsModel = "gemini-2.5-flash-preview-tts"
	ttsVoice = "Kore"

	// The TTS models emit 24 kHz mono 16-bit PCM.
	ttsSampleRate = 24000
	ttsChannels   = 1
)

// GeminiSynthesizer produces speech through the Gemini TTS models. The
// client is built lazily on first use, mirroring the generation gateway.
type GeminiSynthesizer struct {
	apiKey string
	voice  string

	once sync.Once
	cli  *genai.Client
	err  error
}

// NewGeminiSynthesizer creates a synthesizer with the given API key.
func NewGeminiSynthesizer(apiKey string) *GeminiSynthesizer {
	return &GeminiSynthesizer{apiKey: strings.TrimSpace(apiKey), voice: ttsVoice}
}

func (s *GeminiSynthesizer) resolveClient(ctx context.Context) (*genai.Client, error) {
	s.once.Do(func() {
		if s.apiKey == "" {
			s.err = errors.New("speech: API key is not configured")
			return
		}
		s.cli, s.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return s.cli, s.err
}

// Synthesize renders text as raw PCM audio.
func (s *GeminiSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	cli, err := s.resolveClient(ctx)
	if err != nil {
		return Audio{}, err
	}

	resp, err := cli.Models.GenerateContent(ctx, ttsModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
				},
			},
		},
	)
	if err != nil {
		return Audio{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Audio{}, errors.New("speech: empty audio response")
	}
	blob := resp.Candidates[0].Content.Parts[0].InlineData
	if blob == nil || len(blob.Data) == 0 {
		return Audio{}, errors.New("speech: response carries no audio data")
	}
	return Audio{PCM: blob.Data, SampleRate: ttsSampleRate, Channels: ttsChannels}, nil
}
