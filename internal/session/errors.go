package session

import (
	"errors"

	"healthkinator/internal/codec"
	"healthkinator/internal/gateway"
)

// userMessage maps a gateway or decode failure to the human-readable text
// shown on the failure screen. Every branch yields non-empty text.
func userMessage(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case gateway.KindTransport:
			return "Could not reach the assessment service. Check your connection and API key, then try again."
		case gateway.KindProtocol:
			return "The assessment service returned an unexpected reply. Please try again."
		}
	}
	var decErr *codec.DecodeError
	if errors.As(err, &decErr) {
		return "The assessment service returned an unexpected reply. Please try again."
	}
	return "Something went wrong during the assessment. Please try again."
}
