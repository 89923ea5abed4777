// Package speech turns captured PCM into text. Recognition itself is
// delegated: either to a local whisper.cpp model or to the OpenAI
// transcription API.
package speech

import "context"

// Transcriber converts mono 16kHz float32 PCM to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
	Close() error
}
