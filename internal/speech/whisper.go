package speech

import (
	"context"

	"darvis/pkg/stt"
)

// Whisper transcribes locally with a whisper.cpp model.
type Whisper struct {
	tr       *stt.Transcriber
	language string
}

func NewWhisper(modelPath, language string) (*Whisper, error) {
	tr, err := stt.NewTranscriber(modelPath)
	if err != nil {
		return nil, err
	}
	return &Whisper{tr: tr, language: language}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	return w.tr.TranscribePCM(ctx, pcm, stt.Options{Language: w.language})
}

func (w *Whisper) Close() error {
	return w.tr.Close()
}
