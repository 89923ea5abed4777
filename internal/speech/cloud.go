package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	openai "github.com/openai/openai-go/v3"

	"darvis/internal/audio"
	"darvis/pkg/audioconv"
)

// Cloud transcribes through the OpenAI audio API. Each utterance is
// encoded to a temporary WAV and uploaded.
type Cloud struct {
	client   openai.Client
	language string
}

func NewCloud(client openai.Client, language string) *Cloud {
	return &Cloud{client: client, language: language}
}

func (c *Cloud) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("darvis-%d.wav", os.Getpid()))
	if err := audioconv.WriteWAV(path, pcm, audio.SampleRate); err != nil {
		return "", err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	}
	if c.language != "" && c.language != "auto" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

func (c *Cloud) Close() error { return nil }
