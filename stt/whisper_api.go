package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// WhisperAPI implements Provider using the OpenAI transcription endpoint.
type WhisperAPI struct {
	client openai.Client
	model  string
	ready  bool
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // Optional, defaults to OpenAI's API
	Model   string // Optional, defaults to "whisper-1"
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	return &WhisperAPI{
		client: openai.NewClient(opts...),
		model:  model,
		ready:  cfg.APIKey != "",
	}
}

func (w *WhisperAPI) Name() string  { return "whisper-api" }
func (w *WhisperAPI) IsReady() bool { return w.ready }

// Transcribe uploads audio as WAV and returns the recognized text.
// language "" or "auto" lets the service detect it.
func (w *WhisperAPI) Transcribe(ctx context.Context, audio []float32, sampleRate int, language string) (*TranscribeResult, error) {
	if !w.ready {
		return nil, fmt.Errorf("whisper api: API key required")
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(float32ToWAV(audio, sampleRate)), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	return &TranscribeResult{Text: resp.Text, Language: language}, nil
}
