// Package stt provides speech-to-text providers, streaming recognizers and
// the input controller that feeds transcripts into translation.
package stt

import (
	"context"
	"errors"

	"go.aimuz.me/transpeak/internal/types"
)

// ErrPermissionDenied is returned when microphone access is refused.
var ErrPermissionDenied = errors.New("microphone permission denied")

// TranscribeResult represents the result of a batch transcription.
type TranscribeResult struct {
	Text     string `json:"text"`     // Transcribed text
	Language string `json:"language"` // Detected language code
}

// Provider defines the interface for batch speech-to-text providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// IsReady returns true if the provider is ready to use.
	IsReady() bool

	// Transcribe converts audio samples to text.
	// audio: PCM float32 samples at sampleRate
	// language: source language code (empty for auto-detect)
	Transcribe(ctx context.Context, audio []float32, sampleRate int, language string) (*TranscribeResult, error)
}

// Transcript is one update from a streaming recognizer.
type Transcript struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// Recognizer streams transcripts from live audio.
type Recognizer interface {
	// Authorize requests permission to capture audio. It may block
	// until the user answers.
	Authorize(ctx context.Context) error

	// StartStream begins recognition. The channel receives partial
	// transcripts and is closed after the final one.
	StartStream(ctx context.Context, lang types.LanguageTag) (<-chan Transcript, error)

	// Stop ends recognition. The last partial is delivered as final
	// before the channel closes.
	Stop() error
}
