// Package tts speaks translated text through a Synthesizer.
package tts

import (
	"errors"

	"go.aimuz.me/transpeak/internal/types"
)

// ErrVoiceNotFound reports that no voice matches a language. OutputController
// never returns it; it falls back instead.
var ErrVoiceNotFound = errors.New("voice not found")

const (
	// DefaultRate is the normal speaking rate.
	DefaultRate = 0.5
	// DefaultVolume is full volume.
	DefaultVolume = 1.0
)

// FallbackLanguage is used when no voice exists for the target language.
var FallbackLanguage = types.LanguageTag{Code: "en", Region: "US"}

// Voice is a synthesizer voice.
type Voice struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Language types.LanguageTag `json:"language"`
}

// Utterance is one piece of text to speak.
type Utterance struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Voice  Voice   `json:"voice"`
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
}

// EventType is a speech lifecycle stage.
type EventType string

const (
	EventStarted   EventType = "started"
	EventFinished  EventType = "finished"
	EventCancelled EventType = "cancelled"
)

// Event reports a lifecycle change of an utterance.
type Event struct {
	Type        EventType `json:"type"`
	UtteranceID string    `json:"utteranceId"`
}

// Synthesizer is a speech output backend.
type Synthesizer interface {
	// ResolveVoice returns a voice for tag, matching code and region exactly.
	ResolveVoice(tag types.LanguageTag) (Voice, bool)

	// Speak starts speaking u and returns without waiting for it to finish.
	Speak(u Utterance) error

	// Cancel stops the current utterance, if any.
	Cancel()

	// IsSpeaking reports whether an utterance is in progress.
	IsSpeaking() bool

	// Events delivers lifecycle events.
	Events() <-chan Event
}
