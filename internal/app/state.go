package app

import (
	"fmt"
	"time"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/session"
	"go.aimuz.me/transpeak/tts"
)

// Phase is the coarse state of the coordinator.
type Phase int

const (
	Idle Phase = iota
	AwaitingTranslation
	Speaking
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingTranslation:
		return "awaiting-translation"
	case Speaking:
		return "speaking"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a read-only snapshot of the coordinator.
type State struct {
	Pair           types.LanguagePair `json:"pair"`
	Phase          Phase              `json:"phase"`
	PendingText    string             `json:"pendingText"`
	TranslatedText string             `json:"translatedText"`

	Recording         bool `json:"recording"`
	StartingRecording bool `json:"startingRecording"`
	Speaking          bool `json:"speaking"`

	AudioMode    audiocapture.Mode `json:"audioMode"`
	SessionID    string            `json:"sessionId,omitempty"`
	SessionState session.State     `json:"sessionState"`

	LastSpeechEvent *tts.Event `json:"lastSpeechEvent,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
