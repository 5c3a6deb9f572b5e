package stt

import (
	"context"
	"strings"
	"sync"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/internal/types"
)

// ManualRecognizer is a Recognizer driven by Feed calls instead of a
// microphone. Each Feed delivers a partial; Stop delivers the last one as
// final.
type ManualRecognizer struct {
	// Deny makes Authorize fail, simulating a refused permission prompt.
	Deny bool

	mu   sync.Mutex
	out  chan Transcript
	last string
}

// NewManualRecognizer creates a ManualRecognizer.
func NewManualRecognizer() *ManualRecognizer {
	return &ManualRecognizer{}
}

func (m *ManualRecognizer) Authorize(context.Context) error {
	if m.Deny {
		return ErrPermissionDenied
	}
	return nil
}

func (m *ManualRecognizer) StartStream(_ context.Context, _ types.LanguageTag) (<-chan Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out != nil {
		return nil, audiocapture.ErrRunning
	}
	m.out = make(chan Transcript, 64)
	m.last = ""
	return m.out, nil
}

// Feed delivers text as the current partial transcript. It reports false
// when no stream is active.
func (m *ManualRecognizer) Feed(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out == nil {
		return false
	}
	m.last = text
	m.out <- Transcript{Text: text}
	return true
}

// Append extends the current partial transcript with text, as continued
// dictation does.
func (m *ManualRecognizer) Append(text string) bool {
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()

	return m.Feed(strings.TrimSpace(last + " " + text))
}

func (m *ManualRecognizer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out == nil {
		return nil
	}
	m.out <- Transcript{Text: m.last, IsFinal: true}
	close(m.out)
	m.out = nil
	return nil
}
