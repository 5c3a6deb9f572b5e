package tts

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"go.aimuz.me/transpeak/internal/types"
)

// DefaultWordDuration approximates 150 words per minute.
const DefaultWordDuration = 400 * time.Millisecond

// DefaultVoices is the catalog used by ConsoleSynthesizer when none is given.
var DefaultVoices = []Voice{
	{ID: "en-us-1", Name: "English (US)", Language: types.LanguageTag{Code: "en", Region: "US"}},
	{ID: "en-gb-1", Name: "English (UK)", Language: types.LanguageTag{Code: "en", Region: "GB"}},
	{ID: "hi-in-1", Name: "Hindi (India)", Language: types.LanguageTag{Code: "hi", Region: "IN"}},
	{ID: "es-es-1", Name: "Spanish (Spain)", Language: types.LanguageTag{Code: "es", Region: "ES"}},
	{ID: "fr-fr-1", Name: "French (France)", Language: types.LanguageTag{Code: "fr", Region: "FR"}},
	{ID: "de-de-1", Name: "German (Germany)", Language: types.LanguageTag{Code: "de", Region: "DE"}},
	{ID: "ja-jp-1", Name: "Japanese (Japan)", Language: types.LanguageTag{Code: "ja", Region: "JP"}},
	{ID: "zh-cn-1", Name: "Chinese (China)", Language: types.LanguageTag{Code: "zh", Region: "CN"}},
}

// ConsoleSynthesizer "speaks" by writing utterances to a writer and holding
// the speaking state for a time proportional to the word count.
type ConsoleSynthesizer struct {
	w       io.Writer
	voices  []Voice
	perWord time.Duration
	events  chan Event

	mu      sync.Mutex
	current string
	cancel  chan struct{}
}

// NewConsoleSynthesizer creates a synthesizer writing to w. A nil voices
// slice uses DefaultVoices; perWord <= 0 uses DefaultWordDuration.
func NewConsoleSynthesizer(w io.Writer, voices []Voice, perWord time.Duration) *ConsoleSynthesizer {
	if voices == nil {
		voices = DefaultVoices
	}
	if perWord <= 0 {
		perWord = DefaultWordDuration
	}
	return &ConsoleSynthesizer{
		w:       w,
		voices:  voices,
		perWord: perWord,
		events:  make(chan Event, 32),
	}
}

func (s *ConsoleSynthesizer) ResolveVoice(tag types.LanguageTag) (Voice, bool) {
	return lo.Find(s.voices, func(v Voice) bool { return v.Language == tag })
}

func (s *ConsoleSynthesizer) Speak(u Utterance) error {
	s.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "[%s] %s\n", u.Voice.Name, u.Text); err != nil {
		return fmt.Errorf("write utterance: %w", err)
	}

	cancel := make(chan struct{})
	s.current = u.ID
	s.cancel = cancel
	s.emit(Event{Type: EventStarted, UtteranceID: u.ID})

	words := max(len(strings.Fields(u.Text)), 1)
	go s.play(u.ID, time.Duration(words)*s.perWord, cancel)
	return nil
}

func (s *ConsoleSynthesizer) play(id string, d time.Duration, cancel <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current != id {
			return
		}
		s.current = ""
		s.cancel = nil
		s.emit(Event{Type: EventFinished, UtteranceID: id})
	case <-cancel:
	}
}

func (s *ConsoleSynthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	close(s.cancel)
	s.emit(Event{Type: EventCancelled, UtteranceID: s.current})
	s.current = ""
	s.cancel = nil
}

func (s *ConsoleSynthesizer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *ConsoleSynthesizer) Events() <-chan Event {
	return s.events
}

// emit must be called with s.mu held.
func (s *ConsoleSynthesizer) emit(e Event) {
	select {
	case s.events <- e:
	default:
		slog.Warn("speech event dropped", "type", e.Type, "utterance", e.UtteranceID)
	}
}
