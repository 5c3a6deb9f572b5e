package tts

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/transpeak/internal/types"
)

// fakeSynth records calls.
type fakeSynth struct {
	mu       sync.Mutex
	voices   []Voice
	spoken   []Utterance
	cancels  int
	speaking bool
	events   chan Event
}

func (f *fakeSynth) ResolveVoice(tag types.LanguageTag) (Voice, bool) {
	for _, v := range f.voices {
		if v.Language == tag {
			return v, true
		}
	}
	return Voice{}, false
}

func (f *fakeSynth) Speak(u Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, u)
	f.speaking = true
	return nil
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.speaking = false
}

func (f *fakeSynth) IsSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speaking
}

func (f *fakeSynth) Events() <-chan Event { return f.events }

var (
	enUS = types.LanguageTag{Code: "en", Region: "US"}
	hiIN = types.LanguageTag{Code: "hi", Region: "IN"}
	swKE = types.LanguageTag{Code: "sw", Region: "KE"}
)

func TestOutputController_EmptyTextIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		f := &fakeSynth{speaking: true}
		c := NewOutputController(f, OutputConfig{})

		id, err := c.Speak(text, hiIN)
		if err != nil || id != "" {
			t.Errorf("Speak(%q) = %q, %v; want empty, nil", text, id, err)
		}
		if len(f.spoken) != 0 || f.cancels != 0 {
			t.Errorf("Speak(%q): spoken=%d cancels=%d, want none", text, len(f.spoken), f.cancels)
		}
	}
}

func TestOutputController_CancelsBeforeSpeaking(t *testing.T) {
	f := &fakeSynth{voices: []Voice{{ID: "hi", Language: hiIN}}}
	c := NewOutputController(f, OutputConfig{})

	first, _ := c.Speak("one", hiIN)
	second, _ := c.Speak("two", hiIN)

	if f.cancels != 1 {
		t.Errorf("cancels = %d, want 1", f.cancels)
	}
	if first == "" || first == second {
		t.Errorf("utterance ids %q and %q should be distinct and non-empty", first, second)
	}
	u := f.spoken[1]
	if u.Rate != DefaultRate || u.Volume != DefaultVolume || u.Voice.ID != "hi" {
		t.Errorf("utterance = %+v", u)
	}
}

func TestOutputController_ResolveVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		target types.LanguageTag
		wantID string
		wantLg types.LanguageTag
	}{
		{"exact match", []Voice{{ID: "hi", Language: hiIN}, {ID: "en", Language: enUS}}, hiIN, "hi", hiIN},
		{"fallback voice", []Voice{{ID: "en", Language: enUS}}, swKE, "en", enUS},
		{"region must match", []Voice{{ID: "en", Language: enUS}}, types.LanguageTag{Code: "hi"}, "en", enUS},
		{"default voice", nil, swKE, "default", enUS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOutputController(&fakeSynth{voices: tt.voices}, OutputConfig{})
			v := c.ResolveVoice(tt.target)
			if v.ID != tt.wantID || v.Language != tt.wantLg {
				t.Errorf("ResolveVoice(%v) = %+v, want id %q lang %v", tt.target, v, tt.wantID, tt.wantLg)
			}
		})
	}
}

func TestConsoleSynthesizer_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSynthesizer(&buf, nil, time.Millisecond)

	v, ok := s.ResolveVoice(hiIN)
	if !ok {
		t.Fatal("hi-IN voice missing from default catalog")
	}
	if err := s.Speak(Utterance{ID: "u1", Text: "namaste", Voice: v}); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := (<-s.Events()); got != (Event{Type: EventStarted, UtteranceID: "u1"}) {
		t.Errorf("first event = %+v", got)
	}
	if got := (<-s.Events()); got != (Event{Type: EventFinished, UtteranceID: "u1"}) {
		t.Errorf("second event = %+v", got)
	}
	if s.IsSpeaking() {
		t.Error("still speaking after finish")
	}
	if want := "[Hindi (India)] namaste\n"; buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestConsoleSynthesizer_Cancel(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSynthesizer(&buf, nil, time.Hour)

	_ = s.Speak(Utterance{ID: "u1", Text: "a long sentence"})
	if !s.IsSpeaking() {
		t.Fatal("not speaking after Speak")
	}
	_ = s.Speak(Utterance{ID: "u2", Text: "next"})
	s.Cancel()
	s.Cancel()

	want := []Event{
		{Type: EventStarted, UtteranceID: "u1"},
		{Type: EventCancelled, UtteranceID: "u1"},
		{Type: EventStarted, UtteranceID: "u2"},
		{Type: EventCancelled, UtteranceID: "u2"},
	}
	for i, w := range want {
		if got := <-s.Events(); got != w {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
	if s.IsSpeaking() {
		t.Error("speaking after Cancel")
	}
}
