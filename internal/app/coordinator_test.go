package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/session"
	"go.aimuz.me/transpeak/stt"
	"go.aimuz.me/transpeak/translator"
	"go.aimuz.me/transpeak/tts"
)

var (
	enUS = types.LanguageTag{Code: "en", Region: "US"}
	hiIN = types.LanguageTag{Code: "hi", Region: "IN"}
	esES = types.LanguageTag{Code: "es", Region: "ES"}
)

// fakeProvider prefixes text with the target language. Texts listed in
// block wait until their channel is closed.
type fakeProvider struct {
	mu    sync.Mutex
	calls []types.TranslateRequest
	fail  error
	block map[string]chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) SupportedLanguages(context.Context) ([]types.LanguageTag, error) {
	return []types.LanguageTag{{Code: "fr"}, {Code: "de"}, {Code: "fr"}, {Code: "ar"}}, nil
}

func (p *fakeProvider) Translate(_ context.Context, req types.TranslateRequest) (types.TranslateResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	ch := p.block[req.Text]
	fail := p.fail
	p.mu.Unlock()

	if ch != nil {
		<-ch
	}
	if fail != nil {
		return types.TranslateResult{}, fail
	}
	return types.TranslateResult{Text: "[" + req.TargetLang + "] " + req.Text}, nil
}

func (p *fakeProvider) requests() []types.TranslateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.TranslateRequest(nil), p.calls...)
}

// fakeSynth has a voice for every language and records what it speaks.
type fakeSynth struct {
	mu       sync.Mutex
	spoken   []tts.Utterance
	speaking bool
	cancels  int
	events   chan tts.Event
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{events: make(chan tts.Event, 16)}
}

func (s *fakeSynth) ResolveVoice(tag types.LanguageTag) (tts.Voice, bool) {
	return tts.Voice{ID: tag.String(), Language: tag}, true
}

func (s *fakeSynth) Speak(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, u)
	s.speaking = true
	s.events <- tts.Event{Type: tts.EventStarted, UtteranceID: u.ID}
	return nil
}

func (s *fakeSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	s.speaking = false
}

func (s *fakeSynth) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *fakeSynth) Events() <-chan tts.Event { return s.events }

func (s *fakeSynth) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	for i, u := range s.spoken {
		out[i] = u.Text
	}
	return out
}

// failingDevice rejects one mode.
type failingDevice struct {
	audiocapture.LogDevice
	reject audiocapture.Mode
}

func (d *failingDevice) ConfigureFor(mode audiocapture.Mode) error {
	if mode == d.reject {
		return errors.New("device busy")
	}
	return d.LogDevice.ConfigureFor(mode)
}

type harness struct {
	c      *Coordinator
	prov   *fakeProvider
	synth  *fakeSynth
	rec    *stt.ManualRecognizer
	device audiocapture.Device
}

func newHarness(t *testing.T, cfg Config, mod func(*Deps)) *harness {
	t.Helper()

	h := &harness{
		prov:   &fakeProvider{},
		synth:  newFakeSynth(),
		rec:    stt.NewManualRecognizer(),
		device: &audiocapture.LogDevice{},
	}
	deps := Deps{
		Provider:    h.prov,
		Recognizer:  h.rec,
		Synthesizer: h.synth,
		Device:      h.device,
	}
	if mod != nil {
		mod(&deps)
	}
	if cfg.Pair == (types.LanguagePair{}) {
		cfg.Pair = types.LanguagePair{Source: enUS, Target: hiIN}
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 20 * time.Millisecond
	}

	c, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	h.c = c
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	if err == nil {
		t.Fatal("New with no deps succeeded")
	}
}

func TestTypingTranslatesOnce(t *testing.T) {
	h := newHarness(t, Config{DebounceDelay: 100 * time.Millisecond}, nil)

	for _, s := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		h.c.HandleTextChange(s)
	}
	if st := h.c.Snapshot(); st.Phase != Idle || st.PendingText != "Hello" {
		t.Fatalf("after typing: phase=%v pending=%q", st.Phase, st.PendingText)
	}

	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })

	reqs := h.prov.requests()
	if len(reqs) != 1 || reqs[0].Text != "Hello" || reqs[0].TargetLang != "hi-IN" {
		t.Fatalf("requests = %+v, want one for %q", reqs, "Hello")
	}
	if got := h.synth.texts()[0]; got != "[hi-IN] Hello" {
		t.Errorf("spoken = %q", got)
	}

	st := h.c.Snapshot()
	if st.Phase != Speaking || st.TranslatedText != "[hi-IN] Hello" {
		t.Errorf("state = %+v", st)
	}
	if st.AudioMode != audiocapture.ModePlayback {
		t.Errorf("audio mode = %v, want playback", st.AudioMode)
	}
	if st.SessionState != session.Active || st.SessionID == "" {
		t.Errorf("session = %q %v", st.SessionID, st.SessionState)
	}
}

func TestUnchangedTextIsIgnored(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	h.c.HandleTextChange("Hello")
	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })

	h.c.HandleTextChange("Hello")
	time.Sleep(60 * time.Millisecond)
	if n := len(h.prov.requests()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestRecordingTranslatesFinalTranscript(t *testing.T) {
	h := newHarness(t, Config{DebounceDelay: 300 * time.Millisecond}, nil)

	h.c.ToggleRecord()
	waitFor(t, "recording", func() bool {
		st := h.c.Snapshot()
		return st.Recording && !st.StartingRecording
	})
	if st := h.c.Snapshot(); st.AudioMode != audiocapture.ModeRecording {
		t.Errorf("audio mode = %v, want recording", st.AudioMode)
	}

	h.rec.Feed("Good")
	h.rec.Feed("Good morning")
	waitFor(t, "partials", func() bool { return h.c.Snapshot().PendingText == "Good morning" })

	h.c.ToggleRecord()
	st := h.c.Snapshot()
	if st.Recording {
		t.Error("still recording after toggle")
	}
	if st.AudioMode != audiocapture.ModePlayback {
		t.Errorf("audio mode = %v, want playback", st.AudioMode)
	}

	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })
	reqs := h.prov.requests()
	if len(reqs) != 1 || reqs[0].Text != "Good morning" {
		t.Fatalf("requests = %+v, want one for %q", reqs, "Good morning")
	}
	if got := h.c.Snapshot().TranslatedText; got != "[hi-IN] Good morning" {
		t.Errorf("translated = %q", got)
	}
}

func TestRecordingPermissionDenied(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.rec.Deny = true

	h.c.ToggleRecord()
	waitFor(t, "start to settle", func() bool { return !h.c.Snapshot().StartingRecording })

	st := h.c.Snapshot()
	if st.Recording {
		t.Error("recording despite denied permission")
	}
	if st.AudioMode != audiocapture.ModePlayback {
		t.Errorf("audio mode = %v, want playback", st.AudioMode)
	}
}

func TestRecordingConfigFailure(t *testing.T) {
	dev := &failingDevice{reject: audiocapture.ModeRecording}
	h := newHarness(t, Config{}, func(d *Deps) { d.Device = dev })

	h.c.ToggleRecord()
	st := h.c.Snapshot()
	if st.Recording || st.StartingRecording {
		t.Errorf("state = %+v, want not recording", st)
	}
}

func TestTranslateFailureClearsResult(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	h.c.HandleTextChange("Hello")
	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })

	h.prov.mu.Lock()
	h.prov.fail = errors.New("quota exceeded")
	h.prov.mu.Unlock()

	h.c.HandleTextChange("Goodbye")
	waitFor(t, "failed request", func() bool { return len(h.prov.requests()) == 2 })
	waitFor(t, "idle", func() bool {
		st := h.c.Snapshot()
		return st.Phase == Idle && st.TranslatedText == ""
	})

	if n := len(h.synth.texts()); n != 1 {
		t.Errorf("spoken %d utterances, want 1", n)
	}
}

func TestPlaybackConfigFailureSkipsSpeech(t *testing.T) {
	dev := &failingDevice{reject: audiocapture.ModePlayback}
	h := newHarness(t, Config{}, func(d *Deps) { d.Device = dev })

	h.c.HandleTextChange("Hello")
	waitFor(t, "translation", func() bool { return h.c.Snapshot().TranslatedText != "" })

	if st := h.c.Snapshot(); st.Phase != Idle {
		t.Errorf("phase = %v, want idle", st.Phase)
	}
	if n := len(h.synth.texts()); n != 0 {
		t.Errorf("spoken %d utterances, want 0", n)
	}
}

func TestStaleCompletionAfterLanguageChange(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	release := make(chan struct{})
	h.prov.block = map[string]chan struct{}{"Hello": release}

	h.c.HandleTextChange("Hello")
	waitFor(t, "request", func() bool { return len(h.prov.requests()) == 1 })
	if st := h.c.Snapshot(); st.Phase != AwaitingTranslation {
		t.Fatalf("phase = %v, want awaiting", st.Phase)
	}
	oldID := h.c.Snapshot().SessionID

	h.c.SetTargetLanguage(esES)
	close(release)

	st := h.c.Snapshot()
	if st.SessionID == oldID || st.Pair.Target != esES || st.Phase != Idle {
		t.Fatalf("state after language change = %+v", st)
	}

	time.Sleep(60 * time.Millisecond)
	if n := len(h.synth.texts()); n != 0 {
		t.Errorf("stale translation spoken: %v", h.synth.texts())
	}
	if got := h.c.Snapshot().TranslatedText; got != "" {
		t.Errorf("stale translation applied: %q", got)
	}
}

func TestNewerFireSupersedesInflight(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	release := make(chan struct{})
	h.prov.block = map[string]chan struct{}{"one": release}

	h.c.HandleTextChange("one")
	waitFor(t, "first request", func() bool { return len(h.prov.requests()) == 1 })

	h.c.HandleTextChange("two")
	waitFor(t, "second translation", func() bool { return h.c.Snapshot().TranslatedText == "[hi-IN] two" })

	close(release)
	time.Sleep(60 * time.Millisecond)

	if got := h.c.Snapshot().TranslatedText; got != "[hi-IN] two" {
		t.Errorf("translated = %q, want newest", got)
	}
	if got := h.synth.texts(); len(got) != 1 || got[0] != "[hi-IN] two" {
		t.Errorf("spoken = %v", got)
	}
}

func TestLanguageChangeResetsState(t *testing.T) {
	h := newHarness(t, Config{DebounceDelay: 200 * time.Millisecond, RetranslateOnLanguageChange: true}, nil)

	h.c.HandleTextChange("Hello")
	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })

	h.c.ToggleRecord()
	waitFor(t, "recording", func() bool {
		st := h.c.Snapshot()
		return st.Recording && !st.StartingRecording
	})
	h.rec.Feed("Thank you")
	waitFor(t, "partial", func() bool { return h.c.Snapshot().PendingText == "Thank you" })

	h.c.SetSourceLanguage(esES)
	st := h.c.Snapshot()
	if st.Recording || st.Speaking || st.Phase != Idle || st.TranslatedText != "" {
		t.Fatalf("state after language change = %+v", st)
	}
	if st.Pair.Source != esES {
		t.Errorf("source = %v", st.Pair.Source)
	}

	// Pending text is translated again with the new pair.
	waitFor(t, "retranslation", func() bool { return h.c.Snapshot().TranslatedText == "[hi-IN] Thank you" })
	reqs := h.prov.requests()
	if last := reqs[len(reqs)-1]; last.SourceLang != "es-ES" {
		t.Errorf("last request = %+v, want es-ES source", last)
	}
}

func TestSameLanguageIsNoop(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	h.c.HandleTextChange("Hello")
	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })
	before := h.c.Snapshot()

	h.c.SetTargetLanguage(hiIN)
	after := h.c.Snapshot()
	if after.SessionID != before.SessionID || after.TranslatedText != before.TranslatedText {
		t.Errorf("unchanged target reset state: before=%+v after=%+v", before, after)
	}
}

func TestNoTwoActiveSessions(t *testing.T) {
	var (
		mu       sync.Mutex
		sessions []*session.Session
		overlap  bool
	)
	factory := func(pair types.LanguagePair, p translator.Provider) *session.Session {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		for _, s := range sessions {
			if s.Active() {
				overlap = true
			}
		}
		s := session.New(pair, p)
		sessions = append(sessions, s)
		return s
	}
	h := newHarness(t, Config{}, func(d *Deps) { d.NewSession = factory })

	h.c.HandleTextChange("Hello")
	for _, tag := range []types.LanguageTag{esES, hiIN, esES} {
		h.c.SetTargetLanguage(tag)
	}
	h.c.SetSourceLanguage(hiIN)

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("a session was created while another was still active")
	}
	active := 0
	for _, s := range sessions {
		if s.Active() {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active sessions = %d, want 1", active)
	}
}

func TestSpeakAgain(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	h.c.SpeakAgain()
	if n := len(h.synth.texts()); n != 0 {
		t.Fatalf("replayed with no translation: %d", n)
	}

	h.c.HandleTextChange("Hello")
	waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })

	h.c.SpeakAgain()
	if got := h.synth.texts(); len(got) != 2 || got[1] != "[hi-IN] Hello" {
		t.Errorf("spoken = %v", got)
	}
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ch, cancel := h.c.Subscribe()
	defer cancel()

	h.c.HandleTextChange("Hello")
	deadline := time.After(3 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.LastSpeechEvent != nil && st.LastSpeechEvent.Type == tts.EventStarted {
				return
			}
		case <-deadline:
			t.Fatal("no speech event published")
		}
	}
}

func TestSupportedLanguagesSorted(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	langs, err := h.c.SupportedLanguages(context.Background())
	if err != nil {
		t.Fatalf("SupportedLanguages: %v", err)
	}
	want := []string{"ar", "fr", "de"}
	if len(langs) != len(want) {
		t.Fatalf("langs = %v, want %v", langs, want)
	}
	for i, w := range want {
		if langs[i].Code != w {
			t.Errorf("langs[%d] = %v, want %s", i, langs[i], w)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	h := newHarness(t, Config{DefaultTargets: map[string]string{"de": "fr"}}, nil)

	tests := []struct {
		text       string
		wantCode   string
		wantTarget string
	}{
		{"Guten Morgen, wie geht es Ihnen heute?", "de", "fr"},
		{"Good morning, how are you doing today?", "en", "hi"},
		{"", "auto", "hi"},
	}
	for _, tt := range tests {
		got := h.c.DetectLanguage(tt.text)
		if got.Code != tt.wantCode || got.DefaultTarget != tt.wantTarget {
			t.Errorf("DetectLanguage(%q) = %+v, want %s -> %s", tt.text, got, tt.wantCode, tt.wantTarget)
		}
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	h.c.ToggleRecord()
	waitFor(t, "recording", func() bool {
		st := h.c.Snapshot()
		return st.Recording && !st.StartingRecording
	})
	ch, _ := h.c.Subscribe()

	if err := h.c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	st := h.c.Snapshot()
	if st.Recording || st.SessionState == session.Active {
		t.Errorf("state after Close = %+v", st)
	}
	for range ch {
	}

	// Calls after Close return without effect.
	h.c.HandleTextChange("late")
	h.c.ToggleRecord()
	if n := len(h.prov.requests()); n != 0 {
		t.Errorf("requests after Close = %d", n)
	}
}

// gatedRecognizer holds Authorize until allow is closed.
type gatedRecognizer struct {
	*stt.ManualRecognizer
	allow chan struct{}
}

func (r *gatedRecognizer) Authorize(ctx context.Context) error {
	select {
	case <-r.allow:
		return r.ManualRecognizer.Authorize(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newPendingStartHarness types "Hello", then toggles recording while
// permission is held, and waits until the debounce fire sends "Hello" to the
// provider, which blocks until release is closed.
func newPendingStartHarness(t *testing.T) (h *harness, allow, release chan struct{}) {
	t.Helper()

	allow, release = make(chan struct{}), make(chan struct{})
	h = newHarness(t, Config{DebounceDelay: 150 * time.Millisecond}, func(d *Deps) {
		d.Recognizer = &gatedRecognizer{ManualRecognizer: stt.NewManualRecognizer(), allow: allow}
	})
	h.prov.mu.Lock()
	h.prov.block = map[string]chan struct{}{"Hello": release}
	h.prov.mu.Unlock()

	h.c.HandleTextChange("Hello")
	h.c.ToggleRecord()
	if st := h.c.Snapshot(); !st.StartingRecording || st.AudioMode != audiocapture.ModeRecording {
		t.Fatalf("after toggle: %+v", st)
	}
	waitFor(t, "translate request", func() bool { return len(h.prov.requests()) == 1 })
	return h, allow, release
}

func TestFireDuringPendingStart(t *testing.T) {
	t.Run("permission granted before translation", func(t *testing.T) {
		h, allow, release := newPendingStartHarness(t)

		close(allow)
		waitFor(t, "start resolved", func() bool { return !h.c.Snapshot().StartingRecording })
		if st := h.c.Snapshot(); st.Recording || st.AudioMode != audiocapture.ModePlayback {
			t.Fatalf("cancelled start left recording=%v mode=%v", st.Recording, st.AudioMode)
		}

		close(release)
		waitFor(t, "speech", func() bool { return len(h.synth.texts()) == 1 })
		if st := h.c.Snapshot(); st.Recording || st.AudioMode != audiocapture.ModePlayback {
			t.Errorf("after speech: recording=%v mode=%v", st.Recording, st.AudioMode)
		}
	})

	t.Run("translation before permission", func(t *testing.T) {
		h, allow, release := newPendingStartHarness(t)

		close(release)
		waitFor(t, "translation", func() bool { return h.c.Snapshot().TranslatedText == "[hi-IN] Hello" })
		if st := h.c.Snapshot(); st.AudioMode != audiocapture.ModeRecording || st.Phase == Speaking {
			t.Errorf("played while start pending: mode=%v phase=%v", st.AudioMode, st.Phase)
		}
		if got := h.synth.texts(); len(got) != 0 {
			t.Errorf("spoke %q while start pending", got)
		}

		close(allow)
		waitFor(t, "start resolved", func() bool { return !h.c.Snapshot().StartingRecording })
		if st := h.c.Snapshot(); st.Recording || st.AudioMode != audiocapture.ModePlayback {
			t.Errorf("cancelled start left recording=%v mode=%v", st.Recording, st.AudioMode)
		}
	})
}

func TestEarlyTranscriptAppliedAfterStart(t *testing.T) {
	tests := []struct {
		name        string
		stale       bool
		wantPending string
	}{
		{"confirmed start", false, "early words"},
		{"cancelled start", true, "typed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{DebounceDelay: time.Hour}, nil)
			h.c.HandleTextChange("typed")

			h.c.do(func() {
				h.c.starting = true
				gen := h.c.recGen
				h.c.onTranscript(stt.Transcript{Text: "early words"})
				if tt.stale {
					h.c.recGen++
				}
				h.c.onRecordStarted(gen, nil)
			})

			if got := h.c.Snapshot().PendingText; got != tt.wantPending {
				t.Errorf("pending = %q, want %q", got, tt.wantPending)
			}
		})
	}
}
