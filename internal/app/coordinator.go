// Package app coordinates live translation: text and speech input are
// debounced, translated through a session and spoken in the target language.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/debounce"
	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/langdetect"
	"go.aimuz.me/transpeak/session"
	"go.aimuz.me/transpeak/stt"
	"go.aimuz.me/transpeak/translator"
	"go.aimuz.me/transpeak/tts"
)

// Config holds coordinator settings.
type Config struct {
	Pair          types.LanguagePair
	DebounceDelay time.Duration
	// RetranslateOnLanguageChange re-submits pending text after the pair changes.
	RetranslateOnLanguageChange bool
	// DefaultTargets maps a detected language code to a target code.
	DefaultTargets map[string]string
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Provider    translator.Provider
	Recognizer  stt.Recognizer
	Synthesizer tts.Synthesizer
	Device      audiocapture.Device
	// NewSession defaults to session.New.
	NewSession session.Factory
	Output     tts.OutputConfig
}

// Coordinator is a single actor: every state change runs on one loop
// goroutine. Public methods post to the loop and wait for the change to be
// applied. Provider calls run on their own goroutines and post their
// completion back.
type Coordinator struct {
	cfg        Config
	provider   translator.Provider
	newSession session.Factory
	input      *stt.InputController
	output     *tts.OutputController
	audio      *AudioAdapter
	gate       *debounce.Gate

	mbox     *mailbox
	subs     subscribers
	last     atomic.Pointer[State]
	loopDone chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Owned by the loop.
	pair        types.LanguagePair
	sess        *session.Session
	pending     string
	translated  string
	phase       Phase
	gen         uint64
	inflight    context.CancelFunc
	starting    bool
	recGen      uint64
	listening   bool
	early       *stt.Transcript
	closing     bool
	speechEvent *tts.Event
}

// New creates a coordinator and starts its loop. The first session is
// created lazily on the first translation.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	switch {
	case deps.Provider == nil:
		return nil, fmt.Errorf("translation provider required")
	case deps.Recognizer == nil:
		return nil, fmt.Errorf("speech recognizer required")
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("speech synthesizer required")
	case deps.Device == nil:
		return nil, fmt.Errorf("audio device required")
	}
	if cfg.Pair.Source.IsZero() || cfg.Pair.Target.IsZero() {
		cfg.Pair = types.DefaultLanguagePair
	}
	if deps.NewSession == nil {
		deps.NewSession = session.New
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:        cfg,
		provider:   deps.Provider,
		newSession: deps.NewSession,
		output:     tts.NewOutputController(deps.Synthesizer, deps.Output),
		audio:      &AudioAdapter{device: deps.Device},
		mbox:       newMailbox(),
		loopDone:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		pair:       cfg.Pair,
	}
	c.input = stt.NewInputController(deps.Recognizer, func(t stt.Transcript) {
		c.mbox.post(func() { c.onTranscript(t) })
	})
	c.gate = debounce.New(cfg.DebounceDelay, func(text string) {
		c.mbox.post(func() { c.onGateFire(text) })
	})

	go c.loop()
	go c.watchSpeech()

	c.do(c.publish)
	slog.Info("coordinator started", "pair", c.pair.String(), "debounce", c.gate.Delay())
	return c, nil
}

func (c *Coordinator) loop() {
	defer close(c.loopDone)
	for {
		fn, ok := c.mbox.next()
		if !ok {
			return
		}
		fn()
	}
}

// do runs fn on the loop and waits for it. It reports false after Close.
func (c *Coordinator) do(fn func()) bool {
	done := make(chan struct{})
	if !c.mbox.post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

func (c *Coordinator) watchSpeech() {
	events := c.output.Events()
	for {
		select {
		case <-c.ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.mbox.post(func() { c.onSpeechEvent(e) })
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Public API
// ─────────────────────────────────────────────────────────────────────────────

// HandleTextChange records a text edit and restarts the debounce period.
// Text equal to the current pending text is not a change.
func (c *Coordinator) HandleTextChange(text string) {
	c.do(func() { c.handleTextChange(text) })
}

// SetSourceLanguage changes the source language.
func (c *Coordinator) SetSourceLanguage(tag types.LanguageTag) {
	c.do(func() { c.setPair(c.pair.WithSource(tag)) })
}

// SetTargetLanguage changes the target language.
func (c *Coordinator) SetTargetLanguage(tag types.LanguageTag) {
	c.do(func() { c.setPair(c.pair.WithTarget(tag)) })
}

// SetLanguagePair changes both languages at once.
func (c *Coordinator) SetLanguagePair(pair types.LanguagePair) {
	c.do(func() { c.setPair(pair) })
}

// ToggleRecord starts recording when idle and stops it when recording.
// Starting completes asynchronously because it may wait for permission.
func (c *Coordinator) ToggleRecord() {
	c.do(c.toggleRecord)
}

// SpeakAgain replays the current translation.
func (c *Coordinator) SpeakAgain() {
	c.do(c.speakAgain)
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	var st State
	if c.do(func() { st = c.state() }) {
		return st
	}
	if p := c.last.Load(); p != nil {
		return *p
	}
	return State{}
}

// Subscribe returns a channel carrying the newest state after each change.
// Call cancel to unsubscribe. The channel is closed on Close.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	ch, cancel := c.subs.subscribe()
	if p := c.last.Load(); p != nil {
		c.subs.publish(*p)
	}
	return ch, cancel
}

// SupportedLanguages returns the provider's languages sorted by name.
func (c *Coordinator) SupportedLanguages(ctx context.Context) ([]types.LanguageTag, error) {
	langs, err := c.provider.SupportedLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return translator.SortLanguages(langs), nil
}

// DetectLanguage detects the language of text and suggests a target.
func (c *Coordinator) DetectLanguage(text string) types.DetectResult {
	code, name := langdetect.Detect(text)

	var pair types.LanguagePair
	c.do(func() { pair = c.pair })
	if pair.Target.IsZero() {
		pair = c.cfg.Pair
	}

	target := pair.Target.Code
	if t, ok := c.cfg.DefaultTargets[code]; ok && code != langdetect.Auto {
		target = t
	} else if code == pair.Target.Code {
		target = pair.Source.Code
	}

	return types.DetectResult{Code: code, Name: name, DefaultTarget: target}
}

// Close stops all activity and the loop. It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.gate.Stop()
		c.do(c.shutdown)
		c.cancel()
		c.mbox.close()
		<-c.loopDone
		c.subs.close()
		slog.Info("coordinator closed")
	})
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Loop handlers
// ─────────────────────────────────────────────────────────────────────────────

func (c *Coordinator) handleTextChange(text string) {
	if c.closing || text == c.pending {
		return
	}
	c.pending = text
	c.gate.Push(text)
	c.publish()
}

// onTranscript applies a transcript from the current recording. Transcripts
// that arrive before the start is confirmed are held until onRecordStarted;
// those from a cancelled start are dropped.
func (c *Coordinator) onTranscript(t stt.Transcript) {
	switch {
	case c.listening:
		slog.Debug("transcript", "final", t.IsFinal, "chars", len(t.Text))
		c.handleTextChange(t.Text)
	case c.starting:
		c.early = &t
	default:
		slog.Debug("drop transcript from cancelled recording", "final", t.IsFinal)
	}
}

func (c *Coordinator) onGateFire(text string) {
	// Pending was cleared or replaced after this value was pushed.
	if c.closing || text != c.pending {
		return
	}

	c.stopRecording()
	c.cancelStart()
	c.cancelInflight()
	c.gen++

	if strings.TrimSpace(text) == "" {
		c.translated = ""
		c.phase = Idle
		c.publish()
		return
	}

	if c.sess == nil {
		c.sess = c.newSession(c.pair, c.provider)
		slog.Debug("session created", "session", c.sess.ID(), "pair", c.pair.String())
	}

	c.phase = AwaitingTranslation
	gen, sess := c.gen, c.sess
	ctx, cancel := context.WithCancel(c.ctx)
	c.inflight = cancel

	go func() {
		res, err := sess.Translate(ctx, text)
		c.mbox.post(func() { c.onTranslated(gen, sess, res, err) })
	}()

	c.publish()
}

func (c *Coordinator) onTranslated(gen uint64, sess *session.Session, res types.TranslateResult, err error) {
	if c.closing || sess != c.sess || !sess.Active() || gen != c.gen {
		slog.Debug("drop stale translation", "session", sess.ID(), "generation", gen)
		return
	}
	c.cancelInflight()

	if err != nil {
		slog.Error("translate", "error", err)
		c.translated = ""
		c.phase = Idle
		c.publish()
		return
	}

	c.translated = res.Text
	slog.Info("translated",
		"pair", sess.Pair().String(),
		"chars", len(res.Text),
		"tokens", res.Usage.TotalTokens,
		"cached", res.Usage.CacheHit,
	)
	c.phase = Idle
	c.speak(res.Text)
	c.publish()
}

// speak configures playback and speaks text. It sets the phase to Speaking
// only when an utterance actually started.
func (c *Coordinator) speak(text string) {
	if c.starting || c.input.IsRecording() {
		slog.Debug("skip speech while recording")
		return
	}
	if err := c.audio.Configure(audiocapture.ModePlayback); err != nil {
		slog.Error("prepare playback", "error", err)
		return
	}
	id, err := c.output.Speak(text, c.pair.Target)
	if err != nil {
		slog.Error("speak", "error", err)
		return
	}
	if id != "" {
		c.phase = Speaking
	}
}

func (c *Coordinator) setPair(pair types.LanguagePair) {
	if c.closing || pair == c.pair {
		return
	}

	c.cancelInflight()
	c.gen++
	c.recGen++

	old := c.pair
	c.pair = pair
	if c.sess != nil {
		c.sess.Invalidate()
	}
	c.sess = c.newSession(pair, c.provider)

	c.translated = ""
	c.stopRecording()
	c.output.Stop()
	c.phase = Idle

	slog.Info("language pair changed", "from", old.String(), "to", pair.String(), "session", c.sess.ID())

	if c.cfg.RetranslateOnLanguageChange && strings.TrimSpace(c.pending) != "" {
		c.gate.Push(c.pending)
	}
	c.publish()
}

func (c *Coordinator) toggleRecord() {
	if c.closing {
		return
	}
	if c.starting {
		slog.Debug("ignore record toggle while recording starts")
		return
	}

	if c.input.IsRecording() {
		c.pending = ""
		c.translated = ""
		c.stopRecording()
		if err := c.audio.Configure(audiocapture.ModePlayback); err != nil {
			slog.Error("prepare playback", "error", err)
		}
		c.publish()
		return
	}

	c.output.Stop()
	c.cancelInflight()
	c.gen++
	c.phase = Idle

	if err := c.audio.Configure(audiocapture.ModeRecording); err != nil {
		slog.Error("prepare recording", "error", err)
		c.publish()
		return
	}

	c.starting = true
	c.listening = false
	c.early = nil
	recGen, lang := c.recGen, c.pair.Source
	go func() {
		err := c.input.Start(c.ctx, lang)
		if !c.mbox.post(func() { c.onRecordStarted(recGen, err) }) && err == nil {
			_ = c.input.Stop()
		}
	}()
	c.publish()
}

func (c *Coordinator) onRecordStarted(recGen uint64, err error) {
	c.starting = false
	early := c.early
	c.early = nil

	if err != nil {
		if errors.Is(err, stt.ErrPermissionDenied) {
			slog.Warn("recording not permitted", "error", err)
		} else {
			slog.Error("start recording", "error", err)
		}
		if err := c.audio.Configure(audiocapture.ModePlayback); err != nil {
			slog.Error("prepare playback", "error", err)
		}
		c.publish()
		return
	}

	// The start was cancelled while permission was pending.
	if c.closing || recGen != c.recGen {
		c.stopRecording()
		if !c.closing {
			if err := c.audio.Configure(audiocapture.ModePlayback); err != nil {
				slog.Error("prepare playback", "error", err)
			}
		}
		c.publish()
		return
	}

	c.listening = true
	c.pending = ""
	c.translated = ""
	if early != nil {
		c.onTranscript(*early)
	}
	c.publish()
}

func (c *Coordinator) speakAgain() {
	if c.closing || c.translated == "" {
		return
	}
	if c.input.IsRecording() || c.starting {
		slog.Debug("ignore replay while recording")
		return
	}
	c.speak(c.translated)
	c.publish()
}

func (c *Coordinator) onSpeechEvent(e tts.Event) {
	slog.Debug("speech event", "type", e.Type, "utterance", e.UtteranceID)
	c.speechEvent = &e
	c.publish()
}

func (c *Coordinator) shutdown() {
	c.closing = true
	c.cancelInflight()
	c.gen++
	c.recGen++
	c.stopRecording()
	c.output.Stop()
	if c.sess != nil {
		c.sess.Invalidate()
	}
	c.phase = Idle
	c.publish()
}

// stopRecording stops input if it is running. The final transcript is
// posted to the mailbox and handled after the current transition.
func (c *Coordinator) stopRecording() {
	if !c.input.IsRecording() {
		return
	}
	if err := c.input.Stop(); err != nil {
		slog.Error("stop recording", "error", err)
	}
}

// cancelStart makes a recording start that is still waiting for permission
// stop as soon as it completes.
func (c *Coordinator) cancelStart() {
	if c.starting {
		slog.Debug("cancel pending recording start")
		c.recGen++
	}
}

func (c *Coordinator) cancelInflight() {
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

func (c *Coordinator) state() State {
	st := State{
		Pair:              c.pair,
		Phase:             c.phase,
		PendingText:       c.pending,
		TranslatedText:    c.translated,
		Recording:         c.input.IsRecording(),
		StartingRecording: c.starting,
		Speaking:          c.output.IsSpeaking(),
		AudioMode:         c.audio.Mode(),
		LastSpeechEvent:   c.speechEvent,
		UpdatedAt:         time.Now(),
	}
	if c.sess != nil {
		st.SessionID = c.sess.ID()
		st.SessionState = c.sess.State()
	}
	return st
}

func (c *Coordinator) publish() {
	st := c.state()
	c.last.Store(&st)
	c.subs.publish(st)
}
