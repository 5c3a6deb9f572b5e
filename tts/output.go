package tts

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"go.aimuz.me/transpeak/internal/types"
)

// OutputConfig holds utterance parameters.
type OutputConfig struct {
	FallbackVoice types.LanguageTag
	Rate          float64
	Volume        float64
}

// DefaultOutputConfig returns the default utterance parameters.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		FallbackVoice: FallbackLanguage,
		Rate:          DefaultRate,
		Volume:        DefaultVolume,
	}
}

// OutputController speaks one utterance at a time.
type OutputController struct {
	synth Synthesizer
	cfg   OutputConfig
}

// NewOutputController creates a controller. Zero fields of cfg take defaults.
func NewOutputController(synth Synthesizer, cfg OutputConfig) *OutputController {
	def := DefaultOutputConfig()
	if cfg.FallbackVoice.IsZero() {
		cfg.FallbackVoice = def.FallbackVoice
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Volume <= 0 {
		cfg.Volume = def.Volume
	}
	return &OutputController{synth: synth, cfg: cfg}
}

// Speak cancels any utterance in flight and speaks text in the target
// language. Empty text does nothing and returns an empty ID.
func (c *OutputController) Speak(text string, target types.LanguageTag) (string, error) {
	if strings.TrimSpace(text) == "" {
		slog.Debug("skip speaking empty text")
		return "", nil
	}

	if c.synth.IsSpeaking() {
		c.synth.Cancel()
	}

	u := Utterance{
		ID:     uuid.NewString(),
		Text:   text,
		Voice:  c.ResolveVoice(target),
		Rate:   c.cfg.Rate,
		Volume: c.cfg.Volume,
	}
	if err := c.synth.Speak(u); err != nil {
		return "", fmt.Errorf("speak utterance: %w", err)
	}

	slog.Debug("speaking", "utterance", u.ID, "voice", u.Voice.ID, "chars", len(text))
	return u.ID, nil
}

// ResolveVoice picks a voice for target, falling back to the configured
// fallback language and finally to a default voice tagged with it.
func (c *OutputController) ResolveVoice(target types.LanguageTag) Voice {
	if v, ok := c.synth.ResolveVoice(target); ok {
		return v
	}

	fb := c.cfg.FallbackVoice
	if v, ok := c.synth.ResolveVoice(fb); ok {
		slog.Warn("voice unavailable, using fallback",
			"language", target.String(), "fallback", fb.String(), "error", ErrVoiceNotFound)
		return v
	}

	slog.Warn("fallback voice unavailable, using default voice",
		"language", target.String(), "fallback", fb.String(), "error", ErrVoiceNotFound)
	return Voice{ID: "default", Name: "Default", Language: fb}
}

// Stop cancels the current utterance.
func (c *OutputController) Stop() {
	c.synth.Cancel()
}

// IsSpeaking reports whether an utterance is in progress.
func (c *OutputController) IsSpeaking() bool {
	return c.synth.IsSpeaking()
}

// Events delivers the synthesizer's lifecycle events.
func (c *OutputController) Events() <-chan Event {
	return c.synth.Events()
}
