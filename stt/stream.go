package stt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/internal/types"
)

const (
	// DefaultInterval is how often buffered audio is re-transcribed.
	DefaultInterval = time.Second
	// DefaultEnergyThreshold is the RMS level below which audio counts as silence.
	DefaultEnergyThreshold = 0.01

	finalTimeout = 30 * time.Second
)

// StreamOptions configures a StreamRecognizer.
type StreamOptions struct {
	Interval        time.Duration
	EnergyThreshold float32
	// EndSilence is the pause after which the recognizer transcribes
	// without waiting for the next interval.
	EndSilence time.Duration
	// Permission asks the user for microphone access. Nil means granted.
	Permission func(ctx context.Context) error
}

// StreamRecognizer turns a batch Provider into a streaming Recognizer.
// Captured audio accumulates for the whole recording and is re-transcribed
// on every interval and at every pause, so each partial covers everything
// said so far. Nothing is sent to the provider until the VAD hears speech.
type StreamRecognizer struct {
	capturer audiocapture.Capturer
	provider Provider
	opts     StreamOptions
	wake     chan struct{}

	mu      sync.Mutex
	samples []float32
	vad     *VAD
	dirty   bool
	stop    chan struct{}
}

// NewStreamRecognizer creates a recognizer reading from c and transcribing with p.
func NewStreamRecognizer(c audiocapture.Capturer, p Provider, opts StreamOptions) *StreamRecognizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.EnergyThreshold <= 0 {
		opts.EnergyThreshold = DefaultEnergyThreshold
	}
	if opts.EndSilence <= 0 {
		opts.EndSilence = DefaultEndSilence
	}
	return &StreamRecognizer{
		capturer: c,
		provider: p,
		opts:     opts,
		wake:     make(chan struct{}, 1),
		vad:      NewVAD(opts.EnergyThreshold, opts.EndSilence),
	}
}

// Authorize asks for microphone permission.
func (r *StreamRecognizer) Authorize(ctx context.Context) error {
	if r.opts.Permission == nil {
		return nil
	}
	return r.opts.Permission(ctx)
}

// StartStream starts capture and returns the transcript channel.
func (r *StreamRecognizer) StartStream(ctx context.Context, lang types.LanguageTag) (<-chan Transcript, error) {
	if !r.provider.IsReady() {
		return nil, fmt.Errorf("speech provider %s is not ready", r.provider.Name())
	}

	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return nil, audiocapture.ErrRunning
	}
	r.samples = r.samples[:0]
	r.vad.Reset()
	r.dirty = false
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	if err := r.capturer.Start(r.onAudio); err != nil {
		r.mu.Lock()
		r.stop = nil
		r.mu.Unlock()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	out := make(chan Transcript, 8)
	go r.run(ctx, lang.Code, stop, out)
	return out, nil
}

// Stop ends capture. The final transcript follows on the stream channel.
func (r *StreamRecognizer) Stop() error {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	return r.capturer.Stop()
}

func (r *StreamRecognizer) onAudio(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, samples...)
	r.dirty = true
	if r.vad.Process(samples, r.capturer.SampleRate()) == VADSpeechEnd {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// snapshot returns a copy of the buffer if there is new speech to transcribe.
func (r *StreamRecognizer) snapshot(force bool) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.vad.Heard() || (!r.dirty && !force) {
		return nil
	}
	r.dirty = false
	return append([]float32(nil), r.samples...)
}

func (r *StreamRecognizer) run(ctx context.Context, lang string, stop <-chan struct{}, out chan<- Transcript) {
	defer close(out)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ticker.C:
		case <-r.wake:
		case <-stop:
			out <- Transcript{Text: r.final(ctx, lang, last), IsFinal: true}
			return
		}

		audio := r.snapshot(false)
		if audio == nil {
			continue
		}
		text, err := r.transcribe(ctx, audio, lang)
		if err != nil {
			slog.Warn("partial transcription failed", "error", err)
			continue
		}
		if text != last {
			last = text
			out <- Transcript{Text: text}
		}
	}
}

// final transcribes the whole recording once more. It falls back to the
// last partial when that fails.
func (r *StreamRecognizer) final(ctx context.Context, lang, last string) string {
	audio := r.snapshot(true)
	if audio == nil {
		return last
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalTimeout)
	defer cancel()

	text, err := r.transcribe(ctx, audio, lang)
	if err != nil {
		slog.Warn("final transcription failed, keeping last partial", "error", err)
		return last
	}
	return text
}

func (r *StreamRecognizer) transcribe(ctx context.Context, audio []float32, lang string) (string, error) {
	res, err := r.provider.Transcribe(ctx, audio, r.capturer.SampleRate(), lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}
