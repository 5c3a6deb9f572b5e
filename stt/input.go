package stt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/transpeak/internal/types"
)

// InputController starts and stops a Recognizer and forwards every
// transcript, partial or final, to a callback.
type InputController struct {
	rec          Recognizer
	onTranscript func(Transcript)

	mu         sync.Mutex
	recording  bool
	starting   bool
	transcript string
	done       chan struct{}
}

// NewInputController creates a controller. onTranscript is called from the
// forwarding goroutine and must not block for long.
func NewInputController(rec Recognizer, onTranscript func(Transcript)) *InputController {
	return &InputController{rec: rec, onTranscript: onTranscript}
}

// Start begins recording in lang. It is a no-op if already recording or
// starting. A fresh recording clears the displayed transcript.
func (c *InputController) Start(ctx context.Context, lang types.LanguageTag) error {
	c.mu.Lock()
	if c.recording || c.starting {
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if err := c.rec.Authorize(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	stream, err := c.rec.StartStream(ctx, lang)
	if err != nil {
		return fmt.Errorf("start recognition: %w", err)
	}

	done := make(chan struct{})

	c.mu.Lock()
	c.recording = true
	c.transcript = ""
	c.done = done
	c.mu.Unlock()

	go c.forward(stream, done)

	slog.Info("recording started", "language", lang.String())
	return nil
}

func (c *InputController) forward(stream <-chan Transcript, done chan struct{}) {
	defer close(done)

	for t := range stream {
		c.mu.Lock()
		c.transcript = t.Text
		c.mu.Unlock()

		if c.onTranscript != nil {
			c.onTranscript(t)
		}
	}

	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()
}

// Stop halts recording and waits until the final transcript has been
// forwarded. It is a no-op when not recording.
func (c *InputController) Stop() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.recording = false
	done := c.done
	c.mu.Unlock()

	err := c.rec.Stop()
	if err != nil {
		slog.Error("stop recognizer", "error", err)
	}
	<-done

	slog.Info("recording stopped")
	return err
}

// IsRecording reports whether a recording is in progress.
func (c *InputController) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Transcript returns the latest transcript of the current or last recording.
func (c *InputController) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}
