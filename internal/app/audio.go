package app

import (
	"errors"
	"fmt"
	"log/slog"

	"go.aimuz.me/transpeak/audiocapture"
)

// AudioAdapter owns the audio device mode. Only the coordinator loop
// calls it, so it needs no locking.
type AudioAdapter struct {
	device audiocapture.Device
	mode   audiocapture.Mode
}

// Configure switches the device to mode. Failures wrap audiocapture.ErrConfig.
func (aa *AudioAdapter) Configure(mode audiocapture.Mode) error {
	if err := aa.device.ConfigureFor(mode); err != nil {
		if !errors.Is(err, audiocapture.ErrConfig) {
			err = fmt.Errorf("%w: %v", audiocapture.ErrConfig, err)
		}
		return fmt.Errorf("configure audio for %s: %w", mode, err)
	}

	if aa.mode != mode {
		slog.Debug("audio mode switched", "from", aa.mode, "to", mode)
	}
	aa.mode = mode
	return nil
}

// Mode returns the last successfully configured mode.
func (aa *AudioAdapter) Mode() audiocapture.Mode {
	return aa.mode
}
