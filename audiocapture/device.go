package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrConfig wraps failures to switch the audio device mode.
var ErrConfig = errors.New("audio configuration failed")

// Mode is the exclusive configuration of the audio device.
type Mode int

const (
	ModeNone Mode = iota
	ModeRecording
	ModePlayback
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeRecording:
		return "recording"
	case ModePlayback:
		return "playback"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Device switches the shared audio device between recording and playback.
// Only one mode is configured at a time.
type Device interface {
	ConfigureFor(mode Mode) error
}

// LogDevice is a Device without hardware that records and logs the mode.
type LogDevice struct {
	mu   sync.Mutex
	mode Mode
}

// ConfigureFor records mode.
func (d *LogDevice) ConfigureFor(mode Mode) error {
	if mode != ModeRecording && mode != ModePlayback {
		return fmt.Errorf("%w: unsupported mode %v", ErrConfig, mode)
	}

	d.mu.Lock()
	prev := d.mode
	d.mode = mode
	d.mu.Unlock()

	slog.Debug("audio device configured", "mode", mode, "previous", prev)
	return nil
}

// Mode returns the last configured mode.
func (d *LogDevice) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}
