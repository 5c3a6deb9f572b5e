package stt

import (
	"math"
	"time"
)

// DefaultEndSilence is the pause that ends a speech segment.
const DefaultEndSilence = 600 * time.Millisecond

// VADEvent is what a chunk of audio meant to the detector.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStart
	VADSpeechContinue
	VADSpeechEnd
)

// VAD is an energy based voice activity detector. Durations are measured in
// audio time, derived from the sample count, not wall time.
type VAD struct {
	threshold  float32
	endSilence time.Duration

	inSpeech bool
	heard    bool
	silence  time.Duration
}

// NewVAD creates a detector. Chunks with RMS at or above threshold count as
// speech; endSilence of quiet audio after speech ends the segment.
func NewVAD(threshold float32, endSilence time.Duration) *VAD {
	return &VAD{threshold: threshold, endSilence: endSilence}
}

// Process classifies one chunk of samples at sampleRate.
func (v *VAD) Process(samples []float32, sampleRate int) VADEvent {
	if len(samples) == 0 || sampleRate <= 0 {
		return VADNone
	}

	if rms(samples) >= v.threshold {
		v.heard = true
		v.silence = 0
		if !v.inSpeech {
			v.inSpeech = true
			return VADSpeechStart
		}
		return VADSpeechContinue
	}

	if !v.inSpeech {
		return VADNone
	}
	v.silence += time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	if v.silence >= v.endSilence {
		v.inSpeech = false
		v.silence = 0
		return VADSpeechEnd
	}
	return VADSpeechContinue
}

// Heard reports whether any speech was detected since the last Reset.
func (v *VAD) Heard() bool { return v.heard }

// InSpeech reports whether a speech segment is in progress.
func (v *VAD) InSpeech() bool { return v.inSpeech }

// Reset clears all state.
func (v *VAD) Reset() {
	v.inSpeech = false
	v.heard = false
	v.silence = 0
}

// rms returns the root mean square energy of samples.
func rms(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
