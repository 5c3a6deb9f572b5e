package stt

import (
	"bytes"
	"encoding/binary"
)

// float32ToWAV encodes mono float32 PCM as a 16-bit WAV file.
func float32ToWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	le := binary.LittleEndian

	buf.WriteString("RIFF")
	_ = binary.Write(buf, le, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, le, uint32(16))           // chunk size
	_ = binary.Write(buf, le, uint16(1))            // PCM
	_ = binary.Write(buf, le, uint16(1))            // mono
	_ = binary.Write(buf, le, uint32(sampleRate))   // sample rate
	_ = binary.Write(buf, le, uint32(sampleRate*2)) // byte rate
	_ = binary.Write(buf, le, uint16(2))            // block align
	_ = binary.Write(buf, le, uint16(16))           // bits per sample

	buf.WriteString("data")
	_ = binary.Write(buf, le, uint32(dataSize))

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		s = min(max(s, -1), 1)
		pcm[i] = int16(s * 32767)
	}
	_ = binary.Write(buf, le, pcm)

	return buf.Bytes()
}
