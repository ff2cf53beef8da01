package media

import (
	"fmt"
	"time"
)

// Format describes the PCM layout of captured audio.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is the capture format used when configuration supplies none.
var DefaultFormat = Format{SampleRate: 48000, Channels: 1, BitsPerSample: 16}

// BytesPerSecond returns the PCM data rate for the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// FrameSize returns the byte size of one sample frame across all channels.
func (f Format) FrameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

// Validate reports whether the format describes a supported PCM layout.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d is not positive", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channel count %d is not 1 or 2", f.Channels)
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32 {
		return fmt.Errorf("bit depth %d is not supported", f.BitsPerSample)
	}
	return nil
}

// Audio is finalized PCM audio produced by a completed recording session.
// Instances are treated as immutable; trimming produces new values.
type Audio struct {
	Format Format
	Data   []byte
}

// Duration returns the playback length of the audio.
func (a Audio) Duration() time.Duration {
	bps := a.Format.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(a.Data)) * time.Second / time.Duration(bps)
}

// Seconds returns the playback length in whole and fractional seconds.
func (a Audio) Seconds() float64 {
	bps := a.Format.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return float64(len(a.Data)) / float64(bps)
}
