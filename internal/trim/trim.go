package trim

import (
	"fmt"
	"time"

	"airtrack/internal/media"
	"airtrack/internal/services"
)

// Range is a half-open [Start, End) slice of an audio object's timeline.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Validate checks the range against a source duration.
func (r Range) Validate(duration time.Duration) error {
	if r.Start < 0 {
		return services.Wrap(services.ErrInvalidRange, "trim", "validate", fmt.Sprintf("start %s is negative", r.Start), nil)
	}
	if r.Start >= r.End {
		return services.Wrap(services.ErrInvalidRange, "trim", "validate", fmt.Sprintf("start %s is not before end %s", r.Start, r.End), nil)
	}
	if r.End > duration {
		return services.Wrap(services.ErrInvalidRange, "trim", "validate", fmt.Sprintf("end %s exceeds duration %s", r.End, duration), nil)
	}
	return nil
}

// Duration returns the length of the range.
func (r Range) Duration() time.Duration {
	return r.End - r.Start
}

// Trim produces a new audio object containing only the given sub-range. The
// source is never mutated, so callers can discard the result and fall back
// to the original. Offsets quantize down to frame boundaries: ranges whose
// offsets land on frame boundaries compose exactly (trimming a trimmed
// result equals trimming the original with the combined range), while a
// non-aligned offset can shift the cut by up to one frame per trim against
// the combined range.
func Trim(audio media.Audio, r Range) (media.Audio, error) {
	if err := audio.Format.Validate(); err != nil {
		return media.Audio{}, fmt.Errorf("trim source: %w", err)
	}
	if err := r.Validate(audio.Duration()); err != nil {
		return media.Audio{}, err
	}

	frameSize := audio.Format.FrameSize()
	startByte := byteOffset(audio.Format, r.Start, frameSize)
	endByte := byteOffset(audio.Format, r.End, frameSize)
	if endByte > len(audio.Data) {
		endByte = len(audio.Data) - len(audio.Data)%frameSize
	}
	if startByte >= endByte {
		return media.Audio{}, services.Wrap(services.ErrInvalidRange, "trim", "slice", "range resolves to zero frames", nil)
	}

	data := make([]byte, endByte-startByte)
	copy(data, audio.Data[startByte:endByte])
	return media.Audio{Format: audio.Format, Data: data}, nil
}

func byteOffset(f media.Format, at time.Duration, frameSize int) int {
	frames := int(int64(at) * int64(f.SampleRate) / int64(time.Second))
	return frames * frameSize
}
