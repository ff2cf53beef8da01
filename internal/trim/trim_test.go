package trim_test

import (
	"errors"
	"testing"
	"time"

	"airtrack/internal/media"
	"airtrack/internal/services"
	"airtrack/internal/trim"
)

func makeAudio(seconds int) media.Audio {
	format := media.DefaultFormat
	data := make([]byte, seconds*format.BytesPerSecond())
	for i := range data {
		data[i] = byte(i)
	}
	return media.Audio{Format: format, Data: data}
}

func TestTrimProducesSubRange(t *testing.T) {
	audio := makeAudio(5)

	trimmed, err := trim.Trim(audio, trim.Range{Start: time.Second, End: 3 * time.Second})
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if trimmed.Duration() != 2*time.Second {
		t.Fatalf("trimmed duration = %s, want 2s", trimmed.Duration())
	}
	if audio.Duration() != 5*time.Second {
		t.Fatalf("source duration changed to %s", audio.Duration())
	}

	// The slice must start at the one second mark of the source.
	offset := audio.Format.BytesPerSecond()
	if trimmed.Data[0] != audio.Data[offset] {
		t.Fatalf("trimmed data does not start at the expected offset")
	}
}

func TestTrimDoesNotMutateSource(t *testing.T) {
	audio := makeAudio(2)
	snapshot := append([]byte(nil), audio.Data...)

	trimmed, err := trim.Trim(audio, trim.Range{Start: 0, End: time.Second})
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	for i := range trimmed.Data {
		trimmed.Data[i] = 0xFF
	}
	for i := range snapshot {
		if audio.Data[i] != snapshot[i] {
			t.Fatalf("source data mutated at byte %d", i)
		}
	}
}

func TestTrimComposes(t *testing.T) {
	audio := makeAudio(10)

	first, err := trim.Trim(audio, trim.Range{Start: 2 * time.Second, End: 8 * time.Second})
	if err != nil {
		t.Fatalf("first trim: %v", err)
	}
	second, err := trim.Trim(first, trim.Range{Start: time.Second, End: 4 * time.Second})
	if err != nil {
		t.Fatalf("second trim: %v", err)
	}

	direct, err := trim.Trim(audio, trim.Range{Start: 3 * time.Second, End: 6 * time.Second})
	if err != nil {
		t.Fatalf("direct trim: %v", err)
	}
	if len(second.Data) != len(direct.Data) {
		t.Fatalf("composed length %d != direct length %d", len(second.Data), len(direct.Data))
	}
	for i := range direct.Data {
		if second.Data[i] != direct.Data[i] {
			t.Fatalf("composed trim differs from direct trim at byte %d", i)
		}
	}
}

// At 44.1 kHz a millisecond does not land on a frame boundary, so offsets
// quantize: stacking trims can cut one frame earlier than the combined
// range applied once. This pins down that behavior.
func TestTrimQuantizesNonAlignedOffsets(t *testing.T) {
	format := media.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}
	data := make([]byte, format.BytesPerSecond())
	for i := range data {
		data[i] = byte(i % 251)
	}
	audio := media.Audio{Format: format, Data: data}
	frameSize := format.FrameSize()

	first, err := trim.Trim(audio, trim.Range{Start: time.Millisecond, End: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("first trim: %v", err)
	}
	// 1ms at 44.1 kHz is 44.1 frames, floored to 44.
	if first.Data[0] != data[44*frameSize] {
		t.Fatalf("first trim starts at the wrong frame")
	}

	stacked, err := trim.Trim(first, trim.Range{Start: 19 * time.Millisecond, End: 400 * time.Millisecond})
	if err != nil {
		t.Fatalf("stacked trim: %v", err)
	}
	direct, err := trim.Trim(audio, trim.Range{Start: 20 * time.Millisecond, End: 400 * time.Millisecond})
	if err != nil {
		t.Fatalf("direct trim: %v", err)
	}

	// floor(1ms) + floor(19ms) = 44 + 837 = 881 frames, but
	// floor(20ms) = 882: the stacked result starts one frame earlier.
	if stacked.Data[0] != data[881*frameSize] {
		t.Fatalf("stacked trim starts at the wrong frame")
	}
	if direct.Data[0] != data[882*frameSize] {
		t.Fatalf("direct trim starts at the wrong frame")
	}
	if stacked.Data[0] == direct.Data[0] && stacked.Data[1] == direct.Data[1] {
		t.Fatal("expected one-frame quantization offset between stacked and direct trims")
	}
}

func TestRangeValidate(t *testing.T) {
	duration := 5 * time.Second
	cases := []struct {
		name string
		r    trim.Range
		ok   bool
	}{
		{"full", trim.Range{Start: 0, End: duration}, true},
		{"interior", trim.Range{Start: time.Second, End: 2 * time.Second}, true},
		{"negative start", trim.Range{Start: -time.Second, End: time.Second}, false},
		{"inverted", trim.Range{Start: 3 * time.Second, End: time.Second}, false},
		{"empty", trim.Range{Start: time.Second, End: time.Second}, false},
		{"past end", trim.Range{Start: 0, End: 6 * time.Second}, false},
	}
	for _, tc := range cases {
		err := tc.r.Validate(duration)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			} else if !errors.Is(err, services.ErrInvalidRange) {
				t.Errorf("%s: error %v is not ErrInvalidRange", tc.name, err)
			}
		}
	}
}

func TestTrimRejectsInvalidRange(t *testing.T) {
	audio := makeAudio(3)
	_, err := trim.Trim(audio, trim.Range{Start: 2 * time.Second, End: 10 * time.Second})
	if !errors.Is(err, services.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestTrimAlignsToFrames(t *testing.T) {
	format := media.Format{SampleRate: 48000, Channels: 2, BitsPerSample: 16}
	audio := media.Audio{Format: format, Data: make([]byte, 2*format.BytesPerSecond())}

	trimmed, err := trim.Trim(audio, trim.Range{Start: 333 * time.Millisecond, End: 1667 * time.Millisecond})
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if len(trimmed.Data)%format.FrameSize() != 0 {
		t.Fatalf("trimmed data length %d is not frame aligned", len(trimmed.Data))
	}
}
