package media

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const wavHeaderSize = 44

// EncodeWAV wraps PCM audio in a canonical RIFF/WAVE container.
func EncodeWAV(audio Audio) ([]byte, error) {
	if err := audio.Format.Validate(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}

	f := audio.Format
	data := audio.Data
	out := make([]byte, wavHeaderSize+len(data))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(data)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(f.BytesPerSecond()))
	binary.LittleEndian.PutUint16(out[32:34], uint16(f.FrameSize()))
	binary.LittleEndian.PutUint16(out[34:36], uint16(f.BitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(data)))
	copy(out[wavHeaderSize:], data)

	return out, nil
}

// DecodeWAV extracts PCM audio from a RIFF/WAVE container. Only uncompressed
// PCM is supported; chunks other than fmt and data are skipped.
func DecodeWAV(raw []byte) (Audio, error) {
	if len(raw) < wavHeaderSize {
		return Audio{}, errors.New("decode wav: file too short")
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return Audio{}, errors.New("decode wav: not a RIFF/WAVE file")
	}

	var (
		format   Format
		haveFmt  bool
		haveData bool
		data     []byte
	)

	offset := 12
	for offset+8 <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkLen > len(raw) {
			return Audio{}, fmt.Errorf("decode wav: chunk %q overruns file", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return Audio{}, errors.New("decode wav: fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(raw[body : body+2])
			if audioFormat != 1 {
				return Audio{}, fmt.Errorf("decode wav: unsupported audio format %d", audioFormat)
			}
			format = Format{
				Channels:      int(binary.LittleEndian.Uint16(raw[body+2 : body+4])),
				SampleRate:    int(binary.LittleEndian.Uint32(raw[body+4 : body+8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(raw[body+14 : body+16])),
			}
			haveFmt = true
		case "data":
			data = make([]byte, chunkLen)
			copy(data, raw[body:body+chunkLen])
			haveData = true
		}

		// Chunks are word aligned.
		if chunkLen%2 == 1 {
			chunkLen++
		}
		offset = body + chunkLen
	}

	if !haveFmt {
		return Audio{}, errors.New("decode wav: missing fmt chunk")
	}
	if !haveData {
		return Audio{}, errors.New("decode wav: missing data chunk")
	}
	if err := format.Validate(); err != nil {
		return Audio{}, fmt.Errorf("decode wav: %w", err)
	}

	return Audio{Format: format, Data: data}, nil
}
