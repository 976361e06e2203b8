// Package wav encodes and decodes the audio container used at the service
// boundary: a minimal linear PCM WAV file carrying a single channel of
// 32-bit IEEE-float samples.
//
// The codec is pure and stateless. Decoding walks the RIFF chunk list and
// requires both a float32 mono fmt chunk and a data chunk; everything else
// is ignored. Encoding always emits the canonical 44-byte header followed
// by the raw little-endian sample stream.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned when a container is missing a mandatory section
// or declares a format this codec does not speak.
var ErrMalformed = errors.New("wav: malformed container")

const (
	// formatIEEEFloat is the WAV format tag for IEEE-float PCM.
	formatIEEEFloat = 3

	headerSize = 44
	bitDepth   = 32
	channels   = 1
)

// Encode renders mono float32 samples into a WAV container at the given
// sample rate. The sample bytes are written verbatim; Decode returns them
// bit-identically.
func Encode(samples []float32, sampleRate int) []byte {
	dataLen := len(samples) * 4
	buf := make([]byte, headerSize+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], formatIEEEFloat)
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*bitDepth/8)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], channels*bitDepth/8)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], bitDepth)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(s))
	}
	return buf
}

// Decode parses a WAV container and returns its samples and declared
// sample rate. Only mono 32-bit IEEE-float PCM is accepted.
func Decode(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing RIFF/WAVE header", ErrMalformed)
	}

	var (
		sampleRate int
		haveFmt    bool
		sampleData []byte
	)

	// Walk the chunk list.
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if chunkLen > len(body) {
			return nil, 0, fmt.Errorf("%w: %s chunk truncated", ErrMalformed, chunkID)
		}
		body = body[:chunkLen]

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, 0, fmt.Errorf("%w: fmt chunk too short", ErrMalformed)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			nch := binary.LittleEndian.Uint16(body[2:4])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != formatIEEEFloat || nch != channels || bits != bitDepth {
				return nil, 0, fmt.Errorf("%w: want mono float32 PCM, got format=%d channels=%d bits=%d",
					ErrMalformed, format, nch, bits)
			}
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			if sampleRate <= 0 {
				return nil, 0, fmt.Errorf("%w: declared sample rate %d", ErrMalformed, sampleRate)
			}
			haveFmt = true
		case "data":
			sampleData = body
		}

		// Chunks are word-aligned.
		pos += 8 + chunkLen
		if chunkLen%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, 0, fmt.Errorf("%w: missing fmt section", ErrMalformed)
	}
	if sampleData == nil {
		return nil, 0, fmt.Errorf("%w: missing data section", ErrMalformed)
	}
	if len(sampleData)%4 != 0 {
		return nil, 0, fmt.Errorf("%w: data section is not a whole number of samples", ErrMalformed)
	}

	samples := make([]float32, len(sampleData)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(sampleData[i*4:]))
	}
	return samples, sampleRate, nil
}
