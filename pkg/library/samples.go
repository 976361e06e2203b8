package library

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Audio payloads are stored as raw little-endian IEEE-754 float32 bytes,
// no header and no rate tag.

func samplesToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func bytesToSamples(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("library: stored audio is %d bytes, not a whole number of samples", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
