// Package resample converts mono float32 audio between sample rates.
//
// The acoustic index operates at one fixed internal rate, so every payload
// headed for registration or search passes through Resample first. The
// conversion is a pure function over a complete sample slice; the heavy
// lifting is done by a pure-Go polyphase resampling engine.
package resample

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts samples from one sample rate to another. When the rates
// are equal it returns a copy of the input unchanged.
func Resample(samples []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("resample: invalid rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}
	if len(samples) == 0 {
		return nil, nil
	}

	config := &resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	r, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("resample: create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]float32, len(output))
	for i, s := range output {
		out[i] = float32(s)
	}
	return out, nil
}
