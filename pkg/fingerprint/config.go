package fingerprint

import "fmt"

// Config holds the tuning parameters for feature extraction and search.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// SampleRate is the fixed internal rate, in Hz, at which the session
	// operates. All audio must be converted to it before Register or Search.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// WindowSize is the FFT analysis window length in samples.
	// Must be a power of two.
	WindowSize int `yaml:"window_size" json:"window_size"`

	// WindowStride is the hop between consecutive analysis windows.
	WindowStride int `yaml:"window_stride" json:"window_stride"`

	// ChromaOctaves is the number of octaves folded into the chroma bins.
	ChromaOctaves int `yaml:"chroma_octaves" json:"chroma_octaves"`

	// ChromaBinsPerOctave is the number of pitch-class bins per octave.
	ChromaBinsPerOctave int `yaml:"chroma_bins_per_octave" json:"chroma_bins_per_octave"`

	// ChromaRefFreq is the frequency, in Hz, of the lowest chroma bin.
	ChromaRefFreq float64 `yaml:"chroma_ref_freq" json:"chroma_ref_freq"`

	// ChromaQFactor controls the width of each chroma filter: the filter
	// centered on tone f has standard deviation f/Q.
	ChromaQFactor float64 `yaml:"chroma_q_factor" json:"chroma_q_factor"`

	// QuantizerBitsPerBin is the width of the thermometer code emitted per
	// chroma bin when quantizing a chroma vector into a feature.
	QuantizerBitsPerBin int `yaml:"quantizer_bits_per_bin" json:"quantizer_bits_per_bin"`

	// QuantizerTopK is how many of the strongest chroma bins contribute
	// bits to the feature.
	QuantizerTopK int `yaml:"quantizer_top_k" json:"quantizer_top_k"`

	// SearchBeamCount caps the number of candidate alignments tracked
	// while scanning a query.
	SearchBeamCount int `yaml:"search_beam_count" json:"search_beam_count"`

	// SearchWindow is how far ahead, in frames, a beam may jump when
	// matching the next query feature (time-warp tolerance).
	SearchWindow int `yaml:"search_window" json:"search_window"`

	// SearchOverlap is the overlap ratio at which a weaker result is
	// suppressed by a stronger one during finalization.
	SearchOverlap float64 `yaml:"search_overlap" json:"search_overlap"`

	// SearchLengthPenalty and SearchScorePenalty bias freshly seeded beams
	// so that short accidental alignments do not outrank longer ones.
	SearchLengthPenalty uint64 `yaml:"search_length_penalty" json:"search_length_penalty"`
	SearchScorePenalty  uint64 `yaml:"search_score_penalty" json:"search_score_penalty"`
}

// DefaultConfig returns the tuning the engine ships with.
func DefaultConfig() Config {
	return Config{
		SampleRate:   11500,
		WindowSize:   4096,
		WindowStride: 2048,

		ChromaOctaves:       8,
		ChromaBinsPerOctave: 12,
		ChromaRefFreq:       27.5,
		ChromaQFactor:       20.0,

		QuantizerBitsPerBin: 5,
		QuantizerTopK:       8,

		SearchBeamCount:     1000,
		SearchWindow:        3,
		SearchOverlap:       1.0,
		SearchLengthPenalty: 3,
		SearchScorePenalty:  100,
	}
}

// validate reports the first structural problem with the config.
func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("fingerprint: sample rate must be positive, got %d", c.SampleRate)
	case c.WindowSize <= 0 || c.WindowSize&(c.WindowSize-1) != 0:
		return fmt.Errorf("fingerprint: window size must be a power of two, got %d", c.WindowSize)
	case c.WindowStride <= 0:
		return fmt.Errorf("fingerprint: window stride must be positive, got %d", c.WindowStride)
	case c.ChromaOctaves <= 0 || c.ChromaBinsPerOctave <= 0:
		return fmt.Errorf("fingerprint: chroma dimensions must be positive")
	case c.ChromaRefFreq <= 0 || c.ChromaQFactor <= 0:
		return fmt.Errorf("fingerprint: chroma reference frequency and Q factor must be positive")
	case c.QuantizerTopK <= 0 || c.QuantizerTopK > c.ChromaBinsPerOctave:
		return fmt.Errorf("fingerprint: quantizer top-k must be in [1, %d], got %d",
			c.ChromaBinsPerOctave, c.QuantizerTopK)
	case c.QuantizerBitsPerBin <= 0 || c.ChromaBinsPerOctave*c.QuantizerBitsPerBin > 64:
		// Every bin's thermometer slot must fit in a 64-bit feature.
		return fmt.Errorf("fingerprint: quantizer does not fit in 64 bits: %d bins x %d bits",
			c.ChromaBinsPerOctave, c.QuantizerBitsPerBin)
	case c.SearchBeamCount <= 0 || c.SearchWindow <= 0:
		return fmt.Errorf("fingerprint: search beam count and window must be positive")
	}
	return nil
}

// strideDt is the duration of one feature frame in seconds.
func (c Config) strideDt() float32 {
	return float32(c.WindowStride) / float32(c.SampleRate)
}
