package fingerprint

import (
	"math"
	"math/bits"
	"sort"
)

// feature is one quantized chroma frame: a 64-bit code whose Hamming
// distance to another feature approximates their spectral dissimilarity.
type feature uint64

// distance is the Hamming distance between two features.
func (f feature) distance(o feature) int {
	return bits.OnesCount64(uint64(f ^ o))
}

// extractor turns raw audio into feature sequences. It is immutable after
// construction and safe for concurrent use.
type extractor struct {
	cfg    Config
	window []float64   // Hann window, len == cfg.WindowSize
	chroma [][]float64 // [WindowSize/2+1][ChromaBinsPerOctave] projection
}

func newExtractor(cfg Config) *extractor {
	omega := 2 * math.Pi / float64(cfg.WindowSize-1)
	window := make([]float64, cfg.WindowSize)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(float64(i)*omega)
	}

	return &extractor{
		cfg:    cfg,
		window: window,
		chroma: chromaMatrix(cfg),
	}
}

// aWeight approximates the A-weighting curve: the relative perceptual
// loudness of a pure tone at frequency f, computed in the log domain to
// avoid overflow at the extremes.
func aWeight(f float64) float64 {
	const (
		c0sq = 20.6 * 20.6
		c1sq = 107.7 * 107.7
		c2sq = 737.9 * 737.9
		c3   = 12194.0
		c3sq = c3 * c3
	)

	if f <= 0 {
		return 0
	}

	fsq := f * f
	numLog := 2*math.Log(c3) + 4*math.Log(f)
	denomLog := math.Log(fsq+c0sq) +
		0.5*math.Log(fsq+c1sq) +
		0.5*math.Log(fsq+c2sq) +
		math.Log(fsq+c3sq)
	return math.Exp(numLog - denomLog)
}

// chromaMatrix builds the spectrogram-to-chroma projection. Row k weighs
// FFT bin k (center frequency rate*k/windowSize); column c is the chroma
// bin for pitch class c, summing Gaussian filters centered on that pitch
// class in every octave, scaled by the A-weighting of the bin frequency.
func chromaMatrix(cfg Config) [][]float64 {
	nrows := cfg.WindowSize/2 + 1
	ncols := cfg.ChromaBinsPerOctave
	binStep := 1.0 / float64(cfg.ChromaBinsPerOctave)

	m := make([][]float64, nrows)
	for k := range m {
		row := make([]float64, ncols)
		binFreq := float64(cfg.SampleRate) * float64(k) / float64(cfg.WindowSize)
		weight := aWeight(binFreq)

		for c := range row {
			var sum float64
			for octave := 0; octave < cfg.ChromaOctaves; octave++ {
				octaveFrac := float64(octave) + float64(c)*binStep
				toneFreq := math.Exp2(octaveFrac) * cfg.ChromaRefFreq

				// z = (tone - bin freq) / sigma, sigma = tone / Q
				z := (toneFreq - binFreq) * cfg.ChromaQFactor / toneFreq
				sum += math.Exp(z * z * -0.5)
			}
			row[c] = sum * weight
		}
		m[k] = row
	}
	return m
}

// features computes the feature sequence for a payload. Samples are
// expected in [-1, 1] at the configured sample rate. Payloads shorter than
// one analysis window yield no features.
func (e *extractor) features(samples []float32) []feature {
	cfg := e.cfg
	nBins := cfg.WindowSize/2 + 1
	norm := 1 / math.Sqrt(float64(cfg.WindowSize))

	re := make([]float64, cfg.WindowSize)
	im := make([]float64, cfg.WindowSize)
	mag := make([]float64, nBins)

	var out []feature

	type binValue struct {
		value float64
		bin   int
	}
	sorted := make([]binValue, cfg.ChromaBinsPerOctave)

	for start := 0; start+cfg.WindowSize <= len(samples); start += cfg.WindowStride {
		frame := samples[start : start+cfg.WindowSize]
		for i, s := range frame {
			re[i] = float64(s) * e.window[i]
			im[i] = 0
		}
		fft(re, im)

		for k := 0; k < nBins; k++ {
			mag[k] = math.Hypot(re[k], im[k]) * norm
		}

		// Project the magnitude spectrum onto the chroma bins.
		for c := range sorted {
			sorted[c] = binValue{bin: c}
		}
		for k := 0; k < nBins; k++ {
			row := e.chroma[k]
			m := mag[k]
			for c := range row {
				sorted[c].value += m * row[c]
			}
		}

		// Quantize: the strongest top-k bins each emit a thermometer code
		// whose width grows with the bin's rank.
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })

		var code feature
		top := sorted[len(sorted)-cfg.QuantizerTopK:]
		for rank, bv := range top {
			width := rank * (cfg.QuantizerBitsPerBin + 1) / cfg.QuantizerTopK
			thermo := uint64(1)<<width - 1
			code |= feature(thermo << (bv.bin * cfg.QuantizerBitsPerBin))
		}
		out = append(out, code)
	}

	return out
}
