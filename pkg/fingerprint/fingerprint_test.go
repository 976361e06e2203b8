package fingerprint

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestFeatureDistance(t *testing.T) {
	if d := feature(0b1010).distance(0b1100); d != 2 {
		t.Fatalf("distance(0b1010, 0b1100) = %d, want 2", d)
	}
	if d := feature(0).distance(feature(math.MaxUint64)); d != 64 {
		t.Fatalf("distance(0, all-ones) = %d, want 64", d)
	}
	if d := feature(0xdeadbeef).distance(0xdeadbeef); d != 0 {
		t.Fatalf("self distance = %d, want 0", d)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.WindowSize = 3000 // not a power of two
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for non-power-of-two window")
	}

	cfg = DefaultConfig()
	cfg.QuantizerTopK = cfg.ChromaBinsPerOctave + 1
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for top-k exceeding bin count")
	}

	// A zero reference frequency or Q would make the chroma projection
	// degenerate (NaN filter weights).
	cfg = DefaultConfig()
	cfg.ChromaRefFreq = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero reference frequency")
	}

	cfg = DefaultConfig()
	cfg.ChromaQFactor = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero Q factor")
	}
}

func TestExtractorFrameCount(t *testing.T) {
	cfg := DefaultConfig()
	ext := newExtractor(cfg)

	for _, n := range []int{0, cfg.WindowSize - 1, cfg.WindowSize,
		cfg.WindowSize + cfg.WindowStride, cfg.WindowSize + 5*cfg.WindowStride + 7} {
		var want int
		if n >= cfg.WindowSize {
			want = (n-cfg.WindowSize)/cfg.WindowStride + 1
		}
		got := len(ext.features(make([]float32, n)))
		if got != want {
			t.Errorf("features(%d samples) = %d frames, want %d", n, got, want)
		}
	}
}

// sine synthesizes dur seconds of a pure tone at the session rate.
func sine(freq, dur float64, rate int) []float32 {
	n := int(dur * float64(rate))
	out := make([]float32, n)
	step := 2 * math.Pi * freq / float64(rate)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(float64(i)*step))
	}
	return out
}

// melody concatenates pure-tone notes, each noteDur seconds long.
func melody(freqs []float64, noteDur float64, rate int) []float32 {
	var out []float32
	for _, f := range freqs {
		out = append(out, sine(f, noteDur, rate)...)
	}
	return out
}

// Three melodies over disjoint pitch-class sets, so their chroma
// fingerprints are far apart.
var (
	melodyA = []float64{440.00, 554.37, 659.25, 880.00, 659.25, 440.00} // A, C#, E
	melodyB = []float64{493.88, 587.33, 739.99, 987.77, 739.99, 493.88} // B, D, F#
	melodyC = []float64{415.30, 523.25, 698.46, 830.61, 523.25, 698.46} // G#, C, F
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func registerMelodies(t *testing.T, s *Session) {
	t.Helper()
	rate := s.SampleRate()
	const noteDur = 0.7
	for _, reg := range []struct {
		id    string
		notes []float64
	}{
		{"aaaa-1", melodyA},
		{"bbbb-2", melodyB},
		{"cccc-3", melodyC},
	} {
		if err := s.Register(reg.id, melody(reg.notes, noteDur, rate)); err != nil {
			t.Fatalf("Register(%s): %v", reg.id, err)
		}
	}
}

func TestSearchFindsClip(t *testing.T) {
	s := newTestSession(t)
	registerMelodies(t, s)
	if got := s.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	// Query with a 2.5 s clip of melody B starting 1.4 s in.
	rate := s.SampleRate()
	full := melody(melodyB, 0.7, rate)
	clipStart := 1.4
	clip := full[int(clipStart*float64(rate)) : int(clipStart*float64(rate))+int(2.5*float64(rate))]

	matches := s.Search(clip)
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	best := matches[0]
	if best.ID != "bbbb-2" {
		t.Fatalf("best match = %q (score %v), want bbbb-2", best.ID, best.Score)
	}
	if d := math.Abs(float64(best.KeyStart) - clipStart); d > 1.0 {
		t.Errorf("KeyStart = %v, want within 1s of %v", best.KeyStart, clipStart)
	}
	if best.KeyEnd <= best.KeyStart {
		t.Errorf("KeyEnd = %v not after KeyStart = %v", best.KeyEnd, best.KeyStart)
	}

	// Matches come back best-first.
	for i := 1; i < len(matches); i++ {
		if matches[i].Score < matches[i-1].Score {
			t.Fatalf("matches not sorted: score[%d]=%v < score[%d]=%v",
				i, matches[i].Score, i-1, matches[i-1].Score)
		}
	}
}

func TestSearchAfterUnregister(t *testing.T) {
	s := newTestSession(t)
	registerMelodies(t, s)

	s.Unregister("bbbb-2")
	if got := s.Len(); got != 2 {
		t.Fatalf("Len after Unregister = %d, want 2", got)
	}
	s.Unregister("bbbb-2") // absent id is a no-op
	s.Unregister("never-registered")

	clip := melody(melodyB, 0.7, s.SampleRate())[:int(2.5*float64(s.SampleRate()))]
	for _, m := range s.Search(clip) {
		if m.ID == "bbbb-2" {
			t.Fatal("unregistered id still matched")
		}
	}
}

func TestRegisterRejectsShortPayload(t *testing.T) {
	s := newTestSession(t)
	err := s.Register("aaaa-1", make([]float32, DefaultConfig().WindowSize-1))
	if err == nil {
		t.Fatal("expected error for payload shorter than one window")
	}
	if !strings.Contains(err.Error(), "too short") {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("Len = %d after failed register, want 0", got)
	}
}

func TestRegisterReplaces(t *testing.T) {
	s := newTestSession(t)
	rate := s.SampleRate()
	if err := s.Register("aaaa-1", melody(melodyA, 0.7, rate)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Re-register the same id with melody C audio.
	if err := s.Register("aaaa-1", melody(melodyC, 0.7, rate)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}

	matches := s.Search(melody(melodyC, 0.7, rate))
	if len(matches) == 0 || matches[0].ID != "aaaa-1" {
		t.Fatalf("expected aaaa-1 to match its replacement audio, got %+v", matches)
	}
}

func TestShortQueryMatchesNothing(t *testing.T) {
	s := newTestSession(t)
	registerMelodies(t, s)
	if matches := s.Search(make([]float32, DefaultConfig().WindowSize-1)); matches != nil {
		t.Fatalf("expected nil matches for sub-window query, got %d", len(matches))
	}
}

// Two sessions built from the same registrations must answer a query
// identically; startup replay depends on this.
func TestSearchDeterministic(t *testing.T) {
	s1 := newTestSession(t)
	s2 := newTestSession(t)
	registerMelodies(t, s1)
	registerMelodies(t, s2)

	clip := melody(melodyA, 0.7, s1.SampleRate())[:int(2*float64(s1.SampleRate()))]
	m1 := s1.Search(clip)
	m2 := s2.Search(clip)
	if !reflect.DeepEqual(m1, m2) {
		t.Fatalf("searches diverged:\n%+v\n%+v", m1, m2)
	}
}
