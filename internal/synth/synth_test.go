package synth

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"sine", Sine, false},
		{"Square", Square, false},
		{" triangle ", Triangle, false},
		{"sawtooth", Sawtooth, false},
		{"random", Random, false},
		{"pulse", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownAlgorithm) {
					t.Fatalf("Expected ErrUnknownAlgorithm, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteCount(t *testing.T) {
	tests := []struct {
		name          string
		duration, fps float64
		width, height int
		expected      int64
	}{
		{"one second 64x64 at 10fps", 1, 10, 64, 64, 122880},
		{"fractional duration", 0.5, 10, 2, 2, 60},
		{"whole frames despite float error", 0.29, 100, 2, 2, 29 * 12},
		{"rounds to nearest frame", 0.26, 10, 1, 1, 9},
		{"less than half a frame", 0.04, 10, 64, 64, 0},
		{"saturates", 1e300, 1, 64, 64, math.MaxInt64},
		{"zero duration", 0, 10, 64, 64, 0},
		{"negative width", 1, 10, -1, 64, 0},
		{"zero framerate", 1, 0, 64, 64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByteCount(tt.duration, tt.fps, tt.width, tt.height); got != tt.expected {
				t.Errorf("ByteCount() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestSynthesizeLength(t *testing.T) {
	sizes := []int{0, 1, 255, 4096, 70000}
	for _, alg := range Algorithms() {
		for _, n := range sizes {
			out, err := Synthesize(alg, n, Dials{Noise: 0.5, Tremolo: 0.5, FrequencyMultiplier: 3}, rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatalf("Synthesize(%s, %d) error: %v", alg, n, err)
			}
			if len(out) != n {
				t.Errorf("Synthesize(%s, %d) produced %d bytes", alg, n, len(out))
			}
		}
	}
}

func TestSynthesizeDeterministicWithoutNoise(t *testing.T) {
	dials := Dials{Tremolo: 0.7, FrequencyMultiplier: 1.5}
	for _, alg := range []Algorithm{Sine, Square, Triangle, Sawtooth} {
		t.Run(string(alg), func(t *testing.T) {
			a, err := Synthesize(alg, 10000, dials, rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatal(err)
			}
			b, err := Synthesize(alg, 10000, dials, rand.New(rand.NewSource(2)))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(a, b) {
				t.Error("Expected identical output for identical parameters without noise")
			}
		})
	}
}

func TestSawtoothExample(t *testing.T) {
	out, err := Synthesize(Sawtooth, 101, Dials{FrequencyMultiplier: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[100] != 235 {
		t.Errorf("Expected byte 100 = 235, got %d", out[100])
	}
	if out[0] != 0 {
		t.Errorf("Expected byte 0 = 0, got %d", out[0])
	}
}

func TestBaseWaveforms(t *testing.T) {
	d := DefaultDials()

	if got := Sample(Sine, 0, d, nil); got != 127 {
		t.Errorf("sine(0) = %d, want 127", got)
	}
	if got := Sample(Square, 0, d, nil); got != 0 {
		t.Errorf("square(0) = %d, want 0 (sin(0) is not > 0)", got)
	}
	if got := Sample(Square, 1, d, nil); got != 255 {
		t.Errorf("square(1) = %d, want 255", got)
	}
	if got := Sample(Triangle, 0, d, nil); got != 127 {
		t.Errorf("triangle(0) = %d, want 127", got)
	}
	// sin(157*0.01) is close to 1, so the sine wave peaks near 255.
	if got := Sample(Sine, 157, d, nil); got < 254 {
		t.Errorf("sine(157) = %d, want ~255", got)
	}
}

func TestTremoloAttenuates(t *testing.T) {
	plain := Sample(Square, 1, DefaultDials(), nil)
	full := Sample(Square, 1, Dials{Tremolo: 1, FrequencyMultiplier: 1}, nil)
	if full >= plain {
		t.Errorf("Expected tremolo to attenuate: plain=%d tremolo=%d", plain, full)
	}
}

func TestNoiseStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := Dials{Noise: 1, FrequencyMultiplier: 1}
	// Square produces the extremes, so noise pushes against both clamps.
	out, err := Synthesize(Square, 5000, d, rng)
	if err != nil {
		t.Fatal(err)
	}
	sawLow, sawHigh := false, false
	for _, b := range out {
		if b == 0 {
			sawLow = true
		}
		if b == 255 {
			sawHigh = true
		}
	}
	if !sawLow || !sawHigh {
		t.Error("Expected clamping at both ends with full noise on a square wave")
	}
}

func TestRandomIgnoresDials(t *testing.T) {
	a, err := Synthesize(Random, 512, Dials{}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Synthesize(Random, 512, Dials{Noise: 1, Tremolo: 1, FrequencyMultiplier: 9}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Expected random output to depend only on the generator seed")
	}
}

func TestGenerateRejectsUnknownAlgorithm(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Generate(&buf, Algorithm("SINE"), 10, DefaultDials(), nil); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %d bytes", buf.Len())
	}
}

func TestGenerateRejectsNegativeCount(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Generate(&buf, Sine, -1, DefaultDials(), nil); err == nil {
		t.Error("Expected error for negative byte count")
	}
}

func TestDialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		dials   Dials
		wantErr bool
	}{
		{"defaults", DefaultDials(), false},
		{"full range", Dials{Noise: 1, Tremolo: 1, FrequencyMultiplier: 10}, false},
		{"negative noise", Dials{Noise: -0.1, FrequencyMultiplier: 1}, true},
		{"tremolo above one", Dials{Tremolo: 1.5, FrequencyMultiplier: 1}, true},
		{"negative multiplier", Dials{FrequencyMultiplier: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dials.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
