package synth

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
)

// Algorithm names a byte-stream generator.
type Algorithm string

// Supported algorithms.
const (
	Sine     Algorithm = "sine"
	Square   Algorithm = "square"
	Triangle Algorithm = "triangle"
	Sawtooth Algorithm = "sawtooth"
	Random   Algorithm = "random"
)

// BytesPerPixel is the pixel width of synthesized input (rgb24).
const BytesPerPixel = 3

// tremoloRate drives the amplitude-modulation phase per byte index.
const tremoloRate = 0.001

// ErrUnknownAlgorithm is returned for algorithm names not in Algorithms().
var ErrUnknownAlgorithm = errors.New("unknown synthesis algorithm")

// Algorithms lists every supported algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{Sine, Square, Triangle, Sawtooth, Random}
}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	for _, known := range Algorithms() {
		if a == known {
			return true
		}
	}
	return false
}

// Dials are the modulation coefficients applied to periodic waveforms.
type Dials struct {
	// Noise scales a uniform perturbation of +/- Noise*127.5. Range 0-1.
	Noise float64 `json:"noiseAmount"`
	// Tremolo is the amplitude-modulation depth. Range 0-1.
	Tremolo float64 `json:"tremoloAmount"`
	// FrequencyMultiplier scales the base frequency of the generator.
	FrequencyMultiplier float64 `json:"frequencyMultiplier"`
}

// DefaultDials leaves the waveform unmodulated.
func DefaultDials() Dials {
	return Dials{FrequencyMultiplier: 1}
}

// Validate checks that Noise and Tremolo are within [0,1] and the multiplier is finite and non-negative.
func (d Dials) Validate() error {
	if math.IsNaN(d.Noise) || d.Noise < 0 || d.Noise > 1 {
		return fmt.Errorf("noise amount must be between 0 and 1, got %v", d.Noise)
	}
	if math.IsNaN(d.Tremolo) || d.Tremolo < 0 || d.Tremolo > 1 {
		return fmt.Errorf("tremolo amount must be between 0 and 1, got %v", d.Tremolo)
	}
	if math.IsNaN(d.FrequencyMultiplier) || math.IsInf(d.FrequencyMultiplier, 0) || d.FrequencyMultiplier < 0 {
		return fmt.Errorf("frequency multiplier must be a non-negative number, got %v", d.FrequencyMultiplier)
	}
	return nil
}

// ByteCount returns the size of round(duration * frameRate) whole frames of
// width x height pixels. Counts too large for an int64 saturate at
// math.MaxInt64.
func ByteCount(duration, frameRate float64, width, height int) int64 {
	if duration <= 0 || frameRate <= 0 || width <= 0 || height <= 0 {
		return 0
	}
	frames := math.Round(duration * frameRate)
	if !(frames >= 1) {
		return 0
	}
	if frames*float64(width)*float64(height)*BytesPerPixel >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(frames) * int64(width) * int64(height) * BytesPerPixel
}

// base computes the unmodulated sample for byte index i.
func base(alg Algorithm, i int64, freqMult float64) float64 {
	x := float64(i)
	switch alg {
	case Sine:
		return (math.Sin(x*0.01*freqMult) + 1) * 127.5
	case Square:
		if math.Sin(x*0.01*freqMult) > 0 {
			return 255
		}
		return 0
	case Triangle:
		return (math.Asin(math.Sin(x*0.05*freqMult))/(math.Pi/2) + 1) * 127.5
	case Sawtooth:
		return math.Mod(x*freqMult*5, 255)
	}
	return 0
}

// Sample returns the output byte at index i for a periodic algorithm.
// rng is consulted only when d.Noise is non-zero.
func Sample(alg Algorithm, i int64, d Dials, rng *rand.Rand) byte {
	v := base(alg, i, d.FrequencyMultiplier)

	if d.Tremolo != 0 {
		v *= 1 - d.Tremolo*((math.Sin(float64(i)*tremoloRate)+1)/2)
	}
	if d.Noise != 0 {
		v += (rng.Float64()*2 - 1) * d.Noise * 127.5
	}

	switch {
	case v < 0:
		v = 0
	case v > 255:
		v = 255
	}
	return byte(v)
}

// Generate writes exactly n synthesized bytes to w.
func Generate(w io.Writer, alg Algorithm, n int64, d Dials, rng *rand.Rand) (int64, error) {
	if !alg.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
	}
	if n < 0 {
		return 0, fmt.Errorf("byte count must not be negative, got %d", n)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	var written int64
	for i := int64(0); i < n; i++ {
		var b byte
		if alg == Random {
			b = byte(rng.Intn(256))
		} else {
			b = Sample(alg, i, d, rng)
		}
		if err := bw.WriteByte(b); err != nil {
			return written, err
		}
		written++
	}
	if err := bw.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// Synthesize returns n synthesized bytes.
func Synthesize(alg Algorithm, n int, d Dials, rng *rand.Rand) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("byte count must not be negative, got %d", n)
	}
	var buf bytes.Buffer
	buf.Grow(n)
	if _, err := Generate(&buf, alg, int64(n), d, rng); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
