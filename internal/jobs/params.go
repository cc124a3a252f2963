package jobs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"glitzhit/internal/synth"
)

// Default audio interpretation of the raw input stream.
const (
	DefaultAudioSampleFormat = "u8"
	DefaultAudioSampleRate   = 44100
	DefaultAudioChannels     = 1
	DefaultScaleFlags        = "neighbor"
)

// MaxDimension bounds every input and output edge in pixels.
const MaxDimension = 16384

var bytesPerPixel = map[string]int{
	"gray":  1,
	"rgb24": 3,
	"rgba":  4,
}

// tokenPattern restricts enum-like fields that are passed to the encoder.
var tokenPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// BytesPerPixel returns the frame stride for a pixel format. Unknown formats count as 3.
func BytesPerPixel(pixelFormat string) int {
	if n, ok := bytesPerPixel[pixelFormat]; ok {
		return n
	}
	return 3
}

// TotalFrames returns floor(fileSize / frameSize), or 0 when frameSize is not positive.
func TotalFrames(fileSize, frameSize int64) int64 {
	if frameSize <= 0 || fileSize <= 0 {
		return 0
	}
	return fileSize / frameSize
}

// AudioParams describes how the raw input is interpreted as an audio stream.
type AudioParams struct {
	SampleFormat string `json:"sampleFormat"`
	SampleRate   int    `json:"sampleRate"`
	Channels     int    `json:"channels"`
}

// DefaultAudioParams returns unsigned 8-bit mono at 44.1kHz.
func DefaultAudioParams() AudioParams {
	return AudioParams{
		SampleFormat: DefaultAudioSampleFormat,
		SampleRate:   DefaultAudioSampleRate,
		Channels:     DefaultAudioChannels,
	}
}

// ScaleSpec is the output scaling applied to the video stream.
type ScaleSpec struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Flags  string `json:"flags"`
}

// SquareScale scales to size x size with nearest-neighbour sampling.
func SquareScale(size int) ScaleSpec {
	return ScaleSpec{Width: size, Height: size, Flags: DefaultScaleFlags}
}

// Filter renders the scale as an encoder filter expression.
func (s ScaleSpec) Filter() string {
	f := "scale=" + strconv.Itoa(s.Width) + ":" + strconv.Itoa(s.Height)
	if s.Flags != "" {
		f += ":flags=" + s.Flags
	}
	return f
}

// SynthesisParams records how a synthesized input was produced.
type SynthesisParams struct {
	Algorithm synth.Algorithm `json:"algorithm"`
	Duration  float64         `json:"duration"`
	Dials     synth.Dials     `json:"dials"`
}

// Params is the immutable parameter set of a job.
type Params struct {
	PixelFormat string           `json:"pixelFormat"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	FrameRate   float64          `json:"frameRate"`
	Scale       ScaleSpec        `json:"scale"`
	Audio       AudioParams      `json:"audio"`
	Synthesis   *SynthesisParams `json:"synthesis,omitempty"`
}

// FrameSize returns width * height * bytes per pixel.
func (p Params) FrameSize() int64 {
	if p.Width <= 0 || p.Height <= 0 {
		return 0
	}
	return int64(p.Width) * int64(p.Height) * int64(BytesPerPixel(p.PixelFormat))
}

// Source labels the input origin for metrics and history.
func (p Params) Source() string {
	if p.Synthesis != nil {
		return "synth"
	}
	return "upload"
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}

// Validate reports the first problem with p as an ErrInvalidParameters.
func (p Params) Validate() error {
	if !tokenPattern.MatchString(p.PixelFormat) {
		return invalid("pixel format %q is not valid", p.PixelFormat)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return invalid("frame size %dx%d must be positive", p.Width, p.Height)
	}
	if p.Width > MaxDimension || p.Height > MaxDimension {
		return invalid("frame size %dx%d exceeds %d pixels per side", p.Width, p.Height, MaxDimension)
	}
	if math.IsNaN(p.FrameRate) || math.IsInf(p.FrameRate, 0) || p.FrameRate <= 0 {
		return invalid("frame rate %v must be positive", p.FrameRate)
	}
	if p.Scale.Width <= 0 || p.Scale.Height <= 0 {
		return invalid("output scale %dx%d must be positive", p.Scale.Width, p.Scale.Height)
	}
	if p.Scale.Width > MaxDimension || p.Scale.Height > MaxDimension {
		return invalid("output scale %dx%d exceeds %d pixels per side", p.Scale.Width, p.Scale.Height, MaxDimension)
	}
	if p.Scale.Flags != "" && !tokenPattern.MatchString(p.Scale.Flags) {
		return invalid("scale flags %q are not valid", p.Scale.Flags)
	}
	if !tokenPattern.MatchString(p.Audio.SampleFormat) {
		return invalid("audio sample format %q is not valid", p.Audio.SampleFormat)
	}
	if p.Audio.SampleRate <= 0 {
		return invalid("audio sample rate %d must be positive", p.Audio.SampleRate)
	}
	if p.Audio.Channels <= 0 {
		return invalid("audio channel count %d must be positive", p.Audio.Channels)
	}
	if s := p.Synthesis; s != nil {
		if !s.Algorithm.Valid() {
			return invalid("unknown algorithm %q", s.Algorithm)
		}
		if s.Duration <= 0 || math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) {
			return invalid("duration %v must be positive", s.Duration)
		}
		if err := s.Dials.Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}
