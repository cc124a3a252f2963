// Package synth generates raw byte streams from periodic waveforms.
//
// Each algorithm maps a byte index i to a sample in [0,255]:
//   - sine:     (sin(i*0.01*f)+1) * 127.5
//   - square:   255 when sin(i*0.01*f) > 0, else 0
//   - triangle: (asin(sin(i*0.05*f))/(pi/2)+1) * 127.5
//   - sawtooth: (i*f*5) mod 255
//   - random:   uniform over [0,255], dials ignored
//
// The periodic algorithms are then shaped by Dials: tremolo scales the sample
// by 1 - depth*((sin(i*0.001)+1)/2) and noise adds a uniform offset of up to
// +/- amount*127.5. Results are clamped and truncated to a byte.
//
// The byte stream is consumed by the encoder both as rgb24 video frames and
// as unsigned 8-bit audio, so ByteCount sizes requests in whole frames.
package synth
