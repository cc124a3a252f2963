// Package transcoder runs and supervises ffmpeg for conversion jobs.
//
// Start launches the encoder for a job that has just gained its progress
// subscriber. The encoder reads the job's input twice, once as raw video
// frames and once as raw audio samples, and writes an mp4 with the requested
// scaling. A dedicated goroutine reads ffmpeg's diagnostic output, turns
// frame counters into percentages, and on exit classifies the result as
// succeeded, failed or cancelled. Failed and cancelled jobs are swept
// immediately; a successful output stays until the job is superseded or
// reclaimed.
//
// The package also extracts the audio track of a finished output and probes
// outputs with ffprobe.
//
// FFmpeg and ffprobe must be installed; their paths are configurable.
package transcoder
