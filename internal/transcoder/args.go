package transcoder

import (
	"strconv"

	"glitzhit/internal/jobs"
)

// BuildArgs returns the ffmpeg arguments for job. The input is opened twice:
// first as a rawvideo stream, then as a raw audio stream. The output ends with
// the shorter of the two and progress is written to stderr.
func (t *Transcoder) BuildArgs(job jobs.Job) []string {
	p := job.Params
	audio := p.Audio
	if audio.SampleFormat == "" {
		audio = t.config.Audio
	}

	return []string{
		"-hide_banner",
		"-nostdin",
		"-f", "rawvideo",
		"-pix_fmt", p.PixelFormat,
		"-s", strconv.Itoa(p.Width) + "x" + strconv.Itoa(p.Height),
		"-r", strconv.FormatFloat(p.FrameRate, 'f', -1, 64),
		"-i", job.InputPath,
		"-f", audio.SampleFormat,
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", job.InputPath,
		"-c:v", t.config.VideoCodec,
		"-c:a", t.config.AudioCodec,
		"-pix_fmt", t.config.OutputPixelFormat,
		"-vf", p.Scale.Filter(),
		"-shortest",
		"-y", job.OutputPath,
		"-progress", "pipe:2",
	}
}
