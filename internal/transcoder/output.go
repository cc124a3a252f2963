package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
	"glitzhit/internal/streaming"
)

// newCommandContext builds auxiliary ffmpeg/ffprobe commands. Tests replace it.
var newCommandContext = exec.CommandContext

// Output returns the job and the path of its finished output.
func (t *Transcoder) Output(id string) (jobs.Job, string, error) {
	job, err := t.store.Get(id)
	if err != nil {
		return jobs.Job{}, "", err
	}
	if job.State != jobs.StateSucceeded {
		return job, "", fmt.Errorf("%w: job is %s", ErrNoOutput, job.State)
	}
	if _, err := filesystem.StatWithRetry(job.OutputPath, t.config.Retry); err != nil {
		return job, "", fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	return job, job.OutputPath, nil
}

// ExtractAudio demuxes the audio track of an output file and streams it to
// w as WAV. Unlike the encoder itself, this process is tied to ctx: it stops
// when the client goes away.
func (t *Transcoder) ExtractAudio(ctx context.Context, w http.ResponseWriter, outputPath, filename string) error {
	cmd := newCommandContext(ctx, t.config.FFmpegPath,
		"-hide_banner",
		"-nostdin",
		"-v", "error",
		"-i", outputPath,
		"-vn",
		"-f", "wav",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		metrics.AudioExtractionsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	streamErr := streaming.StreamWithTimeout(ctx, w, stdout, t.streamConfig)
	if streamErr != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = io.Copy(io.Discard, stdout)
	}
	cmdErr := cmd.Wait()

	if streamErr != nil {
		metrics.AudioExtractionsTotal.WithLabelValues("error").Inc()
		if streaming.IsClientError(streamErr) {
			logging.Debug("Audio stream ended: %v for %s", streamErr, outputPath)
			return nil
		}
		return streamErr
	}

	if cmdErr != nil {
		metrics.AudioExtractionsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Error("FFmpeg stderr: %s", stderr.String())
		return fmt.Errorf("audio extraction error: %w", cmdErr)
	}

	metrics.AudioExtractionsTotal.WithLabelValues("success").Inc()
	return nil
}

// MediaInfo is the ffprobe summary of an output file.
type MediaInfo struct {
	Format   string      `json:"format"`
	Duration float64     `json:"duration"`
	Size     int64       `json:"size"`
	BitRate  int64       `json:"bitRate"`
	Video    *StreamInfo `json:"video,omitempty"`
	Audio    *StreamInfo `json:"audio,omitempty"`
}

// StreamInfo describes one stream of a media file.
type StreamInfo struct {
	Codec      string `json:"codec"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FrameRate  string `json:"frameRate,omitempty"`
	Frames     int64  `json:"frames,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe runs ffprobe on path.
func (t *Transcoder) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := newCommandContext(ctx, t.config.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
		}
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	return ParseProbe(stdout.Bytes())
}

// ParseProbe converts ffprobe's JSON output into a MediaInfo.
func ParseProbe(data []byte) (*MediaInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{Format: out.Format.FormatName}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	info.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)
	info.BitRate, _ = strconv.ParseInt(out.Format.BitRate, 10, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Video != nil {
				continue
			}
			frames, _ := strconv.ParseInt(s.NbFrames, 10, 64)
			info.Video = &StreamInfo{
				Codec:     s.CodecName,
				Width:     s.Width,
				Height:    s.Height,
				FrameRate: s.RFrameRate,
				Frames:    frames,
			}
		case "audio":
			if info.Audio != nil {
				continue
			}
			rate, _ := strconv.Atoi(s.SampleRate)
			info.Audio = &StreamInfo{
				Codec:      s.CodecName,
				SampleRate: rate,
				Channels:   s.Channels,
			}
		}
	}

	return info, nil
}
