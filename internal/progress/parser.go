package progress

import (
	"bytes"
	"regexp"
	"strconv"
)

// Parser extracts a frame counter from one line of encoder output.
type Parser interface {
	ParseFrame(line string) (frame int64, ok bool)
}

var framePattern = regexp.MustCompile(`frame=\s*(\d+)`)

// FrameParser understands the "frame=<n>" markers ffmpeg writes both in its
// status line and in -progress key/value output.
type FrameParser struct{}

// ParseFrame implements Parser.
func (FrameParser) ParseFrame(line string) (int64, bool) {
	m := framePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Percent returns floor(frame / total * 100), or 0 when total is not positive.
func Percent(frame, total int64) int {
	if total <= 0 || frame <= 0 {
		return 0
	}
	return int(frame * 100 / total)
}

// ScanLines is a bufio.SplitFunc that treats CR, LF and CRLF as line ends.
// ffmpeg rewrites its status line with bare carriage returns.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else if !atEOF {
				// Wait for more data to tell CR from CRLF.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
