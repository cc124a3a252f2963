package progress

import (
	"bufio"
	"strings"
	"testing"
)

func TestFrameParser(t *testing.T) {
	tests := []struct {
		line  string
		want  int64
		match bool
	}{
		{"frame=5", 5, true},
		{"frame=  123 fps=25 q=28.0 size=256kB time=00:00:04.92", 123, true},
		{"frame=0", 0, true},
		{"fps=25.00", 0, false},
		{"progress=continue", 0, false},
		{"frame=", 0, false},
		{"", 0, false},
	}

	var p Parser = FrameParser{}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := p.ParseFrame(tt.line)
			if ok != tt.match || got != tt.want {
				t.Errorf("ParseFrame(%q) = %d, %v; want %d, %v", tt.line, got, ok, tt.want, tt.match)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		frame, total int64
		want         int
	}{
		{5, 10, 50},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 66},
		{7, 0, 0},
		{0, 10, 0},
		{-1, 10, 0},
	}

	for _, tt := range tests {
		if got := Percent(tt.frame, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.frame, tt.total, got, tt.want)
		}
	}
}

// 64x64 rgb24 with a 122880 byte input is ten frames; frame=5 is half way.
func TestPercentForExampleJob(t *testing.T) {
	const frameSize = 64 * 64 * 3
	total := int64(122880 / frameSize)

	frame, ok := FrameParser{}.ParseFrame("frame=5")
	if !ok {
		t.Fatal("frame=5 not parsed")
	}
	if got := Percent(frame, total); got != 50 {
		t.Errorf("Percent = %d, want 50", got)
	}
}

func TestScanLines(t *testing.T) {
	input := "frame=1\rframe=2\r\nframe=3\nprogress=end"
	sc := bufio.NewScanner(strings.NewReader(input))
	sc.Split(ScanLines)

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []string{"frame=1", "frame=2", "frame=3", "progress=end"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestScanLinesTrailingCR(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("frame=9\r"))
	sc.Split(ScanLines)

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	if len(got) != 1 || got[0] != "frame=9" {
		t.Errorf("lines = %q", got)
	}
}
