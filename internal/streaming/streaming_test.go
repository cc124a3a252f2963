package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDefaultTimeoutWriterConfig(t *testing.T) {
	config := DefaultTimeoutWriterConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout=60s, got %v", config.IdleTimeout)
	}
	if config.MaxDuration != 0 {
		t.Errorf("Expected MaxDuration=0 (unlimited), got %v", config.MaxDuration)
	}
	if config.ChunkSize != 256*1024 {
		t.Errorf("Expected ChunkSize=256KB, got %d", config.ChunkSize)
	}
}

func TestEventStreamConfigDisablesIdleTimeout(t *testing.T) {
	config := EventStreamConfig()
	if config.IdleTimeout != 0 {
		t.Errorf("Expected IdleTimeout=0, got %v", config.IdleTimeout)
	}
	if config.WriteTimeout <= 0 {
		t.Errorf("Expected a positive WriteTimeout, got %v", config.WriteTimeout)
	}
}

func TestTimeoutWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), w, DefaultTimeoutWriterConfig())
	defer tw.Close()

	data := []byte("test data")
	n, err := tw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	bytesWritten, _ := tw.Stats()
	if bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytes written=%d, got %d", len(data), bytesWritten)
	}
	if w.Body.String() != "test data" {
		t.Errorf("Expected body %q, got %q", "test data", w.Body.String())
	}
}

func TestTimeoutWriterChunkedWrites(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultTimeoutWriterConfig()
	config.ChunkSize = 4

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	data := []byte("0123456789")
	n, err := tw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected %d bytes, got %d", len(data), n)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("Expected body %q, got %q", data, w.Body.Bytes())
	}
	if !w.Flushed {
		t.Error("Expected chunked write to flush")
	}
}

func TestTimeoutWriterClose(t *testing.T) {
	tw := NewTimeoutWriter(context.Background(), httptest.NewRecorder(), DefaultTimeoutWriterConfig())

	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := tw.Write([]byte("late")); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Expected ErrStreamCanceled, got %v", err)
	}
}

func TestTimeoutWriterContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tw := NewTimeoutWriter(ctx, httptest.NewRecorder(), DefaultTimeoutWriterConfig())
	defer tw.Close()

	cancel()

	if _, err := tw.Write([]byte("data")); !errors.Is(err, ErrClientGone) {
		t.Errorf("Expected ErrClientGone, got %v", err)
	}
}

func TestTimeoutWriterMaxDuration(t *testing.T) {
	config := DefaultTimeoutWriterConfig()
	config.MaxDuration = time.Nanosecond

	tw := NewTimeoutWriter(context.Background(), httptest.NewRecorder(), config)
	defer tw.Close()

	time.Sleep(time.Millisecond)
	if _, err := tw.Write([]byte("data")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout, got %v", err)
	}
}

// blockingWriter never completes a write until released.
type blockingWriter struct {
	*httptest.ResponseRecorder
	release chan struct{}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	return len(p), nil
}

func TestTimeoutWriterWriteTimeout(t *testing.T) {
	bw := &blockingWriter{ResponseRecorder: httptest.NewRecorder(), release: make(chan struct{})}
	defer close(bw.release)

	config := TimeoutWriterConfig{WriteTimeout: 20 * time.Millisecond}
	tw := NewTimeoutWriter(context.Background(), bw, config)
	defer tw.Close()

	if _, err := tw.Write([]byte("stuck")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout, got %v", err)
	}
}

func TestTimeoutWriterIdleTimeout(t *testing.T) {
	config := TimeoutWriterConfig{WriteTimeout: time.Second, IdleTimeout: 40 * time.Millisecond}
	tw := NewTimeoutWriter(context.Background(), httptest.NewRecorder(), config)
	defer tw.Close()

	time.Sleep(150 * time.Millisecond)

	if _, err := tw.Write([]byte("late")); err == nil {
		t.Error("Expected write after idle timeout to fail")
	}
}

func TestStreamWithTimeout(t *testing.T) {
	w := httptest.NewRecorder()
	payload := strings.Repeat("x", 1024*1024)

	err := StreamWithTimeout(context.Background(), w, strings.NewReader(payload), DefaultTimeoutWriterConfig())
	if err != nil {
		t.Fatalf("StreamWithTimeout failed: %v", err)
	}
	if w.Body.Len() != len(payload) {
		t.Errorf("Expected %d bytes, got %d", len(payload), w.Body.Len())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected X-Content-Type-Options: nosniff")
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrClientGone, true},
		{ErrWriteTimeout, true},
		{ErrStreamCanceled, true},
		{errors.Join(errors.New("copy"), ErrClientGone), true},
		{errors.New("disk error"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.want {
			t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrWriteTimeout, ErrClientGone, ErrStreamCanceled}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("Expected %v and %v to be distinct", a, b)
			}
		}
	}
}

func TestEventWriterHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	ew := NewEventWriter(context.Background(), w, EventStreamConfig())
	defer ew.Close()

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type text/event-stream, got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Expected Cache-Control no-cache, got %q", cc)
	}
	if !w.Flushed {
		t.Error("Expected headers to be flushed")
	}
}

func TestEventWriterFraming(t *testing.T) {
	w := httptest.NewRecorder()
	ew := NewEventWriter(context.Background(), w, EventStreamConfig())
	defer ew.Close()

	steps := []struct {
		name, data string
	}{
		{"", "10"},
		{"", "50"},
		{"success", "abc.mp4"},
	}
	for _, s := range steps {
		if err := ew.Send(s.name, s.data); err != nil {
			t.Fatalf("Send(%q, %q) failed: %v", s.name, s.data, err)
		}
	}

	want := "data: 10\n\ndata: 50\n\nevent: success\ndata: abc.mp4\n\n"
	if w.Body.String() != want {
		t.Errorf("Expected body %q, got %q", want, w.Body.String())
	}
}

func TestEventWriterMultilineData(t *testing.T) {
	w := httptest.NewRecorder()
	ew := NewEventWriter(context.Background(), w, EventStreamConfig())
	defer ew.Close()

	if err := ew.Send("error", "line one\r\nline two"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	want := "event: error\ndata: line one\ndata: line two\n\n"
	if w.Body.String() != want {
		t.Errorf("Expected body %q, got %q", want, w.Body.String())
	}
}

func TestEventWriterComment(t *testing.T) {
	w := httptest.NewRecorder()
	ew := NewEventWriter(context.Background(), w, EventStreamConfig())
	defer ew.Close()

	if err := ew.Comment("keepalive"); err != nil {
		t.Fatalf("Comment failed: %v", err)
	}
	if w.Body.String() != ": keepalive\n\n" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestEventWriterClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ew := NewEventWriter(ctx, httptest.NewRecorder(), EventStreamConfig())
	defer ew.Close()

	cancel()

	select {
	case <-ew.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected Done to close after client cancellation")
	}
	if err := ew.Send("", "1"); !errors.Is(err, ErrClientGone) {
		t.Errorf("Expected ErrClientGone, got %v", err)
	}
}
