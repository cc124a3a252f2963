package streaming

import (
	"context"
	"net/http"
	"strings"
)

// EventWriter writes a text/event-stream response.
type EventWriter struct {
	tw *TimeoutWriter
}

// NewEventWriter sends the event-stream headers and returns a writer for
// the events that follow.
func NewEventWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *EventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ew := &EventWriter{tw: NewTimeoutWriter(ctx, w, config)}
	ew.tw.Flush()
	return ew
}

// Send writes one event. An empty name sends an unnamed message event.
// Multi-line data is split across several data fields.
func (ew *EventWriter) Send(name, data string) error {
	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return ew.write(b.String())
}

// Comment writes a comment line, which clients ignore. It keeps idle
// proxies from closing the connection.
func (ew *EventWriter) Comment(text string) error {
	return ew.write(": " + text + "\n\n")
}

func (ew *EventWriter) write(s string) error {
	if _, err := ew.tw.Write([]byte(s)); err != nil {
		return err
	}
	ew.tw.Flush()
	return nil
}

// Done is closed when the client disconnects or a write times out.
func (ew *EventWriter) Done() <-chan struct{} {
	return ew.tw.ctx.Done()
}

// Close releases the underlying writer.
func (ew *EventWriter) Close() error {
	return ew.tw.Close()
}
