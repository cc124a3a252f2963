/*
Package streaming writes long-lived HTTP responses without letting a slow or
vanished client pin the server.

TimeoutWriter wraps an http.ResponseWriter with a per-write deadline, an
optional idle limit and an optional total duration. StreamWithTimeout copies
a reader through one, which is how finished videos and extracted audio are
sent:

	err := streaming.StreamWithTimeout(r.Context(), w, file, streaming.DefaultTimeoutWriterConfig())
	if err != nil && !streaming.IsClientError(err) {
		logging.Error("stream failed: %v", err)
	}

EventWriter builds on the same writer to produce text/event-stream output
for job progress:

	ew := streaming.NewEventWriter(r.Context(), w, streaming.EventStreamConfig())
	defer ew.Close()
	_ = ew.Send("", "42")                  // data: 42
	_ = ew.Send("success", "job.mp4")      // event: success / data: job.mp4

Each event is flushed as soon as it is written.
*/
package streaming
