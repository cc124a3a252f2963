package progress

import (
	"testing"
	"time"

	"glitzhit/internal/jobs"
)

func collect(t *testing.T, e *Emitter) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-e.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("channel not closed, received %d events", len(got))
		}
	}
}

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter(4)

	go func() {
		for _, p := range []int{10, 20, 20, 15, 30} {
			e.Progress(p)
		}
		e.Finish(Success("out.mp4"))
	}()

	got := collect(t, e)
	want := []int{10, 20, 20, 15, 30}
	if len(got) != len(want)+1 {
		t.Fatalf("received %d events, want %d", len(got), len(want)+1)
	}
	for i, p := range want {
		if got[i].Kind != KindProgress || got[i].Percent != p {
			t.Errorf("event %d = %+v, want progress %d", i, got[i], p)
		}
	}

	last := got[len(got)-1]
	if last.Kind != KindSuccess || last.Output != "out.mp4" || last.State != jobs.StateSucceeded {
		t.Errorf("terminal event = %+v", last)
	}
}

func TestEmitterSingleTerminalEvent(t *testing.T) {
	e := NewEmitter(4)
	e.Finish(Success("a.mp4"))
	e.Finish(Failure("late"))

	if e.Progress(50) {
		t.Error("Progress() after Finish() = true")
	}

	got := collect(t, e)
	if len(got) != 1 || got[0].Kind != KindSuccess {
		t.Errorf("events = %+v, want exactly one success", got)
	}
}

func TestEmitterBlocksUntilConsumerReads(t *testing.T) {
	e := NewEmitter(1)
	e.Progress(1)

	sent := make(chan struct{})
	go func() {
		e.Progress(2)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("Progress() did not block on a full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	<-e.Events()
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Progress() still blocked after the consumer read")
	}
}

func TestEmitterDetachReleasesProducer(t *testing.T) {
	e := NewEmitter(1)
	e.Progress(1)

	done := make(chan struct{})
	go func() {
		for i := 2; i <= 100; i++ {
			e.Progress(i)
		}
		e.Finish(Cancelled())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	e.Detach()
	e.Detach()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer blocked after Detach()")
	}
	if !e.Finished() {
		t.Error("Finished() = false after Finish()")
	}
	if e.Progress(5) {
		t.Error("Progress() after detach = true")
	}
}

func TestEmitterTerminalNotDroppedWhenBufferFull(t *testing.T) {
	e := NewEmitter(2)
	e.Progress(1)
	e.Progress(2)

	go e.Finish(Failure("ffmpeg failed with exit code 1"))

	got := collect(t, e)
	if len(got) != 3 {
		t.Fatalf("received %d events, want 3", len(got))
	}
	if got[2].Kind != KindError || got[2].State != jobs.StateFailed {
		t.Errorf("terminal event = %+v", got[2])
	}
}

func TestNewEmitterDefaultBuffer(t *testing.T) {
	e := NewEmitter(0)
	if cap(e.events) != DefaultBuffer {
		t.Errorf("buffer = %d, want %d", cap(e.events), DefaultBuffer)
	}
}

func TestEventConstructors(t *testing.T) {
	if ev := Cancelled(); ev.Message != "Processing canceled by user." || ev.State != jobs.StateCancelled || !ev.Terminal() {
		t.Errorf("Cancelled() = %+v", ev)
	}
	if ev := Failure("x"); ev.Kind != KindError || ev.State != jobs.StateFailed {
		t.Errorf("Failure() = %+v", ev)
	}
	if (Event{Kind: KindProgress}).Terminal() {
		t.Error("progress event reported terminal")
	}
}
