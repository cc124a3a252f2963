package filesystem

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	errors     int
}

func (o *recordingObserver) ObserveOperation(volume, operation string, _ float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, volume+":"+operation)
	if err != nil {
		o.errors++
	}
}

func (o *recordingObserver) ObserveRetryAttempt(string, string)           {}
func (o *recordingObserver) ObserveRetrySuccess(string, string)           {}
func (o *recordingObserver) ObserveRetryFailure(string, string)           {}
func (o *recordingObserver) ObserveRetryDuration(string, string, float64) {}
func (o *recordingObserver) ObserveStaleError(string, string)             {}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "remove", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver(t *testing.T) {
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	output := filepath.Join(root, "static", "output")

	vr := NewVolumeResolver(map[string]string{
		"uploads": uploads,
		"static":  filepath.Join(root, "static"),
		"output":  output,
	})

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(uploads, "job.dat"), "uploads"},
		{filepath.Join(output, "job.mp4"), "output"},
		{filepath.Join(root, "static", "index.html"), "static"},
		{output, "output"},
		{filepath.Join(root, "elsewhere", "file"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	var nilResolver *VolumeResolver
	if got := nilResolver.Resolve(uploads); got != "unknown" {
		t.Errorf("nil resolver should return unknown, got %q", got)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.dat")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	config := DefaultRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"uploads": dir})

	if err := RemoveWithRetry(path, config); err != nil {
		t.Fatalf("RemoveWithRetry() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed")
	}

	// Second removal is a no-op.
	if err := RemoveWithRetry(path, config); err != nil {
		t.Errorf("RemoveWithRetry() on missing file should succeed, got %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.operations) != 2 || obs.operations[0] != "uploads:remove" {
		t.Errorf("Unexpected observed operations: %v", obs.operations)
	}
	if obs.errors != 0 {
		t.Errorf("Expected no observed errors, got %d", obs.errors)
	}
}

func TestRemoveWithRetryNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "child"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := RemoveWithRetry(dir, DefaultRetryConfig()); err == nil {
		t.Error("Expected error removing a non-empty directory")
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Non-ESTALE errors should not be retried, took %v", elapsed)
	}
}

func TestStatAndOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.dat")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error: %v", err)
	}
	if info.Size() != 128 {
		t.Errorf("Size = %d, want 128", info.Size())
	}

	f, err := OpenWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error: %v", err)
	}
	_ = f.Close()

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), DefaultRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if _, err := OpenWithRetry(filepath.Join(dir, "missing"), DefaultRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
