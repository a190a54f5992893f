// services/mediatest/fake_runner.go
package mediatest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// ProbeJSON renders ffprobe output for one video stream.
func ProbeJSON(duration float64, width, height int) []byte {
	return []byte(fmt.Sprintf(`{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": %d, "height": %d, "duration": "%.6f"},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "%.6f", "bit_rate": "1200000"}
}`, width, height, duration, duration))
}

// FakeRunner stands in for ffmpeg and ffprobe. ffprobe returns Probe;
// ffmpeg writes Output to its last argument.
type FakeRunner struct {
	Probe  []byte
	Output []byte
	// Delay blocks each call, honouring context cancellation.
	Delay time.Duration
	// Fail returns an error for matching calls.
	Fail func(name string, args []string) error

	mu    sync.Mutex
	calls [][]string
}

// NewFakeRunner fakes a 10 second 1920x1080 clip.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Probe: ProbeJSON(10, 1920, 1080), Output: []byte("fake-media")}
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Fail != nil {
		if err := f.Fail(name, args); err != nil {
			return nil, err
		}
	}
	if strings.Contains(name, "ffprobe") {
		return f.Probe, nil
	}
	if len(args) == 0 {
		return nil, errors.New("no output path")
	}
	if err := os.WriteFile(args[len(args)-1], f.Output, 0o644); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = slices.Clone(c)
	}
	return out
}

// FailWhen fails every call whose arguments contain needle.
func FailWhen(needle string) func(string, []string) error {
	return func(name string, args []string) error {
		if slices.Contains(args, needle) {
			return fmt.Errorf("%s: exit status 1", name)
		}
		return nil
	}
}
