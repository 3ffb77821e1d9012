package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tootrelay/tootrelay/internal/bus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves files from memory.
type fakeSource struct {
	mu        sync.Mutex
	files     map[string]FileInfo // by file id
	data      map[string][]byte   // by path
	fetchErr  error
	dlErr     error
	whoErr    error
	whoCalls  int
	downloads []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{files: map[string]FileInfo{}, data: map[string][]byte{}}
}

func (s *fakeSource) add(fileID, path string, data []byte) {
	s.files[fileID] = FileInfo{FileID: fileID, Path: path, Size: len(data)}
	s.data[path] = data
}

func (s *fakeSource) FetchFile(_ context.Context, fileID string) (FileInfo, error) {
	if s.fetchErr != nil {
		return FileInfo{}, s.fetchErr
	}
	info, ok := s.files[fileID]
	if !ok {
		return FileInfo{}, fmt.Errorf("file %s not found", fileID)
	}
	return info, nil
}

func (s *fakeSource) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	s.downloads = append(s.downloads, path)
	s.mu.Unlock()
	if s.dlErr != nil {
		return nil, s.dlErr
	}
	return s.data[path], nil
}

func (s *fakeSource) WhoAmI(context.Context) (string, error) {
	s.whoCalls++
	if s.whoErr != nil {
		return "", s.whoErr
	}
	return "relaybot", nil
}

// fakeDest records every call and hands out sequential post ids.
type fakeDest struct {
	mu       sync.Mutex
	posts    []Post
	uploads  []Upload
	failAt   int // 1-based CreatePost call that fails, 0 for never
	postErr  error
	uplErr   error
	whoErr   error
	whoCalls int
}

func (d *fakeDest) CreatePost(_ context.Context, p Post) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAt > 0 && len(d.posts)+1 == d.failAt {
		d.failAt = 0
		return "", d.postErr
	}
	d.posts = append(d.posts, p)
	return fmt.Sprintf("post-%d", len(d.posts)), nil
}

func (d *fakeDest) UploadMedia(_ context.Context, u Upload) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uplErr != nil {
		return "", d.uplErr
	}
	d.uploads = append(d.uploads, u)
	return fmt.Sprintf("media-%d", len(d.uploads)), nil
}

func (d *fakeDest) WhoAmI(context.Context) (string, error) {
	d.whoCalls++
	if d.whoErr != nil {
		return "", d.whoErr
	}
	return "relay@example.social", nil
}

// sleepRecorder counts pacing waits without sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

// recordingMetrics keeps the last outcome per call.
type recordingMetrics struct {
	mu      sync.Mutex
	results []string
	posts   int
	chains  []int
	up      map[string]bool
}

func (m *recordingMetrics) MessageHandled(_ bus.Kind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func (m *recordingMetrics) PostCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts++
}

func (m *recordingMetrics) ChainDelivered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains = append(m.chains, n)
}

func (m *recordingMetrics) TransportUp(transport string, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.up == nil {
		m.up = map[string]bool{}
	}
	m.up[transport] = up
}

func textMessage(body string, origin bus.Origin) bus.InboundMessage {
	return bus.NewInboundMessage("1", bus.Text{Body: body}, origin)
}
