package capture

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"camwatch/internal/camera"
)

// fixedMetrics は常に同じ値を返すProcessMetrics
type fixedMetrics float64

func (m fixedMetrics) CurrentResidentMemoryMB() float64 {
	return float64(m)
}

// syncBuffer は並行書き込みに安全なバッファ
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testDescriptors(n int) []camera.Descriptor {
	descs := make([]camera.Descriptor, n)
	for i := range descs {
		descs[i] = camera.Descriptor{
			ID:     fmt.Sprintf("camera%d", i),
			Name:   fmt.Sprintf("Camera %d", i),
			Device: fmt.Sprintf("/dev/video%d", i),
			Width:  320,
			Height: 240,
		}
	}
	return descs
}

type testEnv struct {
	opener   *camera.MockOpener
	out      *syncBuffer
	reporter *Reporter
	logger   *logrus.Logger
	hook     *test.Hook
}

func newTestEnv(frameInterval time.Duration) *testEnv {
	logger, hook := test.NewNullLogger()
	out := &syncBuffer{}
	return &testEnv{
		opener:   camera.NewMockOpener(frameInterval),
		out:      out,
		reporter: NewReporter(out),
		logger:   logger,
		hook:     hook,
	}
}

func (e *testEnv) supervisor(opts Options) *Supervisor {
	return New(opts, e.opener, fixedMetrics(12.5), e.reporter, e.logger)
}

func (e *testEnv) errorEntries() []*logrus.Entry {
	var entries []*logrus.Entry
	for _, entry := range e.hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			entries = append(entries, entry)
		}
	}
	return entries
}
