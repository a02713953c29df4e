package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// StopSignal は一度だけ発火する停止フラグ
type StopSignal struct {
	raised atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// NewStopSignal は新しいStopSignalを作成する
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Raise は停止シグナルを発火する。最初の呼び出しのみ true を返す
func (s *StopSignal) Raise() bool {
	first := false
	s.once.Do(func() {
		s.raised.Store(true)
		close(s.done)
		first = true
	})
	return first
}

// Raised は停止シグナルが発火済みか返す
func (s *StopSignal) Raised() bool {
	return s.raised.Load()
}

// Done は発火時にクローズされるチャンネルを返す
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Sleep は d だけ待機する。途中で発火した場合はすぐに true を返す
func (s *StopSignal) Sleep(d time.Duration) bool {
	if d <= 0 {
		return s.Raised()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.done:
		return true
	case <-timer.C:
		return s.Raised()
	}
}
