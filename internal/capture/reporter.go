package capture

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Reporter は状態行を1行ずつ出力する
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewReporter は新しいReporterを作成する。out が nil の場合は標準出力
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// Started はワーカーの開始を出力する
func (r *Reporter) Started(name, device string, width, height int) {
	r.printf("%s started at %s (%dx%d)", name, device, width, height)
}

// Frame はフレーム取得ごとの状態を出力する
func (r *Reporter) Frame(name string, frames uint64, memoryMB float64) {
	r.printf("%s Frame %d | Memory: %.2f MB", name, frames, memoryMB)
}

// Total はプロセス全体のメモリ使用量を出力する
func (r *Reporter) Total(memoryMB float64) {
	r.printf("Total memory usage: %.2f MB", memoryMB)
}

// Stopped はワーカーの正常終了を出力する
func (r *Reporter) Stopped(name string, frames uint64) {
	r.printf("%s stopped. Total frames: %d", name, frames)
}

// Failed はワーカーの異常終了を出力する
func (r *Reporter) Failed(name string, frames uint64, cause error) {
	r.printf("%s failed after %d frames: %v", name, frames, cause)
}

// AllStopped は全ワーカーの終了を出力する
func (r *Reporter) AllStopped() {
	r.printf("All streams stopped.")
}
