//go:build linux

package metrics

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// procfsReader は /proc/self/stat から現在の常駐メモリ量を取得する
type procfsReader struct{}

// NewProcfsReader は新しいprocfsバックエンドを作成する
func NewProcfsReader() Reader {
	return procfsReader{}
}

func (procfsReader) ResidentBytes() (uint64, error) {
	proc, err := procfs.Self()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}

	rss := stat.ResidentMemory()
	if rss < 0 {
		return 0, fmt.Errorf("%w: 不正なRSS値 %d", ErrMetricsUnavailable, rss)
	}
	return uint64(rss), nil
}
