//go:build unix

package metrics

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// rusageReader はgetrusage(2)の最大常駐メモリ量（ピーク値）を返す
type rusageReader struct{}

// NewRusageReader は新しいrusageバックエンドを作成する
func NewRusageReader() Reader {
	return rusageReader{}
}

func (rusageReader) ResidentBytes() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}
	if ru.Maxrss < 0 {
		return 0, fmt.Errorf("%w: 不正なmaxrss値 %d", ErrMetricsUnavailable, ru.Maxrss)
	}
	return uint64(ru.Maxrss) * maxrssUnit, nil
}
